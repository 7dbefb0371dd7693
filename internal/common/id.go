package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewRowKey generates a fresh table-store row key. Row keys are never reused,
// which keeps the JobLogs table strictly append-only.
func NewRowKey() string {
	return uuid.New().String()
}

// NewErrorFieldDescriptor generates a unique JobData field descriptor for an
// error record. The timestamp plus random suffix keeps repeated errors within
// the same run from colliding.
// Format: Error_<yyyymmddhhmmss>_<uuid8>
func NewErrorFieldDescriptor(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("Error_%s_%s", now.UTC().Format("20060102150405"), suffix)
}
