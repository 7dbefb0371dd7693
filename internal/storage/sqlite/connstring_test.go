package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeConnectionString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty descriptor",
			input:    "",
			expected: "",
		},
		{
			name:     "bare path passes through",
			input:    "/var/data/orchestrator.db",
			expected: "/var/data/orchestrator.db",
		},
		{
			name:     "memory path passes through",
			input:    ":memory:",
			expected: ":memory:",
		},
		{
			name:     "driver appended when missing",
			input:    "Data Source=/var/data/orchestrator.db;",
			expected: "Data Source=/var/data/orchestrator.db;Driver=sqlite;",
		},
		{
			name:     "driver appended with separator when missing trailing semicolon",
			input:    "Data Source=/var/data/orchestrator.db",
			expected: "Data Source=/var/data/orchestrator.db;Driver=sqlite;",
		},
		{
			name:     "existing driver untouched",
			input:    "Data Source=test.db;Driver=sqlite;",
			expected: "Data Source=test.db;Driver=sqlite;",
		},
		{
			name:     "trust certificate lowercase true",
			input:    "Data Source=test.db;TrustServerCertificate=true;Driver=sqlite;",
			expected: "Data Source=test.db;TrustServerCertificate=yes;Driver=sqlite;",
		},
		{
			name:     "trust certificate titlecase false",
			input:    "Data Source=test.db;TrustServerCertificate=False;Driver=sqlite;",
			expected: "Data Source=test.db;TrustServerCertificate=no;Driver=sqlite;",
		},
		{
			name:     "encrypt titlecase true",
			input:    "Data Source=test.db;Encrypt=True;Driver=sqlite;",
			expected: "Data Source=test.db;Encrypt=yes;Driver=sqlite;",
		},
		{
			name:     "encrypt lowercase false",
			input:    "Data Source=test.db;Encrypt=false;Driver=sqlite;",
			expected: "Data Source=test.db;Encrypt=no;Driver=sqlite;",
		},
		{
			name:     "user id uppercase",
			input:    "Data Source=test.db;User ID=svc;Driver=sqlite;",
			expected: "Data Source=test.db;UID=svc;Driver=sqlite;",
		},
		{
			name:     "user id mixed case",
			input:    "Data Source=test.db;User Id=svc;Driver=sqlite;",
			expected: "Data Source=test.db;UID=svc;Driver=sqlite;",
		},
		{
			name:     "password renamed",
			input:    "Data Source=test.db;Password=secret;Driver=sqlite;",
			expected: "Data Source=test.db;PWD=secret;Driver=sqlite;",
		},
		{
			name:     "all rewrites combined",
			input:    "Data Source=test.db;User ID=svc;Password=secret;Encrypt=True;TrustServerCertificate=true",
			expected: "Data Source=test.db;UID=svc;PWD=secret;Encrypt=yes;TrustServerCertificate=yes;Driver=sqlite;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeConnectionString(tt.input))
		})
	}
}

func TestNormalizeConnectionString_Idempotent(t *testing.T) {
	input := "Data Source=test.db;User ID=svc;Password=secret;Encrypt=True;"
	once := NormalizeConnectionString(input)
	twice := NormalizeConnectionString(once)
	assert.Equal(t, once, twice)
}

func TestDataSourcePath(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "bare path is the data source",
			input:    "/var/data/orchestrator.db",
			expected: "/var/data/orchestrator.db",
		},
		{
			name:     "data source key",
			input:    "Data Source=/var/data/orchestrator.db;Driver=sqlite;",
			expected: "/var/data/orchestrator.db",
		},
		{
			name:     "case insensitive key",
			input:    "DATA SOURCE=test.db;Driver=sqlite;",
			expected: "test.db",
		},
		{
			name:     "joined key form",
			input:    "DataSource=test.db;Driver=sqlite;",
			expected: "test.db",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    " Data Source = test.db ;Driver=sqlite;",
			expected: "test.db",
		},
		{
			name:     "no data source key",
			input:    "Driver=sqlite;UID=svc;",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DataSourcePath(tt.input))
		})
	}
}
