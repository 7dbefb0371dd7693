package sqlite

import "strings"

// The orchestrator hands out connection descriptors in its own dialect:
// key=value pairs with .NET-style boolean literals and credential key names.
// NormalizeConnectionString rewrites a descriptor into the form the driver
// layer accepts. It is a pure function: same input, same output, no probing.

// DefaultDriver is appended when a descriptor names no driver.
const DefaultDriver = "sqlite"

// booleanRewrites maps .NET boolean literals to driver literals for the keys
// that carry them.
var booleanRewrites = [...][2]string{
	{"TrustServerCertificate=true", "TrustServerCertificate=yes"},
	{"TrustServerCertificate=True", "TrustServerCertificate=yes"},
	{"TrustServerCertificate=false", "TrustServerCertificate=no"},
	{"TrustServerCertificate=False", "TrustServerCertificate=no"},
	{"Encrypt=true", "Encrypt=yes"},
	{"Encrypt=True", "Encrypt=yes"},
	{"Encrypt=false", "Encrypt=no"},
	{"Encrypt=False", "Encrypt=no"},
}

// credentialRewrites renames .NET credential keys to driver keys.
var credentialRewrites = [...][2]string{
	{"User ID=", "UID="},
	{"User Id=", "UID="},
	{"Password=", "PWD="},
}

// NormalizeConnectionString translates an orchestrator connection descriptor
// into driver form. A descriptor without key=value pairs is a bare data
// source path and passes through untouched.
func NormalizeConnectionString(descriptor string) string {
	if descriptor == "" {
		return ""
	}
	if !strings.Contains(descriptor, "=") {
		return descriptor
	}

	s := descriptor
	for _, r := range booleanRewrites {
		s = strings.ReplaceAll(s, r[0], r[1])
	}
	for _, r := range credentialRewrites {
		s = strings.ReplaceAll(s, r[0], r[1])
	}

	if !strings.Contains(s, "Driver=") {
		if !strings.HasSuffix(s, ";") {
			s += ";"
		}
		s += "Driver=" + DefaultDriver + ";"
	}

	return s
}

// DataSourcePath extracts the data source from a normalized descriptor. A
// descriptor without key=value pairs is the path itself; otherwise the
// "Data Source" (or "DataSource") key names it.
func DataSourcePath(normalized string) string {
	if normalized == "" {
		return ""
	}
	if !strings.Contains(normalized, "=") {
		return normalized
	}

	for _, part := range strings.Split(normalized, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "data source", "datasource":
			return strings.TrimSpace(value)
		}
	}

	return ""
}
