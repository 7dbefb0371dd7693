package common

import "encoding/json"

// ConnectionSettings holds the connection descriptors the orchestrator hands
// to a job invocation. Either descriptor may be empty, which disables the
// corresponding sink for the run.
type ConnectionSettings struct {
	Relational string
	Table      string
}

// appSettings mirrors the orchestrator settings blob. Only the connection
// strings section matters to the runner.
type appSettings struct {
	ConnectionStrings struct {
		Database string `json:"blazororchestratordb"`
		Tables   string `json:"tables"`
	} `json:"ConnectionStrings"`
}

// ParseSettings extracts connection descriptors from the orchestrator
// settings blob. An absent or malformed blob yields empty descriptors, never
// an error: a job without connection strings still runs, it just loses its
// persistent sinks.
func ParseSettings(blob string) ConnectionSettings {
	if blob == "" {
		return ConnectionSettings{}
	}

	var settings appSettings
	if err := json.Unmarshal([]byte(blob), &settings); err != nil {
		return ConnectionSettings{}
	}

	return ConnectionSettings{
		Relational: settings.ConnectionStrings.Database,
		Table:      settings.ConnectionStrings.Tables,
	}
}
