package ir

// Version constants recorded on every persisted call.
const (
	// IRVersion is the payload schema version.
	IRVersion = "1"

	// EngineVersion is the editions host version.
	EngineVersion = "0.1.0"
)
