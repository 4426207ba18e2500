package settings

// Defaults materialized for a guild on its first settings read.
const (
	// DefaultFreeModelsOnly leaves paid models selectable.
	DefaultFreeModelsOnly = false
	// DefaultShowLlmDetails appends usage details to replies.
	DefaultShowLlmDetails = true
)
