package model

import "context"

// CapabilityProvider answers whether the current session may perform an
// action ("add", "change", "delete", custom) on a table. Implementations
// are session-scoped; there is no process-wide singleton.
type CapabilityProvider interface {
	Can(ctx context.Context, table, action string) bool
}

// PreferenceStore is an optional external key/value store used to persist
// page-size and column-visibility preferences across sessions. Best effort:
// a failing Set never blocks table operation.
type PreferenceStore interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// Config carries the library-wide settings shared by every table instance.
type Config struct {
	// ConfigDir holds the per-table JSON definitions.
	ConfigDir string

	// BaseURL of the remote list/detail API.
	BaseURL string

	// DefaultPageSize applies when a table config does not set its own.
	DefaultPageSize int

	// RequestTimeoutSeconds for the HTTP client. 0 means 30.
	RequestTimeoutSeconds int

	// RequestsPerSecond limits outgoing fetches. 0 disables limiting.
	RequestsPerSecond float64

	// Capabilities gates row and bulk actions. nil permits everything.
	Capabilities CapabilityProvider

	// Preferences persists page size and column visibility. nil disables
	// persistence.
	Preferences PreferenceStore
}
