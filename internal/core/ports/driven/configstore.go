package driven

// ConfigStore provides typed access to application settings, addressed by
// dotted keys such as "storage.data_dir" or "tasks.workers". Implementations
// back the store with a file on disk and may layer environment overrides on
// top of the persisted values.
type ConfigStore interface {
	// Get returns the raw value for a key and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns the value as a string, or "" when the key is
	// missing or holds a different type.
	GetString(key string) string

	// GetInt returns the value as an int, or 0 when the key is missing
	// or holds a different type.
	GetInt(key string) int

	// GetBool returns the value as a bool, or false when the key is
	// missing or holds a different type.
	GetBool(key string) bool

	// GetStringSlice returns the value as a string slice, or nil when
	// the key is missing or holds a different type.
	GetStringSlice(key string) []string

	// Set stores a value under a key and persists it immediately.
	Set(key string, value any) error

	// Save writes the current settings back to storage.
	Save() error

	// Load re-reads settings from storage, discarding unsaved changes.
	Load() error

	// Path returns the location of the backing file.
	Path() string
}
