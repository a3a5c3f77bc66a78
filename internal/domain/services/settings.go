package services

// SettingsProvider exposes live editor settings
type SettingsProvider interface {
	// AutosaveEnabled is read on every store change, so it must be cheap
	AutosaveEnabled() bool
}

// SettingsStore is a SettingsProvider that can also persist changes
type SettingsStore interface {
	SettingsProvider
	SetAutosaveEnabled(enabled bool) error
}
