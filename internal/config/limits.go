package config

import "time"

const (
	// MaxProjectNameLength is the maximum length for project names.
	// Matches the VARCHAR(255) name column of the projects table.
	MaxProjectNameLength = 255

	// MaxIDLength bounds project and media ids accepted on import
	MaxIDLength = 128

	// MaxImportBytes is the largest project export accepted by import.
	// Exports carry references only, never media bytes.
	MaxImportBytes = 5 << 20

	// MaxUploadBytes is the largest single media upload
	MaxUploadBytes = 200 << 20

	// DefaultAutosaveDelay is the debounce window of the autosave scheduler
	DefaultAutosaveDelay = 3 * time.Second

	// DefaultWriteBehindDelay is how long the write-behind gateway waits for
	// the burst of saves to settle before writing to the backend
	DefaultWriteBehindDelay = 500 * time.Millisecond

	// DefaultPreviewURLTTL is the lifetime of presigned media preview URLs
	DefaultPreviewURLTTL = time.Hour
)
