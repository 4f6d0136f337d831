package config

import "time"

const (
	// MaxCollectionNameLength is the maximum length for collection names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxCollectionNameLength = 255

	// MaxCollectionDescriptionLength is the maximum length for collection
	// descriptions. Long-form prose belongs in documents, not metadata.
	MaxCollectionDescriptionLength = 1000

	// MaxDocumentTitleLength is the maximum length for document titles.
	// Same bound as collection names for consistency.
	MaxDocumentTitleLength = 255

	// MaxDocumentURLLength is the maximum length for derived document URLs.
	// Slugified titles plus the short id suffix fit comfortably below this.
	MaxDocumentURLLength = 500

	// DefaultLockWait is how long a structure mutation waits for its
	// collection's lock before failing with a retryable timeout. Overridden
	// by ARBOR_LOCK_WAIT.
	DefaultLockWait = 10 * time.Second

	// DefaultEventListLimit caps how many audit events a listing returns
	// when the caller does not ask for a specific amount.
	DefaultEventListLimit = 50
)
