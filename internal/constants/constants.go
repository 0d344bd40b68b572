// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// EmbeddingDim is the length of a face embedding vector (dlib ResNet descriptor)
	EmbeddingDim = 128

	// DefaultMatchThreshold is the default maximum Euclidean distance for a face match.
	// Lower values = stricter matching
	DefaultMatchThreshold = 0.6
)

// Class filter constants
const (
	// AllClasses disables class filtering
	AllClasses = "All"

	// UnknownClass is the class of a student id that has no gallery entry
	UnknownClass = "Unknown"
)

// Attendance constants
const (
	// DefaultAutoMarkInterval is the debounce window between two auto-mark batches
	DefaultAutoMarkInterval = 3 * time.Second

	// DefaultFrameInterval is how often frames are pulled from a capture source
	DefaultFrameInterval = 30 * time.Millisecond

	// DefaultStatsWindowDays is the trailing window used by the statistics view
	DefaultStatsWindowDays = 30
)

// Storage constants
const (
	// DefaultLedgerPath is the flat-file ledger used when no backend is configured
	DefaultLedgerPath = "attendance.csv"

	// DefaultGalleryPath is the YAML gallery snapshot used when no source is configured
	DefaultGalleryPath = "gallery.yaml"
)
