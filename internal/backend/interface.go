package backend

import (
	"context"
	"time"

	"assetboard/internal/sheets"
)

// Backend is everything the HTTP server needs from a ledger store.
type Backend interface {
	sheets.EntryWriter
	sheets.EntryDeleter
	sheets.EntryLister
	sheets.RateReader
}

// Pinger is implemented by backends that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// REST backend specific
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	// Memory backend specific
	DataDirectory string

	// Read cache in front of slow backends; zero size disables it.
	CacheSize int
	CacheTTL  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	APIBackend    BackendType = "api"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, SheetsBackend, APIBackend:
		return true
	default:
		return false
	}
}

// Remote reports whether reads cross the network and are worth caching.
func (bt BackendType) Remote() bool {
	return bt == SheetsBackend || bt == APIBackend
}
