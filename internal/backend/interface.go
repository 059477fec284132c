// Package backend builds the ledger storage selected by configuration.
package backend

import (
	"budget/internal/config"
	"budget/internal/ledger"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend ledger.Backend
	Cleanup CleanupFunc
}

// Config holds what backend creation needs, independent of the app config.
type Config struct {
	Type BackendType

	CSVPath      string
	SQLiteDBPath string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(c *config.Config) Config {
	credsFile := c.GoogleServiceAccountFile
	if credsFile == "" {
		credsFile = c.GoogleApplicationCredFile
	}
	return Config{
		Type:                     BackendType(c.DataBackend),
		CSVPath:                  c.LedgerCSVPath,
		SQLiteDBPath:             c.SQLiteDBPath,
		GoogleSpreadsheetID:      c.GoogleSpreadsheetID,
		GoogleSheetName:          c.GoogleSheetName,
		GoogleServiceAccountJSON: c.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: credsFile,
	}
}
