package backend

import (
	"context"
	"fmt"

	"budget/internal/ledger"
	"budget/internal/log"
	gsheet "budget/internal/sheets/google"
	"budget/internal/storage"
	"budget/internal/storage/csvfile"
	"budget/internal/storage/memory"
)

// Create opens the backend selected by cfg.Type.
func Create(ctx context.Context, cfg Config, logger *log.Logger) (*BackendResult, error) {
	logger = log.OrDefault(logger, log.ComponentBackend)
	if !cfg.Type.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}

	var (
		b       ledger.Backend
		cleanup CleanupFunc
	)
	switch cfg.Type {
	case CSVBackend:
		b = csvfile.New(cfg.CSVPath)
		logger.Info("Initialized CSV backend", "path", cfg.CSVPath)

	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		b, cleanup = repo, repo.Close
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath, "schema_version", repo.SchemaVersion())

	case SheetsBackend:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		b = cli
		logger.Info("Initialized Google Sheets backend", "sheet", cfg.GoogleSheetName)

	case MemoryBackend:
		b = memory.New()
		logger.Warn("Initialized memory backend; data is lost on restart")
	}

	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}
