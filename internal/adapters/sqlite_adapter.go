package adapters

import (
	"context"

	"github.com/shopspring/decimal"

	"assetboard/internal/core"
	"assetboard/internal/services"
	"assetboard/internal/sheets"
	"assetboard/internal/storage"
)

// SQLiteAdapter combines the repository (reads) and the EntryService
// (writes with AMQP events) behind the sheets ports.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.EntryService
}

var (
	_ sheets.EntryWriter  = (*SQLiteAdapter)(nil)
	_ sheets.EntryDeleter = (*SQLiteAdapter)(nil)
	_ sheets.EntryLister  = (*SQLiteAdapter)(nil)
	_ sheets.RateReader   = (*SQLiteAdapter)(nil)
)

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.EntryService) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
	}
}

// CreateEntry implements sheets.EntryWriter
func (a *SQLiteAdapter) CreateEntry(ctx context.Context, row core.TransactionRow) (core.TransactionRow, error) {
	return a.service.CreateEntry(ctx, row)
}

// DeleteEntry implements sheets.EntryDeleter
func (a *SQLiteAdapter) DeleteEntry(ctx context.Context, id string) error {
	return a.service.DeleteEntry(ctx, id)
}

// ListEntries implements sheets.EntryLister
func (a *SQLiteAdapter) ListEntries(ctx context.Context, q sheets.EntryQuery) ([]core.TransactionRow, error) {
	return a.storage.ListEntries(ctx, q)
}

// Rates implements sheets.RateReader
func (a *SQLiteAdapter) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	return a.storage.Rates(ctx)
}

// Ping reports database readiness.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
