package memory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"assetboard/internal/core"
	"assetboard/internal/export"
	ports "assetboard/internal/sheets"
)

// Store keeps ledger rows in process memory.
type Store struct {
	mu    sync.RWMutex
	rows  []core.TransactionRow
	rates map[string]decimal.Decimal
}

var (
	_ ports.EntryWriter  = (*Store)(nil)
	_ ports.EntryDeleter = (*Store)(nil)
	_ ports.EntryLister  = (*Store)(nil)
	_ ports.RateReader   = (*Store)(nil)
)

func defaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		core.BaseCurrency: decimal.NewFromInt(1),
		"USD":             decimal.NewFromInt(150),
	}
}

// New returns a store holding rows. Rows without an id get one.
func New(rows []core.TransactionRow) *Store {
	s := &Store{rates: defaultRates()}
	for _, r := range rows {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		s.rows = append(s.rows, r)
	}
	return s
}

// NewFromFiles seeds the store from base/seed_entries.csv when present.
func NewFromFiles(base string) *Store {
	path := filepath.Join(base, "seed_entries.csv")
	f, err := os.Open(path)
	if err != nil {
		return New(nil)
	}
	defer f.Close()

	rows, lineErrs, err := export.ReadCSV(f)
	if err != nil {
		slog.Warn("Failed to read seed file", "path", path, "error", err)
		return New(nil)
	}
	for _, le := range lineErrs {
		slog.Warn("Skipped seed line", "path", path, "line", le.Line, "error", le.Err)
	}
	return New(rows)
}

// CreateEntry validates the row and stores it with a fresh id.
func (s *Store) CreateEntry(_ context.Context, row core.TransactionRow) (core.TransactionRow, error) {
	if err := row.Validate(); err != nil {
		return core.TransactionRow{}, err
	}
	row.ID = uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return row, nil
}

// DeleteEntry removes the row with id.
func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.rows {
		if r.ID == id {
			s.rows = append(s.rows[:i:i], s.rows[i+1:]...)
			return nil
		}
	}
	return ports.ErrNotFound
}

// ListEntries returns a copy of the matching rows in date order.
func (s *Store) ListEntries(_ context.Context, q ports.EntryQuery) ([]core.TransactionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.TransactionRow, 0, len(s.rows))
	for _, r := range s.rows {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return core.SortByDate(out), nil
}

// Rates returns a copy of the rate table.
func (s *Store) Rates(_ context.Context) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(s.rates))
	for k, v := range s.rates {
		out[k] = v
	}
	return out, nil
}

// SetRate replaces the JPY rate of a currency.
func (s *Store) SetRate(currency string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[currency] = rate
}
