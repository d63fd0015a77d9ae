package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/core"
	"assetboard/internal/sheets"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// Sync states of an entry relative to the Sheets mirror.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

// Entry is a stored ledger row with its bookkeeping columns.
type Entry struct {
	Row        core.TransactionRow
	Version    int64
	SyncStatus string
	CreatedAt  time.Time
}

// PendingSyncEntry represents minimal data needed for sync queue messages
type PendingSyncEntry struct {
	ID      int64
	Version int64
}

var (
	_ sheets.EntryLister = (*SQLiteRepository)(nil)
	_ sheets.RateReader  = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps writes serialized; sqlite locks the file anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InsertEntry stores a validated row and returns it with its id.
func (r *SQLiteRepository) InsertEntry(ctx context.Context, row core.TransactionRow) (core.TransactionRow, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (entry_date, account, entry_type, category1, category2, amount, currency, rate, converted_amount, segment, memo)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Date.Format(dateLayout), row.Account, string(row.Type), row.Category1, row.Category2,
		row.Amount.String(), row.Currency, nullDecimalValue(row.Rate), row.ConvertedAmountBase.String(),
		string(row.Segment), row.Memo,
	)
	if err != nil {
		return core.TransactionRow{}, fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.TransactionRow{}, fmt.Errorf("last insert id: %w", err)
	}
	row.ID = strconv.FormatInt(id, 10)

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"id", id,
		"type", row.Type,
		"segment", row.Segment,
		"converted", row.ConvertedAmountBase.String())

	return row, nil
}

const entryColumns = `id, entry_date, account, entry_type, category1, category2, amount, currency, rate, converted_amount, segment, memo, version, sync_status, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e                             Entry
		id                            int64
		date, typ, segment, createdAt string
		amount, converted             string
		rate                          sql.NullString
	)
	err := s.Scan(&id, &date, &e.Row.Account, &typ, &e.Row.Category1, &e.Row.Category2,
		&amount, &e.Row.Currency, &rate, &converted, &segment, &e.Row.Memo,
		&e.Version, &e.SyncStatus, &createdAt)
	if err != nil {
		return Entry{}, err
	}
	e.Row.ID = strconv.FormatInt(id, 10)
	e.Row.Type = core.EntryType(typ)
	e.Row.Segment = core.Segment(segment)
	if e.Row.Date, err = time.Parse(dateLayout, date); err != nil {
		return Entry{}, fmt.Errorf("parse entry_date %q: %w", date, err)
	}
	if e.Row.Amount, err = decimal.NewFromString(amount); err != nil {
		return Entry{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if e.Row.ConvertedAmountBase, err = decimal.NewFromString(converted); err != nil {
		return Entry{}, fmt.Errorf("parse converted_amount %q: %w", converted, err)
	}
	if rate.Valid && rate.String != "" {
		d, err := decimal.NewFromString(rate.String)
		if err != nil {
			return Entry{}, fmt.Errorf("parse rate %q: %w", rate.String, err)
		}
		e.Row.Rate = decimal.NewNullDecimal(d)
	}
	e.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
	return e, nil
}

// GetEntry loads one entry by id.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, sheets.ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get entry %d: %w", id, err)
	}
	return e, nil
}

// ListEntries implements sheets.EntryLister
func (r *SQLiteRepository) ListEntries(ctx context.Context, q sheets.EntryQuery) ([]core.TransactionRow, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case q.Year != 0 && q.Month != 0:
		where = append(where, "entry_date LIKE ?")
		args = append(args, fmt.Sprintf("%04d-%02d-%%", q.Year, q.Month))
	case q.Year != 0:
		where = append(where, "entry_date LIKE ?")
		args = append(args, fmt.Sprintf("%04d-%%", q.Year))
	}
	if q.Segment != "" {
		where = append(where, "segment = ?")
		args = append(args, string(q.Segment))
	}
	query := `SELECT ` + entryColumns + ` FROM entries`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY entry_date, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []core.TransactionRow
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e.Row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

// DeleteEntry removes an entry. Unknown ids yield sheets.ErrNotFound.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sheets.ErrNotFound
	}
	return nil
}

// GetPendingSyncEntries returns entries that still need to reach Google Sheets
func (r *SQLiteRepository) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingSyncEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version FROM entries WHERE sync_status = ? ORDER BY id LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending entries: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncEntry
	for rows.Next() {
		var p PendingSyncEntry
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending entry: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks an entry as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncDone)
}

// MarkSyncError flags an entry the worker could not mirror.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE entries SET sync_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("mark entry %d %s: %w", id, status, err)
	}
	return nil
}

// Rates implements sheets.RateReader
func (r *SQLiteRepository) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT currency, rate FROM rates`)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var currency, rate string
		if err := rows.Scan(&currency, &rate); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("parse rate for %s: %w", currency, err)
		}
		out[currency] = d
	}
	return out, rows.Err()
}

// UpsertRate stores the base-currency rate of a currency.
func (r *SQLiteRepository) UpsertRate(ctx context.Context, currency string, rate decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO rates (currency, rate) VALUES (?, ?)
		ON CONFLICT(currency) DO UPDATE SET rate = excluded.rate, updated_at = CURRENT_TIMESTAMP`,
		currency, rate.String())
	if err != nil {
		return fmt.Errorf("upsert rate %s: %w", currency, err)
	}
	return nil
}

func nullDecimalValue(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}
