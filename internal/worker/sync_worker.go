package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"assetboard/internal/amqp"
	"assetboard/internal/core"
	"assetboard/internal/sheets"
	"assetboard/internal/storage"
)

// Store is the SQLite side of the sync.
type Store interface {
	GetEntry(ctx context.Context, id int64) (storage.Entry, error)
	GetPendingSyncEntries(ctx context.Context, limit int) ([]storage.PendingSyncEntry, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
	UpsertRate(ctx context.Context, currency string, rate decimal.Decimal) error
}

// Mirror is the Sheets side of the sync. AppendRow keeps the row id so
// later deletes can find it.
type Mirror interface {
	AppendRow(ctx context.Context, row core.TransactionRow) error
	sheets.EntryDeleter
	sheets.RateReader
}

// SyncWorker mirrors SQLite ledger entries into the Google Sheets workbook
type SyncWorker struct {
	store     Store
	mirror    Mirror
	batchSize int

	// serializes appends so a message and a sweep never push the same row twice
	mu sync.Mutex
}

func NewSyncWorker(store Store, mirror Mirror, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleMessage processes one ledger event from AMQP. A returned error
// requeues the delivery.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.EntryMessage) error {
	switch msg.Event {
	case amqp.RoutingEntryCreated:
		return w.handleCreated(ctx, msg)
	case amqp.RoutingEntryDeleted:
		return w.handleDeleted(ctx, msg)
	default:
		slog.WarnContext(ctx, "Ignoring unknown ledger event", "event", msg.Event, "id", msg.ID)
		return nil
	}
}

func (w *SyncWorker) handleCreated(ctx context.Context, msg *amqp.EntryMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	synced, err := w.syncEntry(ctx, msg.ID)
	if errors.Is(err, sheets.ErrNotFound) {
		// deleted before the worker got to it; the delete event follows
		slog.InfoContext(ctx, "Entry no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync entry %d: %w", msg.ID, err)
	}
	if !synced {
		slog.DebugContext(ctx, "Entry already synced", "id", msg.ID)
	}
	return nil
}

func (w *SyncWorker) handleDeleted(ctx context.Context, msg *amqp.EntryMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	ref := strconv.FormatInt(msg.ID, 10)
	err := w.mirror.DeleteEntry(ctx, ref)
	switch {
	case errors.Is(err, sheets.ErrNotFound):
		slog.InfoContext(ctx, "Entry not present in Google Sheets", "id", msg.ID)
		return nil
	case err != nil:
		return fmt.Errorf("delete entry %d from sheets: %w", msg.ID, err)
	}

	slog.InfoContext(ctx, "Successfully deleted entry from Google Sheets",
		"id", msg.ID,
		"timestamp", msg.Timestamp)
	return nil
}

// syncEntry appends a stored entry to the mirror unless it is already
// synced. It reports whether an append happened.
func (w *SyncWorker) syncEntry(ctx context.Context, id int64) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, err := w.store.GetEntry(ctx, id)
	if err != nil {
		return false, err
	}
	if entry.SyncStatus == storage.SyncDone {
		return false, nil
	}

	if err := w.mirror.AppendRow(ctx, entry.Row); err != nil {
		if markErr := w.store.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	if err := w.store.MarkSynced(ctx, id); err != nil {
		// the append went through; a later sweep will append it again
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced entry",
		"id", id,
		"segment", entry.Row.Segment,
		"type", entry.Row.Type,
		"converted", entry.Row.ConvertedAmountBase.String())
	return true, nil
}

// SyncResult counts the outcome of a pending sweep.
type SyncResult struct {
	Total  int
	Synced int
	Errors int
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (SyncResult, error) {
	pending, err := w.store.GetPendingSyncEntries(ctx, limit)
	if err != nil {
		return SyncResult{}, fmt.Errorf("get pending entries: %w", err)
	}

	res := SyncResult{Total: len(pending)}
	for _, p := range pending {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		synced, err := w.syncEntry(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending entry", "id", p.ID, "error", err)
			res.Errors++
			continue
		}
		if synced {
			res.Synced++
		}
	}
	return res, nil
}

// ProcessPending syncs entries that never got a message through.
// This is a backup mechanism in case AMQP messages are lost
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	res, err := w.processPending(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if res.Total > 0 {
		slog.InfoContext(ctx, "Processed pending entries",
			"total", res.Total,
			"synced", res.Synced,
			"errors", res.Errors)
	}
	return nil
}

// StartupSyncCheck runs a larger sweep when the worker starts, to recover
// from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	res, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if res.Total == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", res.Total,
		"synced", res.Synced,
		"errors", res.Errors)
	return nil
}

// SyncRates copies the rates tab of the workbook into SQLite so the server
// converts with the same table the sheet uses.
func (w *SyncWorker) SyncRates(ctx context.Context) error {
	rates, err := w.mirror.Rates(ctx)
	if err != nil {
		return fmt.Errorf("load rates from Google Sheets: %w", err)
	}
	for currency, rate := range rates {
		if err := w.store.UpsertRate(ctx, currency, rate); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "Rates successfully cached", "count", len(rates))
	return nil
}
