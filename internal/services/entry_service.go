package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"assetboard/internal/core"
	"assetboard/internal/sheets"
)

// EntryStore is the local persistence the service writes to first.
type EntryStore interface {
	InsertEntry(ctx context.Context, row core.TransactionRow) (core.TransactionRow, error)
	DeleteEntry(ctx context.Context, id int64) error
	Close() error
}

// EventPublisher announces ledger changes to the sync worker.
type EventPublisher interface {
	PublishEntryCreated(ctx context.Context, id, version int64) error
	PublishEntryDeleted(ctx context.Context, id int64) error
	Close() error
}

// EntryService orchestrates entry writes across SQLite and AMQP
type EntryService struct {
	storage   EntryStore
	publisher EventPublisher
}

// NewEntryService builds the service. publisher may be nil when AMQP is not
// configured; the worker's pending sweep still picks the rows up.
func NewEntryService(storage EntryStore, publisher EventPublisher) *EntryService {
	return &EntryService{
		storage:   storage,
		publisher: publisher,
	}
}

// CreateEntry validates and saves a row locally, then publishes a sync event.
func (s *EntryService) CreateEntry(ctx context.Context, row core.TransactionRow) (core.TransactionRow, error) {
	if err := row.Validate(); err != nil {
		return core.TransactionRow{}, err
	}

	saved, err := s.storage.InsertEntry(ctx, row)
	if err != nil {
		return core.TransactionRow{}, fmt.Errorf("save entry: %w", err)
	}

	id, err := strconv.ParseInt(saved.ID, 10, 64)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse entry ID", "ref", saved.ID, "error", err)
		return saved, nil
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping sync event", "id", id)
		return saved, nil
	}
	// The entry is stored; a failed publish is recovered by the pending sweep.
	if err := s.publisher.PublishEntryCreated(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry created event", "id", id, "error", err)
	}

	return saved, nil
}

// DeleteEntry removes a row locally and publishes a delete event.
func (s *EntryService) DeleteEntry(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return sheets.ErrNotFound
	}

	if err := s.storage.DeleteEntry(ctx, n); err != nil {
		if errors.Is(err, sheets.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete entry: %w", err)
	}

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishEntryDeleted(ctx, n); err != nil {
		slog.ErrorContext(ctx, "Failed to publish entry deleted event", "id", n, "error", err)
	}

	return nil
}

// Close closes both storage and AMQP connections
func (s *EntryService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close entry service: %w", errors.Join(errs...))
	}

	return nil
}
