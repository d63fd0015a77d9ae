package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/core"
	"assetboard/internal/sheets"
)

type fakeStore struct {
	nextID   int
	inserted []core.TransactionRow
	deleted  []int64
	closed   bool
	err      error
}

func (f *fakeStore) InsertEntry(_ context.Context, row core.TransactionRow) (core.TransactionRow, error) {
	if f.err != nil {
		return core.TransactionRow{}, f.err
	}
	f.nextID++
	row.ID = strconv.Itoa(f.nextID)
	f.inserted = append(f.inserted, row)
	return row, nil
}

func (f *fakeStore) DeleteEntry(_ context.Context, id int64) error {
	if id == 404 {
		return sheets.ErrNotFound
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return nil
}

type fakePublisher struct {
	created []int64
	deleted []int64
	err     error
	closed  bool
}

func (f *fakePublisher) PublishEntryCreated(_ context.Context, id, _ int64) error {
	f.created = append(f.created, id)
	return f.err
}

func (f *fakePublisher) PublishEntryDeleted(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return errors.New("already closed")
}

func validRow() core.TransactionRow {
	return core.TransactionRow{
		Date:                time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		Account:             "三井住友",
		Type:                core.TypeIn,
		Category2:           string(core.SiteRevenue),
		Amount:              decimal.NewFromInt(50000),
		Currency:            "JPY",
		ConvertedAmountBase: decimal.NewFromInt(50000),
		Segment:             core.SegmentCorporate,
	}
}

func TestEntryService_CreateEntry(t *testing.T) {
	t.Run("stores then publishes", func(t *testing.T) {
		store := &fakeStore{}
		pub := &fakePublisher{}
		svc := NewEntryService(store, pub)

		saved, err := svc.CreateEntry(context.Background(), validRow())
		if err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
		if saved.ID != "1" {
			t.Errorf("ID = %q, want 1", saved.ID)
		}
		if len(pub.created) != 1 || pub.created[0] != 1 {
			t.Errorf("published = %v, want [1]", pub.created)
		}
	})

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		store := &fakeStore{}
		svc := NewEntryService(store, &fakePublisher{err: errors.New("circuit breaker is open")})

		if _, err := svc.CreateEntry(context.Background(), validRow()); err != nil {
			t.Fatalf("CreateEntry: %v", err)
		}
		if len(store.inserted) != 1 {
			t.Fatalf("inserted = %d, want 1", len(store.inserted))
		}
	})

	t.Run("invalid rows never reach storage", func(t *testing.T) {
		store := &fakeStore{}
		svc := NewEntryService(store, nil)

		row := validRow()
		row.Amount = decimal.Zero
		_, err := svc.CreateEntry(context.Background(), row)
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("err = %v, want ErrInvalidAmount", err)
		}
		if len(store.inserted) != 0 {
			t.Fatal("invalid row was stored")
		}
	})

	t.Run("storage error is wrapped", func(t *testing.T) {
		boom := errors.New("disk full")
		svc := NewEntryService(&fakeStore{err: boom}, nil)
		if _, err := svc.CreateEntry(context.Background(), validRow()); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want wrapped %v", err, boom)
		}
	})
}

func TestEntryService_DeleteEntry(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		wantErr     error
		wantPublish bool
	}{
		{name: "existing", id: "7", wantPublish: true},
		{name: "unknown", id: "404", wantErr: sheets.ErrNotFound},
		{name: "non numeric", id: "abc", wantErr: sheets.ErrNotFound},
		{name: "zero", id: "0", wantErr: sheets.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			svc := NewEntryService(&fakeStore{}, pub)

			err := svc.DeleteEntry(context.Background(), tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got := len(pub.deleted) == 1; got != tt.wantPublish {
				t.Errorf("published = %v, want %v", pub.deleted, tt.wantPublish)
			}
		})
	}
}

func TestEntryService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		if err := NewEntryService(nil, nil).Close(); err != nil {
			t.Fatalf("Close should not return error with nil components: %v", err)
		}
	})

	t.Run("closes both and reports errors", func(t *testing.T) {
		store := &fakeStore{}
		pub := &fakePublisher{}
		err := NewEntryService(store, pub).Close()
		if err == nil {
			t.Fatal("expected publisher close error")
		}
		if !store.closed || !pub.closed {
			t.Error("both components should be closed")
		}
	})
}
