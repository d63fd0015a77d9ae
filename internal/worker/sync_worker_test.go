package worker

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/amqp"
	"assetboard/internal/core"
	"assetboard/internal/sheets"
	"assetboard/internal/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	entries map[int64]storage.Entry
	rates   map[string]decimal.Decimal
}

func newFakeStore(ids ...int64) *fakeStore {
	s := &fakeStore{entries: map[int64]storage.Entry{}, rates: map[string]decimal.Decimal{}}
	for _, id := range ids {
		s.entries[id] = storage.Entry{
			Row: core.TransactionRow{
				ID:                  strconv.FormatInt(id, 10),
				Date:                time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
				Account:             "main bank",
				Type:                core.TypeIn,
				Category2:           string(core.SiteRevenue),
				Amount:              decimal.NewFromInt(1000),
				Currency:            "JPY",
				Rate:                decimal.NewNullDecimal(decimal.NewFromInt(1)),
				ConvertedAmountBase: decimal.NewFromInt(1000),
				Segment:             core.SegmentCorporate,
			},
			Version:    1,
			SyncStatus: storage.SyncPending,
		}
	}
	return s
}

func (s *fakeStore) GetEntry(_ context.Context, id int64) (storage.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return storage.Entry{}, sheets.ErrNotFound
	}
	return e, nil
}

func (s *fakeStore) GetPendingSyncEntries(_ context.Context, limit int) ([]storage.PendingSyncEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.PendingSyncEntry
	for id := int64(1); id <= int64(len(s.entries))+10 && len(out) < limit; id++ {
		if e, ok := s.entries[id]; ok && e.SyncStatus == storage.SyncPending {
			out = append(out, storage.PendingSyncEntry{ID: id, Version: e.Version})
		}
	}
	return out, nil
}

func (s *fakeStore) setStatus(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[id]
	e.SyncStatus = status
	s.entries[id] = e
}

func (s *fakeStore) status(id int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id].SyncStatus
}

func (s *fakeStore) MarkSynced(_ context.Context, id int64) error {
	s.setStatus(id, storage.SyncDone)
	return nil
}

func (s *fakeStore) MarkSyncError(_ context.Context, id int64) error {
	s.setStatus(id, storage.SyncError)
	return nil
}

func (s *fakeStore) UpsertRate(_ context.Context, currency string, rate decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[currency] = rate
	return nil
}

type fakeMirror struct {
	mu        sync.Mutex
	appended  []core.TransactionRow
	deleted   []string
	appendErr error
	deleteErr error
	rates     map[string]decimal.Decimal
}

func (m *fakeMirror) AppendRow(_ context.Context, row core.TransactionRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, row)
	return nil
}

func (m *fakeMirror) DeleteEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *fakeMirror) Rates(context.Context) (map[string]decimal.Decimal, error) {
	return m.rates, nil
}

func TestHandleMessage_Created(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(1)
	mirror := &fakeMirror{}
	w := NewSyncWorker(store, mirror, 10)

	msg := amqp.NewEntryCreatedMessage(1, 1)
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if len(mirror.appended) != 1 || mirror.appended[0].ID != "1" {
		t.Fatalf("appended = %+v", mirror.appended)
	}
	if store.status(1) != storage.SyncDone {
		t.Fatalf("status = %s, want synced", store.status(1))
	}

	// redelivery is a no-op
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatal(err)
	}
	if len(mirror.appended) != 1 {
		t.Fatalf("redelivery appended again: %d rows", len(mirror.appended))
	}
}

func TestHandleMessage_CreatedMissingEntry(t *testing.T) {
	w := NewSyncWorker(newFakeStore(), &fakeMirror{}, 10)
	if err := w.HandleMessage(context.Background(), amqp.NewEntryCreatedMessage(7, 1)); err != nil {
		t.Fatalf("missing entry should be acked, got %v", err)
	}
}

func TestHandleMessage_AppendFailure(t *testing.T) {
	store := newFakeStore(1)
	mirror := &fakeMirror{appendErr: errors.New("quota exceeded")}
	w := NewSyncWorker(store, mirror, 10)

	err := w.HandleMessage(context.Background(), amqp.NewEntryCreatedMessage(1, 1))
	if err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	if store.status(1) != storage.SyncError {
		t.Fatalf("status = %s, want error", store.status(1))
	}
}

func TestHandleMessage_Deleted(t *testing.T) {
	tests := []struct {
		name      string
		deleteErr error
		wantErr   bool
	}{
		{"deleted", nil, false},
		{"already gone", sheets.ErrNotFound, false},
		{"sheets failure", errors.New("503"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mirror := &fakeMirror{deleteErr: tt.deleteErr}
			w := NewSyncWorker(newFakeStore(), mirror, 10)
			err := w.HandleMessage(context.Background(), amqp.NewEntryDeletedMessage(42))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.deleteErr == nil && (len(mirror.deleted) != 1 || mirror.deleted[0] != "42") {
				t.Fatalf("deleted = %v", mirror.deleted)
			}
		})
	}
}

func TestProcessPending(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(1, 2, 3)
	store.setStatus(2, storage.SyncDone)
	mirror := &fakeMirror{}
	w := NewSyncWorker(store, mirror, 10)

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatal(err)
	}
	if len(mirror.appended) != 2 {
		t.Fatalf("appended %d rows, want 2", len(mirror.appended))
	}
	for _, id := range []int64{1, 2, 3} {
		if store.status(id) != storage.SyncDone {
			t.Fatalf("entry %d status = %s", id, store.status(id))
		}
	}
}

func TestStartupSyncCheck_UsesLargerBatch(t *testing.T) {
	ids := make([]int64, 12)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	store := newFakeStore(ids...)
	mirror := &fakeMirror{}
	w := NewSyncWorker(store, mirror, 2)

	if err := w.StartupSyncCheck(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(mirror.appended) != 10 {
		t.Fatalf("appended %d rows, want 10", len(mirror.appended))
	}
}

func TestSyncRates(t *testing.T) {
	store := newFakeStore()
	mirror := &fakeMirror{rates: map[string]decimal.Decimal{
		"JPY": decimal.NewFromInt(1),
		"USD": decimal.RequireFromString("151.2"),
	}}
	w := NewSyncWorker(store, mirror, 10)
	if err := w.SyncRates(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !store.rates["USD"].Equal(decimal.RequireFromString("151.2")) {
		t.Fatalf("rates = %v", store.rates)
	}
}

func TestSweeper_Lifecycle(t *testing.T) {
	store := newFakeStore(1)
	mirror := &fakeMirror{}
	s := NewSweeper(NewSyncWorker(store, mirror, 10), SweeperConfig{PendingInterval: 10 * time.Millisecond})

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(ctx); err == nil {
		t.Fatal("second Start should fail")
	}

	deadline := time.Now().Add(2 * time.Second)
	for store.status(1) != storage.SyncDone {
		if time.Now().After(deadline) {
			t.Fatal("pending entry was never swept")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if s.IsRunning() {
		t.Fatal("sweeper still running")
	}
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
