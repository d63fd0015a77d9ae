package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/core"
	ports "assetboard/internal/sheets"
)

func entry(day int, seg core.Segment, amount int64) core.TransactionRow {
	return core.TransactionRow{
		Date:                time.Date(2024, 7, day, 0, 0, 0, 0, time.UTC),
		Account:             "現金",
		Type:                core.TypeOut,
		Category2:           string(core.PersonalExpense),
		Amount:              decimal.NewFromInt(amount),
		Currency:            "JPY",
		ConvertedAmountBase: decimal.NewFromInt(amount),
		Segment:             seg,
	}
}

func TestStore_CreateListDelete(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	a, err := s.CreateEntry(ctx, entry(10, core.SegmentPersonal, 300))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	b, err := s.CreateEntry(ctx, entry(2, core.SegmentCorporate, 100))
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids = %q, %q", a.ID, b.ID)
	}

	all, _ := s.ListEntries(ctx, ports.EntryQuery{})
	if len(all) != 2 || all[0].ID != b.ID {
		t.Fatalf("list not date ordered: %+v", all)
	}
	personal, _ := s.ListEntries(ctx, ports.EntryQuery{Year: 2024, Month: 7, Segment: core.SegmentPersonal})
	if len(personal) != 1 || personal[0].ID != a.ID {
		t.Fatalf("segment filter: %+v", personal)
	}

	all[0].Account = "mutated"
	again, _ := s.ListEntries(ctx, ports.EntryQuery{})
	if again[0].Account == "mutated" {
		t.Fatal("ListEntries leaked internal rows")
	}

	if err := s.DeleteEntry(ctx, a.ID); err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if err := s.DeleteEntry(ctx, a.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestStore_CreateRejectsInvalid(t *testing.T) {
	bad := entry(1, core.SegmentPersonal, 100)
	bad.Account = ""
	if _, err := New(nil).CreateEntry(context.Background(), bad); !errors.Is(err, core.ErrEmptyAccount) {
		t.Fatalf("err = %v, want ErrEmptyAccount", err)
	}
}

func TestStore_Rates(t *testing.T) {
	s := New(nil)
	s.SetRate("NTD", decimal.RequireFromString("4.7"))
	rates, err := s.Rates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !rates["JPY"].Equal(decimal.NewFromInt(1)) || !rates["NTD"].Equal(decimal.RequireFromString("4.7")) {
		t.Fatalf("rates = %v", rates)
	}
	rates["JPY"] = decimal.Zero
	fresh, _ := s.Rates(context.Background())
	if !fresh["JPY"].Equal(decimal.NewFromInt(1)) {
		t.Fatal("Rates leaked internal map")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	seed := "date,account_or_wallet,segment,type,category2,amount,currency,rate\n" +
		"2024-07-01,三井住友,corporate,IN,サイト収益,100000,JPY,\n" +
		"2024-07-02,Binance,personal_invest,OUT,,50,USDT,\n" +
		"2024-07-03,Wise,personal,OUT,,20,USD,150\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_entries.csv"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFromFiles(dir)
	rows, _ := s.ListEntries(context.Background(), ports.EntryQuery{})
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (one line lacks a rate)", len(rows))
	}
	if rows[0].Category2 != string(core.SiteRevenue) || rows[0].ID == "" {
		t.Errorf("first row = %+v", rows[0])
	}

	empty := NewFromFiles(filepath.Join(dir, "missing"))
	if rows, _ := empty.ListEntries(context.Background(), ports.EntryQuery{}); len(rows) != 0 {
		t.Fatalf("missing seed should give an empty store, got %d rows", len(rows))
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(day int) {
			defer wg.Done()
			if _, err := s.CreateEntry(context.Background(), entry(day, core.SegmentPersonal, 10)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	rows, _ := s.ListEntries(context.Background(), ports.EntryQuery{})
	if len(rows) != 20 {
		t.Fatalf("rows = %d, want 20", len(rows))
	}
}
