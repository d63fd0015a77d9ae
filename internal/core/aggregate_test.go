package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func sampleRows() []TransactionRow {
	return []TransactionRow{
		{ID: "1", Date: day(2025, 4, 2), Account: "SBI証券", Type: TypeIn, Category2: string(InvestmentIncome), Amount: dec("100"), Currency: "USD", Rate: decimal.NewNullDecimal(dec("150")), ConvertedAmountBase: dec("15000"), Segment: SegmentPersonal, Memo: "配当"},
		{ID: "2", Date: day(2025, 4, 3), Account: "法人口座", Type: TypeOut, Category2: string(CorporateExpense), Amount: dec("5000"), Currency: "JPY", ConvertedAmountBase: dec("5000"), Segment: SegmentCorporate, Memo: "サーバー代"},
		{ID: "3", Date: day(2025, 4, 5), Account: "Binance", Type: TypeIn, Category1: "仮想通貨", Amount: dec("10"), Currency: "USDT", Rate: decimal.NewNullDecimal(dec("149.5")), ConvertedAmountBase: dec("1495"), Segment: SegmentPersonalInvest},
	}
}

func TestFilterRows(t *testing.T) {
	rows := sampleRows()
	cases := []struct {
		name string
		f    Filters
		want []string
	}{
		{"no filters", Filters{}, []string{"1", "2", "3"}},
		{"segment all", Filters{Segment: "all"}, []string{"1", "2", "3"}},
		{"segment code", Filters{Segment: "corporate"}, []string{"2"}},
		{"segment label", Filters{Segment: "個人資産"}, []string{"1"}},
		{"unknown segment", Filters{Segment: "nowhere"}, nil},
		{"category2 display", Filters{Category: "投資"}, []string{"1"}},
		{"category1", Filters{Category: "仮想"}, []string{"3"}},
		{"currency", Filters{Currency: "usd"}, []string{"1"}},
		{"currency alias", Filters{Currency: "円"}, []string{"2"}},
		{"search memo", Filters{Search: "サーバー"}, []string{"2"}},
		{"search account case-insensitive", Filters{Search: "binance"}, []string{"3"}},
		{"conjunctive", Filters{Segment: "personal", Search: "法人"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterRows(rows, tc.f)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d rows, want %v", len(got), tc.want)
			}
			for i, r := range got {
				if r.ID != tc.want[i] {
					t.Fatalf("row %d = %s, want %s", i, r.ID, tc.want[i])
				}
			}
		})
	}
}

func TestFilterRowsDoesNotMutate(t *testing.T) {
	rows := sampleRows()
	got := FilterRows(rows, Filters{Segment: "corporate"})
	got[0].Account = "changed"
	if rows[1].Account != "法人口座" {
		t.Fatalf("input row was mutated")
	}
}

func TestGroupBySegmentScenario(t *testing.T) {
	rows := []TransactionRow{
		ReconcileAPIRow(APIRow{Segment: "personal", CategoryName: "配当", Amount: dec("100"), Currency: "USD", JPYAmount: decimal.NewNullDecimal(dec("15000")), Type: "IN"}),
		ReconcileAPIRow(APIRow{Segment: "corporate", CategoryName: "法人支出", Amount: dec("50"), Currency: "USD", JPYAmount: decimal.NewNullDecimal(dec("5000")), Type: "OUT"}),
	}
	groups := GroupBySegment(FilterRows(rows, Filters{Segment: "all"}))
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Segment != SegmentCorporate || groups[1].Segment != SegmentPersonal {
		t.Fatalf("unexpected order: %s, %s", groups[0].Segment, groups[1].Segment)
	}
	if !groups[0].Total.Equal(dec("5000")) || !groups[1].Total.Equal(dec("15000")) {
		t.Fatalf("group totals %s, %s", groups[0].Total, groups[1].Total)
	}
	if !GrandTotal(groups).Equal(dec("20000")) {
		t.Fatalf("grand total %s", GrandTotal(groups))
	}
	if groups[0].Label != "法人資産" {
		t.Fatalf("label %q", groups[0].Label)
	}
}

func TestGroupBySegmentOmitsEmpty(t *testing.T) {
	groups := GroupBySegment(sampleRows())
	want := []Segment{SegmentCorporate, SegmentPersonal, SegmentPersonalInvest}
	if len(groups) != len(want) {
		t.Fatalf("got %d groups", len(groups))
	}
	for i, g := range groups {
		if g.Segment != want[i] {
			t.Fatalf("group %d = %s want %s", i, g.Segment, want[i])
		}
		if len(g.Rows) == 0 {
			t.Fatalf("group %s is empty", g.Segment)
		}
	}
}

func TestEmptyInput(t *testing.T) {
	if got := GroupBySegment(nil); len(got) != 0 {
		t.Fatalf("expected no groups, got %d", len(got))
	}
	if !SumConverted(nil).IsZero() {
		t.Fatalf("SumConverted(nil) should be zero")
	}
	if !SumConverted([]TransactionRow{}).IsZero() {
		t.Fatalf("SumConverted([]) should be zero")
	}
	if !GrandTotal(nil).IsZero() {
		t.Fatalf("GrandTotal(nil) should be zero")
	}
}

func TestPeriodDelta(t *testing.T) {
	cases := []struct {
		cur, prev string
		abs, pct  string
	}{
		{"100", "0", "100", "0"},
		{"150", "100", "50", "50"},
		{"50", "100", "-50", "-50"},
		{"0", "0", "0", "0"},
		{"-50", "-100", "50", "-50"},
		{"50", "-100", "150", "-150"},
		{"1", "3", "-2", "-66.67"},
	}
	for _, tc := range cases {
		d := PeriodDelta(dec(tc.cur), dec(tc.prev))
		if !d.AbsoluteDelta.Equal(dec(tc.abs)) || !d.PercentDelta.Equal(dec(tc.pct)) {
			t.Fatalf("PeriodDelta(%s,%s) = {%s %s} want {%s %s}", tc.cur, tc.prev, d.AbsoluteDelta, d.PercentDelta, tc.abs, tc.pct)
		}
	}
}
