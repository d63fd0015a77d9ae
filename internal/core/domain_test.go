package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseSegment(t *testing.T) {
	cases := []struct {
		in   string
		want Segment
		ok   bool
	}{
		{"corporate", SegmentCorporate, true},
		{"personal_invest", SegmentPersonalInvest, true},
		{"法人資産", SegmentCorporate, true},
		{" 個人投資 ", SegmentPersonalInvest, true},
		{"法人投資", SegmentCorporateInvest, true},
		{"Corporate", "", false},
		{"total", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseSegment(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%q: got (%q,%v) want (%q,%v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSegmentLabelRoundTrip(t *testing.T) {
	for _, s := range Segments() {
		back, ok := SegmentFromLabel(s.Label())
		if !ok || back != s {
			t.Fatalf("%s: label %q maps back to %q", s, s.Label(), back)
		}
	}
	if got := Segment("other").Label(); got != "other" {
		t.Fatalf("unknown segment label = %q", got)
	}
}

func TestParseEntryType(t *testing.T) {
	cases := []struct {
		in   string
		want EntryType
		ok   bool
	}{
		{"IN", TypeIn, true},
		{"out", TypeOut, true},
		{"CASHFLOW", TypeCashflow, true},
		{"キャッシュフロー", TypeCashflow, true},
		{"transfer", "", false},
	}
	for _, tc := range cases {
		got, err := ParseEntryType(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("%q: got %q err=%v", tc.in, got, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidType) {
			t.Fatalf("%q: expected ErrInvalidType, got %v", tc.in, err)
		}
	}
	if _, ok := TypeCashflow.Flow(); ok {
		t.Fatalf("cashflow must not have a flow")
	}
}

func TestRowValidate(t *testing.T) {
	good := TransactionRow{
		Date:      day(2025, 3, 1),
		Account:   "MUFG",
		Type:      TypeOut,
		Category2: string(PersonalExpense),
		Amount:    dec("1200"),
		Currency:  "JPY",
		Segment:   SegmentPersonal,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := func(mut func(*TransactionRow)) TransactionRow {
		r := good
		mut(&r)
		return r
	}
	cases := []struct {
		row  TransactionRow
		want error
	}{
		{bad(func(r *TransactionRow) { r.Date = time.Time{} }), ErrInvalidDate},
		{bad(func(r *TransactionRow) { r.Account = " " }), ErrEmptyAccount},
		{bad(func(r *TransactionRow) { r.Type = "X" }), ErrInvalidType},
		{bad(func(r *TransactionRow) { r.Segment = "x" }), ErrInvalidSegment},
		{bad(func(r *TransactionRow) { r.Amount = decimal.Zero }), ErrInvalidAmount},
		{bad(func(r *TransactionRow) { r.Currency = "GBP" }), ErrInvalidCurrency},
		{bad(func(r *TransactionRow) { r.Rate = decimal.NewNullDecimal(dec("-1")) }), ErrInvalidRate},
		{bad(func(r *TransactionRow) { r.Type = TypeIn }), ErrInvalidCategory},
	}
	for i, tc := range cases {
		if err := tc.row.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d: got %v want %v", i, err, tc.want)
		}
	}

	raw := bad(func(r *TransactionRow) { r.Type = TypeIn; r.Category2 = "legacy text" })
	if err := raw.Validate(); err != nil {
		t.Fatalf("unresolved category2 text should be accepted, got %v", err)
	}
}
