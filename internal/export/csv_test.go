package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"assetboard/internal/core"
)

func sampleRows() []core.TransactionRow {
	return []core.TransactionRow{
		{
			ID:                  "1",
			Date:                time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			Account:             "みずほ, 本店",
			Type:                core.TypeIn,
			Category2:           string(core.SiteRevenue),
			Amount:              decimal.NewFromInt(120000),
			Currency:            "JPY",
			Rate:                decimal.NewNullDecimal(decimal.NewFromInt(1)),
			ConvertedAmountBase: decimal.NewFromInt(120000),
			Segment:             core.SegmentCorporate,
			Memo:                `6月分 "A"`,
		},
		{
			ID:                  "2",
			Date:                time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
			Account:             "Binance",
			Type:                core.TypeOut,
			Category1:           "仮想通貨",
			Category2:           string(core.InvestmentExpense),
			Amount:              decimal.RequireFromString("100.5"),
			Currency:            "USDT",
			Rate:                decimal.NewNullDecimal(decimal.NewFromInt(150)),
			ConvertedAmountBase: decimal.NewFromInt(15075),
			Segment:             core.SegmentPersonalInvest,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\ufeff日付,口座・ウォレット名,区分,タイプ,") {
		t.Fatalf("missing BOM or header: %q", out[:40])
	}
	for _, want := range []string{
		`"みずほ, 本店"`,
		`"6月分 ""A"""`,
		"法人資産",
		"サイト収益",
		"個人投資",
		"100.5,USDT,150,15075",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "\n"); n != 3 {
		t.Errorf("lines = %d, want 3", n)
	}
}

func TestReadCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows()); err != nil {
		t.Fatal(err)
	}
	rows, lineErrs, err := ReadCSV(&buf)
	if err != nil || len(lineErrs) != 0 {
		t.Fatalf("ReadCSV: %v %v", err, lineErrs)
	}
	want := sampleRows()
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i, r := range rows {
		w := want[i]
		if !r.Date.Equal(w.Date) || r.Account != w.Account || r.Type != w.Type || r.Segment != w.Segment {
			t.Errorf("row %d: got %+v", i, r)
		}
		if r.Category2 != w.Category2 {
			t.Errorf("row %d category2 = %q, want %q", i, r.Category2, w.Category2)
		}
		if !r.ConvertedAmountBase.Equal(w.ConvertedAmountBase) {
			t.Errorf("row %d converted = %s, want %s", i, r.ConvertedAmountBase, w.ConvertedAmountBase)
		}
	}
}

func TestReadCSV_EnglishHeaderAndErrors(t *testing.T) {
	input := strings.Join([]string{
		"currency,amount,date,account_or_wallet,segment,type,category2,rate",
		"JPY,\"1,000\",2024/06/05,現金,personal,OUT,個人支出,",
		"USD,10,2024-06-06,Wise,corporate,IN,,",
		"JPY,500,not-a-date,現金,personal,OUT,,",
		"JPY,500,2024-06-07,現金,somewhere,OUT,,",
		",,,,,,,",
		"NTD,200,2024-06-08,台湾銀行,個人資産,キャッシュフロー,,4.7",
	}, "\n")

	rows, lineErrs, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2: %+v", len(rows), rows)
	}
	if rows[0].Category2 != string(core.PersonalExpense) || !rows[0].Amount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].Type != core.TypeCashflow || rows[1].Currency != "NTD" || !rows[1].ConvertedAmountBase.Equal(decimal.NewFromInt(940)) {
		t.Errorf("cashflow row = %+v", rows[1])
	}

	if len(lineErrs) != 3 {
		t.Fatalf("line errors = %v, want 3", lineErrs)
	}
	wantLines := []int{3, 4, 5}
	wantErrs := []error{core.ErrInvalidRate, core.ErrInvalidDate, core.ErrInvalidSegment}
	for i, le := range lineErrs {
		if le.Line != wantLines[i] || !errors.Is(le, wantErrs[i]) {
			t.Errorf("line error %d = %v, want line %d %v", i, le, wantLines[i], wantErrs[i])
		}
	}
}

func TestReadCSV_MissingHeader(t *testing.T) {
	tests := []string{"", "foo,bar\n1,2\n"}
	for _, in := range tests {
		if _, _, err := ReadCSV(strings.NewReader(in)); !errors.Is(err, ErrMissingHeader) {
			t.Errorf("ReadCSV(%q) err = %v, want ErrMissingHeader", in, err)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	rows := sampleRows()
	totals := core.ReportTotals(rows, decimal.NewFromInt(150))

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, rows, totals); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 2 || got[0] != ledgerSheet || got[1] != summarySheet {
		t.Fatalf("sheets = %v", got)
	}
	head, _ := f.GetCellValue(ledgerSheet, "A1")
	if head != "日付" {
		t.Errorf("A1 = %q", head)
	}
	account, _ := f.GetCellValue(ledgerSheet, "B3")
	if account != "Binance" {
		t.Errorf("B3 = %q", account)
	}
	label, _ := f.GetCellValue(summarySheet, "A2")
	if label != "IN" {
		t.Errorf("summary A2 = %q", label)
	}
}
