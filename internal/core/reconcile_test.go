package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestReconcileAPIRow(t *testing.T) {
	cases := []struct {
		name          string
		in            APIRow
		wantCategory1 string
		wantCategory2 string
	}{
		{
			name:          "category2 alias in category_name moves over",
			in:            APIRow{CategoryName: "配当", Type: "IN"},
			wantCategory1: "",
			wantCategory2: string(InvestmentIncome),
		},
		{
			name:          "explicit category2_name wins over detection",
			in:            APIRow{CategoryName: "売上", Category2Name: strPtr("site_revenue"), Category2: strPtr("other_income"), Type: "IN"},
			wantCategory1: "",
			wantCategory2: string(SiteRevenue),
		},
		{
			name:          "category2 used when category2_name missing",
			in:            APIRow{CategoryName: "法人支出", Category2: strPtr("corporate_expense"), Type: "OUT"},
			wantCategory1: "",
			wantCategory2: string(CorporateExpense),
		},
		{
			name:          "display name in category2 resolves to key",
			in:            APIRow{CategoryName: "銀行口座", Category2: strPtr("生活費"), Type: "OUT"},
			wantCategory1: "銀行口座",
			wantCategory2: string(PersonalExpense),
		},
		{
			name:          "asset type stays in category1",
			in:            APIRow{CategoryName: "株式", Type: "IN"},
			wantCategory1: "株式",
			wantCategory2: "",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ReconcileAPIRow(tc.in)
			if got.Category1 != tc.wantCategory1 || got.Category2 != tc.wantCategory2 {
				t.Fatalf("got (%q,%q) want (%q,%q)", got.Category1, got.Category2, tc.wantCategory1, tc.wantCategory2)
			}
		})
	}
}

func TestReconcileAPIRowFromJSON(t *testing.T) {
	body := `{"id":"42","date":"2025-04-01T00:00:00Z","account":"Wise","type":"キャッシュフロー",
		"category_name":"IN","amount":"120.5","currency":"USD","rate":150,"jpy_amount":null,
		"segment":"法人投資","memo":"top-up"}`
	var a APIRow
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r := ReconcileAPIRow(a)
	if r.Type != TypeCashflow || r.Segment != SegmentCorporateInvest || r.Category1 != "IN" {
		t.Fatalf("unexpected row %+v", r)
	}
	if r.Date.Format("2006-01-02") != "2025-04-01" {
		t.Fatalf("date %v", r.Date)
	}
	if !r.ConvertedAmountBase.Equal(dec("18075")) {
		t.Fatalf("converted amount recomputed from rate: %s", r.ConvertedAmountBase)
	}
}

func TestReconcileKeepsReportedBaseAmount(t *testing.T) {
	r := ReconcileAPIRow(APIRow{
		Amount:    dec("10"),
		Currency:  "円",
		JPYAmount: decimal.NewNullDecimal(dec("10")),
	})
	if r.Currency != "JPY" || !r.ConvertedAmountBase.Equal(dec("10")) {
		t.Fatalf("got %s %s", r.Currency, r.ConvertedAmountBase)
	}
}

func TestToAPIRow(t *testing.T) {
	r := TransactionRow{
		ID: "1", Date: day(2025, 1, 2), Account: "a", Type: TypeCashflow, Category1: "OUT",
		Amount: dec("5"), Currency: "JPY", ConvertedAmountBase: dec("5"), Segment: SegmentPersonal,
	}
	a := ToAPIRow(r)
	if a.Type != "キャッシュフロー" || a.Date != "2025-01-02" || a.Category2 != nil || !a.JPYAmount.Valid {
		t.Fatalf("unexpected api row %+v", a)
	}
	back := ReconcileAPIRow(a)
	if back.Type != r.Type || back.Category1 != r.Category1 || !back.ConvertedAmountBase.Equal(r.ConvertedAmountBase) {
		t.Fatalf("round trip changed the row: %+v", back)
	}
}
