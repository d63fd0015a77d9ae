package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FlowBucket aggregates one entry type.
type FlowBucket struct {
	Total      decimal.Decimal
	ByCategory map[string]decimal.Decimal // base currency
	ByCurrency map[string]decimal.Decimal // original currency amounts
}

// FlowSummary is the manual entry page header.
type FlowSummary struct {
	In       FlowBucket
	Out      FlowBucket
	Cashflow FlowBucket
	Balance  decimal.Decimal // In - Out
}

// ReportTotal holds the report page sums in the base currency and in USD.
type ReportTotal struct {
	InBase, OutBase, CashflowBase, NetBase decimal.Decimal
	InUSD, OutUSD, CashflowUSD, NetUSD     decimal.Decimal
}

// CategoryAmount is an amount aggregated under a name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// SegmentSummary is a segment's holdings broken down by category1.
type SegmentSummary struct {
	Segment    Segment
	Label      string
	Total      decimal.Decimal
	ByCategory []CategoryAmount
	Count      int
}

// MonthPoint is one month of a dashboard series.
type MonthPoint struct {
	Year  int
	Month time.Month
	In    decimal.Decimal
	Out   decimal.Decimal
	Total decimal.Decimal // In - Out
}

// View selects the segments shown on the dashboard.
type View string

const (
	ViewCorporate View = "corporate"
	ViewPersonal  View = "personal"
	ViewTotal     View = "total"
)

func newBucket() FlowBucket {
	return FlowBucket{
		Total:      decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal),
		ByCurrency: make(map[string]decimal.Decimal),
	}
}

func (b *FlowBucket) add(category, currency string, base, amount decimal.Decimal) {
	b.ByCategory[category] = b.ByCategory[category].Add(base)
	b.ByCurrency[currency] = b.ByCurrency[currency].Add(amount)
}

// SummarizeFlows totals rows per entry type. Cashflow rows add to the total
// when their category is IN and subtract when it is OUT.
func SummarizeFlows(rows []TransactionRow, excludeFundTransfer bool) FlowSummary {
	s := FlowSummary{In: newBucket(), Out: newBucket(), Cashflow: newBucket()}
	for _, r := range rows {
		if excludeFundTransfer && r.IsFundTransfer() {
			continue
		}
		switch r.Type {
		case TypeIn:
			s.In.Total = s.In.Total.Add(r.ConvertedAmountBase)
			s.In.add(summaryCategory(r), r.Currency, r.ConvertedAmountBase, r.Amount)
		case TypeOut:
			s.Out.Total = s.Out.Total.Add(r.ConvertedAmountBase)
			s.Out.add(summaryCategory(r), r.Currency, r.ConvertedAmountBase, r.Amount)
		case TypeCashflow:
			switch r.Category1 {
			case "IN":
				s.Cashflow.Total = s.Cashflow.Total.Add(r.ConvertedAmountBase)
			case "OUT":
				s.Cashflow.Total = s.Cashflow.Total.Sub(r.ConvertedAmountBase)
			}
			s.Cashflow.add(r.Category1, r.Currency, r.ConvertedAmountBase, r.Amount)
		}
	}
	s.Balance = s.In.Total.Sub(s.Out.Total)
	return s
}

func summaryCategory(r TransactionRow) string {
	if r.Category2 != "" {
		return r.Category2Display()
	}
	return r.Category1
}

// SortedCategories returns a bucket's categories by descending amount, ties
// by name.
func (b FlowBucket) SortedCategories() []CategoryAmount {
	return sortedAmounts(b.ByCategory)
}

// SortedCurrencies returns a bucket's currencies by descending amount.
func (b FlowBucket) SortedCurrencies() []CategoryAmount {
	return sortedAmounts(b.ByCurrency)
}

func sortedAmounts(m map[string]decimal.Decimal) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for k, v := range m {
		out = append(out, CategoryAmount{Name: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ReportTotals sums rows per type. USD values divide the base amount by
// usdRate and stay zero when the rate is not positive.
func ReportTotals(rows []TransactionRow, usdRate decimal.Decimal) ReportTotal {
	var t ReportTotal
	for _, r := range rows {
		switch r.Type {
		case TypeIn:
			t.InBase = t.InBase.Add(r.ConvertedAmountBase)
		case TypeOut:
			t.OutBase = t.OutBase.Add(r.ConvertedAmountBase)
		case TypeCashflow:
			t.CashflowBase = t.CashflowBase.Add(r.ConvertedAmountBase)
		}
	}
	t.NetBase = t.InBase.Sub(t.OutBase)
	if usdRate.IsPositive() {
		t.InUSD = t.InBase.Div(usdRate).Round(2)
		t.OutUSD = t.OutBase.Div(usdRate).Round(2)
		t.CashflowUSD = t.CashflowBase.Div(usdRate).Round(2)
		t.NetUSD = t.InUSD.Sub(t.OutUSD)
	}
	return t
}

// SortByDate returns a copy of rows ordered by ascending date. Rows on the
// same day keep their relative order.
func SortByDate(rows []TransactionRow) []TransactionRow {
	out := append([]TransactionRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// SummarizeSegments reports holdings per segment in display order. Every
// segment is present, empty ones with a zero total.
func SummarizeSegments(rows []TransactionRow) []SegmentSummary {
	out := make([]SegmentSummary, 0, len(segmentOrder))
	for _, seg := range segmentOrder {
		byCat := make(map[string]decimal.Decimal)
		sum := SegmentSummary{Segment: seg, Label: seg.Label(), Total: decimal.Zero}
		for _, r := range rows {
			if r.Segment != seg {
				continue
			}
			name := r.Category1
			if name == "" {
				name = summaryCategory(r)
			}
			byCat[name] = byCat[name].Add(r.ConvertedAmountBase)
			sum.Total = sum.Total.Add(r.ConvertedAmountBase)
			sum.Count++
		}
		sum.ByCategory = sortedAmounts(byCat)
		out = append(out, sum)
	}
	return out
}

// ParseView returns the dashboard view, defaulting to total.
func ParseView(v string) View {
	switch View(v) {
	case ViewCorporate, ViewPersonal:
		return View(v)
	}
	return ViewTotal
}

// Includes reports whether a segment contributes to the view.
func (v View) Includes(s Segment) bool {
	switch v {
	case ViewCorporate:
		return s == SegmentCorporate || s == SegmentCorporateInvest
	case ViewPersonal:
		return s == SegmentPersonal || s == SegmentPersonalInvest
	}
	return true
}

// MonthlySeries builds months points ending with the month of end. Each point
// holds the IN and OUT totals of the rows in view for that month.
func MonthlySeries(rows []TransactionRow, view View, end time.Time, months int) []MonthPoint {
	if months <= 0 {
		return nil
	}
	first := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	series := make([]MonthPoint, months)
	for i := range series {
		m := first.AddDate(0, i, 0)
		series[i] = MonthPoint{Year: m.Year(), Month: m.Month(), In: decimal.Zero, Out: decimal.Zero, Total: decimal.Zero}
	}
	for _, r := range rows {
		if !view.Includes(r.Segment) {
			continue
		}
		idx := (r.Date.Year()-first.Year())*12 + int(r.Date.Month()) - int(first.Month())
		if idx < 0 || idx >= months {
			continue
		}
		p := &series[idx]
		switch r.Type {
		case TypeIn:
			p.In = p.In.Add(r.ConvertedAmountBase)
		case TypeOut:
			p.Out = p.Out.Add(r.ConvertedAmountBase)
		}
	}
	for i := range series {
		series[i].Total = series[i].In.Sub(series[i].Out)
	}
	return series
}

// EffectiveMonth returns the index of the last point with a non-zero total,
// or the latest point when every month is empty. It returns -1 for an empty
// series.
func EffectiveMonth(series []MonthPoint) int {
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].Total.IsZero() {
			return i
		}
	}
	return len(series) - 1
}
