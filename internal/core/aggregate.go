package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Filters select rows for the list pages. Empty fields match everything.
type Filters struct {
	Segment  string // code, label, or a wildcard ("", "all", "total")
	Category string // substring of category1 or category2 display text
	Currency string // code or wildcard
	Search   string // substring of account, categories or memo
}

// SegmentGroup is one segment's share of a filtered row list.
type SegmentGroup struct {
	Segment Segment
	Label   string
	Rows    []TransactionRow
	Total   decimal.Decimal
}

// Delta compares a period against the previous one.
type Delta struct {
	AbsoluteDelta decimal.Decimal
	PercentDelta  decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// IsWildcard reports whether a filter value means "no restriction".
func IsWildcard(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all", "total":
		return true
	}
	return false
}

// FilterRows returns the rows matching every filter. rows is not modified.
func FilterRows(rows []TransactionRow, f Filters) []TransactionRow {
	var segment Segment
	segmentOK := true
	if !IsWildcard(f.Segment) {
		segment, segmentOK = ParseSegment(f.Segment)
	}
	currency := ""
	if !IsWildcard(f.Currency) {
		if currency = NormalizeCurrency(f.Currency); currency == "" {
			currency = strings.ToUpper(strings.TrimSpace(f.Currency))
		}
	}
	category := strings.ToLower(strings.TrimSpace(f.Category))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]TransactionRow, 0, len(rows))
	if !segmentOK {
		return out
	}
	for _, r := range rows {
		if segment != "" && r.Segment != segment {
			continue
		}
		if currency != "" && NormalizeCurrency(r.Currency) != currency && r.Currency != currency {
			continue
		}
		if category != "" && !containsFold(category, r.Category1, r.Category2Display()) {
			continue
		}
		if search != "" && !containsFold(search, r.Account, r.Category1, r.Category2Display(), r.Memo) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// GroupBySegment splits rows by segment in the fixed business order. Segments
// without rows are left out.
func GroupBySegment(rows []TransactionRow) []SegmentGroup {
	buckets := make(map[Segment][]TransactionRow)
	for _, r := range rows {
		buckets[r.Segment] = append(buckets[r.Segment], r)
	}
	groups := make([]SegmentGroup, 0, len(buckets))
	for _, s := range segmentOrder {
		rs, ok := buckets[s]
		if !ok {
			continue
		}
		groups = append(groups, SegmentGroup{
			Segment: s,
			Label:   s.Label(),
			Rows:    rs,
			Total:   SumConverted(rs),
		})
	}
	return groups
}

// SumConverted totals ConvertedAmountBase.
func SumConverted(rows []TransactionRow) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.ConvertedAmountBase)
	}
	return sum
}

// GrandTotal sums every group's total.
func GrandTotal(groups []SegmentGroup) decimal.Decimal {
	sum := decimal.Zero
	for _, g := range groups {
		sum = sum.Add(g.Total)
	}
	return sum
}

// PeriodDelta compares current with previous. The percentage is taken against
// the signed previous value and is zero when previous is zero.
func PeriodDelta(current, previous decimal.Decimal) Delta {
	d := Delta{
		AbsoluteDelta: current.Sub(previous),
		PercentDelta:  decimal.Zero,
	}
	if previous.IsZero() {
		return d
	}
	d.PercentDelta = d.AbsoluteDelta.Div(previous).Mul(hundred).Round(2)
	return d
}
