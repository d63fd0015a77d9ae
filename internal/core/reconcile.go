package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// APIRow is the row shape served by the transaction-listing endpoint.
type APIRow struct {
	ID            string              `json:"id"`
	Date          string              `json:"date"`
	Account       string              `json:"account"`
	Type          string              `json:"type"`
	CategoryName  string              `json:"category_name"`
	Category2     *string             `json:"category2,omitempty"`
	Category2Name *string             `json:"category2_name,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	Currency      string              `json:"currency"`
	Rate          decimal.NullDecimal `json:"rate"`
	JPYAmount     decimal.NullDecimal `json:"jpy_amount"`
	Segment       string              `json:"segment"`
	Memo          string              `json:"memo"`
}

// ReconcileAPIRow converts an API row. Upstream sometimes stores a category2
// value in category_name; when it resolves to a key the value moves to
// Category2 and Category1 is cleared. The reported jpy_amount is kept, and
// recomputed from amount and rate when missing.
func ReconcileAPIRow(a APIRow) TransactionRow {
	r := TransactionRow{
		ID:        a.ID,
		Account:   strings.TrimSpace(a.Account),
		Category1: strings.TrimSpace(a.CategoryName),
		Amount:    a.Amount,
		Currency:  a.Currency,
		Rate:      a.Rate,
		Memo:      a.Memo,
	}
	if code := NormalizeCurrency(a.Currency); code != "" {
		r.Currency = code
	}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(firstN(a.Date, 10))); err == nil {
		r.Date = d
	}
	if t, err := ParseEntryType(a.Type); err == nil {
		r.Type = t
	}
	if s, ok := ParseSegment(a.Segment); ok {
		r.Segment = s
	} else {
		r.Segment = Segment(a.Segment)
	}

	explicit := ""
	switch {
	case a.Category2Name != nil && *a.Category2Name != "":
		explicit = *a.Category2Name
	case a.Category2 != nil && *a.Category2 != "":
		explicit = *a.Category2
	}
	if explicit != "" {
		r.Category2 = explicit
		if key, ok := Normalize(explicit); ok {
			if _, isKey := FindByKey(Category2Key(explicit)); !isKey {
				r.Category2 = string(key)
			}
		}
	}
	if detected, ok := Normalize(a.CategoryName); ok {
		r.Category1 = ""
		if r.Category2 == "" {
			r.Category2 = string(detected)
		}
	}

	if a.JPYAmount.Valid {
		r.ConvertedAmountBase = a.JPYAmount.Decimal
	} else if converted, ok := ConvertToBase(a.Amount, r.Currency, a.Rate); ok {
		r.ConvertedAmountBase = converted
	}
	return r
}

// ToAPIRow is the inverse used when writing to the REST backend.
func ToAPIRow(r TransactionRow) APIRow {
	a := APIRow{
		ID:           r.ID,
		Date:         r.Date.Format("2006-01-02"),
		Account:      r.Account,
		Type:         r.Type.Label(),
		CategoryName: r.Category1,
		Amount:       r.Amount,
		Currency:     r.Currency,
		Rate:         r.Rate,
		JPYAmount:    decimal.NewNullDecimal(r.ConvertedAmountBase),
		Segment:      string(r.Segment),
		Memo:         r.Memo,
	}
	if r.Category2 != "" {
		c2 := r.Category2
		a.Category2 = &c2
	}
	return a
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
