package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	FlowIn  Flow = "IN"
	FlowOut Flow = "OUT"

	TypeIn       EntryType = "IN"
	TypeOut      EntryType = "OUT"
	TypeCashflow EntryType = "CASHFLOW"

	SegmentCorporate       Segment = "corporate"
	SegmentPersonal        Segment = "personal"
	SegmentCorporateInvest Segment = "corporate_invest"
	SegmentPersonalInvest  Segment = "personal_invest"
)

// cashflowLabel is how the UI and imported files spell TypeCashflow.
const cashflowLabel = "キャッシュフロー"

type (
	// Flow is the direction of money movement for category2 classification.
	Flow string

	// EntryType is the ledger bucket of a row. CASHFLOW tracks transfers that
	// are neither income nor expense.
	EntryType string

	// Segment is one of the four business partitions.
	Segment string

	// TransactionRow is a single ledger line. Rows are values: edits build a
	// new row and nothing in this package mutates a row it was handed.
	TransactionRow struct {
		ID                  string
		Date                time.Time
		Account             string
		Type                EntryType
		Category1           string
		Category2           string // category2 key, or raw text when unresolved
		Amount              decimal.Decimal
		Currency            string
		Rate                decimal.NullDecimal
		ConvertedAmountBase decimal.Decimal
		Segment             Segment
		Memo                string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidType     = errors.New("invalid entry type")
	ErrInvalidSegment  = errors.New("invalid segment")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidRate     = errors.New("invalid rate")
	ErrEmptyAccount    = errors.New("empty account")
	ErrInvalidCategory = errors.New("invalid category")
)

// segmentOrder is the fixed business display order.
var segmentOrder = []Segment{
	SegmentCorporate,
	SegmentPersonal,
	SegmentCorporateInvest,
	SegmentPersonalInvest,
}

var segmentLabels = map[Segment]string{
	SegmentCorporate:       "法人資産",
	SegmentPersonal:        "個人資産",
	SegmentCorporateInvest: "法人投資",
	SegmentPersonalInvest:  "個人投資",
}

// Segments returns the segments in display order.
func Segments() []Segment {
	return append([]Segment(nil), segmentOrder...)
}

// Valid reports whether s is one of the four known segment codes.
func (s Segment) Valid() bool {
	_, ok := segmentLabels[s]
	return ok
}

// Label returns the display label, or the code itself when unknown.
func (s Segment) Label() string {
	if l, ok := segmentLabels[s]; ok {
		return l
	}
	return string(s)
}

// SegmentFromLabel maps a display label back to its code.
func SegmentFromLabel(label string) (Segment, bool) {
	label = strings.TrimSpace(label)
	for _, s := range segmentOrder {
		if segmentLabels[s] == label {
			return s, true
		}
	}
	return "", false
}

// ParseSegment accepts a segment code or its display label and rejects any
// other string.
func ParseSegment(v string) (Segment, bool) {
	v = strings.TrimSpace(v)
	if s := Segment(v); s.Valid() {
		return s, true
	}
	return SegmentFromLabel(v)
}

// ParseEntryType accepts IN, OUT, CASHFLOW (any case) or the cashflow label.
func ParseEntryType(v string) (EntryType, error) {
	v = strings.TrimSpace(v)
	if v == cashflowLabel {
		return TypeCashflow, nil
	}
	switch EntryType(strings.ToUpper(v)) {
	case TypeIn:
		return TypeIn, nil
	case TypeOut:
		return TypeOut, nil
	case TypeCashflow:
		return TypeCashflow, nil
	}
	return "", ErrInvalidType
}

// Flow returns the category2 flow for IN and OUT rows. Cashflow rows have no
// flow.
func (t EntryType) Flow() (Flow, bool) {
	switch t {
	case TypeIn:
		return FlowIn, true
	case TypeOut:
		return FlowOut, true
	}
	return "", false
}

// Label returns the user-facing spelling of the type.
func (t EntryType) Label() string {
	if t == TypeCashflow {
		return cashflowLabel
	}
	return string(t)
}

// Validate checks the row is complete enough to be stored.
func (r TransactionRow) Validate() error {
	if r.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(r.Account) == "" {
		return ErrEmptyAccount
	}
	switch r.Type {
	case TypeIn, TypeOut, TypeCashflow:
	default:
		return ErrInvalidType
	}
	if !r.Segment.Valid() {
		return ErrInvalidSegment
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if NormalizeCurrency(r.Currency) == "" {
		return ErrInvalidCurrency
	}
	if r.Rate.Valid && !r.Rate.Decimal.IsPositive() {
		return ErrInvalidRate
	}
	if flow, ok := r.Type.Flow(); ok && r.Category2 != "" {
		if _, known := FindByKey(Category2Key(r.Category2)); known && !IsValidPair(flow, Category2Key(r.Category2)) {
			return ErrInvalidCategory
		}
	}
	return nil
}

// Category2Display returns the category2 display text, falling back to the
// raw value.
func (r TransactionRow) Category2Display() string {
	if r.Category2 == "" {
		return ""
	}
	return DisplayName(Category2Key(r.Category2))
}

// IsFundTransfer reports whether the row is classified as fund_transfer.
func (r TransactionRow) IsFundTransfer() bool {
	return Category2Key(r.Category2) == FundTransfer
}

// Category1Options lists the asset types offered by the entry form.
func Category1Options() []string {
	return []string{"現金", "銀行口座", "仮想通貨", "社債", "不動産", "株式", "定期預金", "事業投資"}
}

// CashflowCategories lists the categories allowed on CASHFLOW rows.
func CashflowCategories() []string {
	return []string{"IN", "OUT", "その他"}
}
