package google

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/core"
)

// Ledger sheet columns.
const (
	colID = iota
	colDate
	colAccount
	colSegment
	colType
	colCategory1
	colCategory2
	colMemo
	colAmount
	colCurrency
	colRate
	colConverted
	ledgerWidth
)

const lastLedgerColumn = "L"

var errShortRow = errors.New("short row")

// ledgerValues renders a row for the ledger sheet. Codes rather than labels
// are written so the sheet stays machine readable.
func ledgerValues(r core.TransactionRow) []any {
	rate := ""
	if r.Rate.Valid {
		rate = r.Rate.Decimal.String()
	}
	return []any{
		r.ID,
		r.Date.Format("2006-01-02"),
		r.Account,
		string(r.Segment),
		string(r.Type),
		r.Category1,
		r.Category2,
		r.Memo,
		r.Amount.String(),
		r.Currency,
		rate,
		r.ConvertedAmountBase.String(),
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseLedgerRow converts one sheet row. The converted amount in the sheet
// is trusted as written.
func parseLedgerRow(cols []string) (core.TransactionRow, error) {
	if len(cols) <= colAmount {
		return core.TransactionRow{}, errShortRow
	}
	var (
		r   core.TransactionRow
		err error
		ok  bool
	)
	r.ID = cols[colID]
	if r.Date, err = time.Parse("2006-01-02", cols[colDate]); err != nil {
		return r, core.ErrInvalidDate
	}
	r.Account = cols[colAccount]
	if r.Segment, ok = core.ParseSegment(cols[colSegment]); !ok {
		return r, core.ErrInvalidSegment
	}
	if r.Type, err = core.ParseEntryType(cols[colType]); err != nil {
		return r, err
	}
	r.Category1 = cols[colCategory1]
	r.Category2 = cols[colCategory2]
	r.Memo = cols[colMemo]
	if r.Amount, err = core.ParseAmount(cols[colAmount]); err != nil {
		return r, err
	}
	r.Currency = core.NormalizeCurrency(safeGet(cols, colCurrency))
	if r.Currency == "" {
		return r, core.ErrInvalidCurrency
	}
	if r.Rate, err = core.ParseRate(safeGet(cols, colRate)); err != nil {
		return r, err
	}
	if v := safeGet(cols, colConverted); v != "" {
		if r.ConvertedAmountBase, err = core.ParseAmount(v); err != nil {
			return r, err
		}
	} else if converted, ok := core.ConvertToBase(r.Amount, r.Currency, r.Rate); ok {
		r.ConvertedAmountBase = converted
	}
	return r, nil
}

// parseLedger parses every row, skipping the header and anything malformed.
func parseLedger(values [][]any) ([]core.TransactionRow, int) {
	var (
		out     []core.TransactionRow
		skipped int
	)
	for i, raw := range values {
		cols := toStrings(raw)
		r, err := parseLedgerRow(cols)
		if err != nil {
			if i > 0 {
				skipped++
			}
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

// findRowByID returns the zero-based sheet row holding id, or -1.
func findRowByID(values [][]any, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, raw := range values {
		if len(raw) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(raw[colID])) == id {
			return i
		}
	}
	return -1
}

// parseRates reads currency/rate pairs, ignoring a header and bad lines.
func parseRates(values [][]any) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{core.BaseCurrency: decimal.NewFromInt(1)}
	for _, raw := range values {
		cols := toStrings(raw)
		code := core.NormalizeCurrency(safeGet(cols, 0))
		if code == "" {
			continue
		}
		rate, err := core.ParseAmount(safeGet(cols, 1))
		if err != nil || !rate.IsPositive() {
			continue
		}
		out[code] = rate
	}
	return out
}
