// Package export writes ledger rows to CSV and XLSX and reads them back from
// CSV uploads.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"assetboard/internal/core"
)

const (
	bom        = "\ufeff"
	dateLayout = "2006-01-02"
)

// Header is the column order of exported files.
var Header = []string{
	"日付", "口座・ウォレット名", "区分", "タイプ", "カテゴリ", "カテゴリ2",
	"内容", "金額", "通貨", "レート", "円換算金額",
}

// HeaderEnglish names the same columns for machine-made files.
var HeaderEnglish = []string{
	"date", "account_or_wallet", "segment", "type", "category1", "category2",
	"description", "amount", "currency", "rate", "converted_amount",
}

const (
	colDate = iota
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
	numColumns
)

// LineError reports a CSV line that could not become a row.
type LineError struct {
	Line int
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }

var ErrMissingHeader = errors.New("missing or unknown header")

// Record renders a row in Header order.
func Record(r core.TransactionRow) []string {
	rate := ""
	if r.Rate.Valid {
		rate = r.Rate.Decimal.String()
	}
	return []string{
		r.Date.Format(dateLayout),
		r.Account,
		r.Segment.Label(),
		r.Type.Label(),
		r.Category1,
		r.Category2Display(),
		r.Memo,
		r.Amount.String(),
		r.Currency,
		rate,
		r.ConvertedAmountBase.String(),
	}
}

// WriteCSV writes a UTF-8 BOM, the Japanese header and one record per row.
func WriteCSV(w io.Writer, rows []core.TransactionRow) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(bw)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(Record(r)); err != nil {
			return fmt.Errorf("write row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadCSV parses a file written by WriteCSV or any CSV carrying either
// header. Columns may appear in any order. Lines that fail to parse are
// reported in the returned LineErrors and skipped; the error result is
// reserved for unreadable input.
func ReadCSV(r io.Reader) ([]core.TransactionRow, []LineError, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(bom)); err == nil && string(lead) == bom {
		br.Discard(len(bom))
	}
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	head, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrMissingHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index, err := columnIndex(head)
	if err != nil {
		return nil, nil, err
	}

	var (
		rows []core.TransactionRow
		errs []LineError
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				errs = append(errs, LineError{Line: perr.Line, Err: perr.Err})
				continue
			}
			return rows, errs, fmt.Errorf("read csv: %w", err)
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)
		row, err := parseRecord(rec, index)
		if err != nil {
			errs = append(errs, LineError{Line: line, Err: err})
			continue
		}
		rows = append(rows, row)
	}
	return rows, errs, nil
}

func columnIndex(head []string) ([numColumns]int, error) {
	var idx [numColumns]int
	for i := range idx {
		idx[i] = -1
	}
	for pos, name := range head {
		name = strings.TrimSpace(strings.TrimPrefix(name, bom))
		for col := 0; col < numColumns; col++ {
			if name == Header[col] || strings.EqualFold(name, HeaderEnglish[col]) {
				idx[col] = pos
			}
		}
	}
	for _, col := range []int{colDate, colAccount, colSegment, colType, colAmount, colCurrency} {
		if idx[col] < 0 {
			return idx, fmt.Errorf("%w: %s column not found", ErrMissingHeader, HeaderEnglish[col])
		}
	}
	return idx, nil
}

func field(rec []string, idx [numColumns]int, col int) string {
	if p := idx[col]; p >= 0 && p < len(rec) {
		return strings.TrimSpace(rec[p])
	}
	return ""
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{dateLayout, "2006/01/02", "2006/1/2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, core.ErrInvalidDate
}

func parseRecord(rec []string, idx [numColumns]int) (core.TransactionRow, error) {
	var (
		r   core.TransactionRow
		err error
		ok  bool
	)
	if r.Date, err = parseDate(field(rec, idx, colDate)); err != nil {
		return r, err
	}
	r.Account = field(rec, idx, colAccount)
	if r.Segment, ok = core.ParseSegment(field(rec, idx, colSegment)); !ok {
		return r, fmt.Errorf("%w: %q", core.ErrInvalidSegment, field(rec, idx, colSegment))
	}
	if r.Type, err = core.ParseEntryType(field(rec, idx, colType)); err != nil {
		return r, fmt.Errorf("%w: %q", err, field(rec, idx, colType))
	}
	r.Category1 = field(rec, idx, colCategory1)
	if c2 := field(rec, idx, colCategory2); c2 != "" {
		r.Category2 = c2
		if _, isKey := core.FindByKey(core.Category2Key(c2)); !isKey {
			if key, ok := core.Normalize(c2); ok {
				r.Category2 = string(key)
			}
		}
	}
	r.Memo = field(rec, idx, colMemo)
	if r.Amount, err = core.ParseAmount(field(rec, idx, colAmount)); err != nil {
		return r, err
	}
	r.Currency = field(rec, idx, colCurrency)
	if r.Rate, err = core.ParseRate(field(rec, idx, colRate)); err != nil {
		return r, err
	}
	return core.NewRow(r)
}
