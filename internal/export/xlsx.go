package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"assetboard/internal/core"
)

const (
	ledgerSheet  = "明細"
	summarySheet = "集計"
)

// WriteXLSX writes a workbook with the ledger rows and a totals sheet.
func WriteXLSX(w io.Writer, rows []core.TransactionRow, totals core.ReportTotal) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E5E7EB"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#9CA3AF", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	numStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
	if err != nil {
		return fmt.Errorf("number style: %w", err)
	}

	if err := writeRow(f, ledgerSheet, 1, toCells(Header)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Header), 1)
	if err := f.SetCellStyle(ledgerSheet, "A1", last, headStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range rows {
		rec := Record(r)
		cells := toCells(rec)
		// Numeric columns stay numeric so spreadsheet sums work.
		cells[colAmount] = r.Amount.InexactFloat64()
		cells[colConverted] = r.ConvertedAmountBase.InexactFloat64()
		if r.Rate.Valid {
			cells[colRate] = r.Rate.Decimal.InexactFloat64()
		}
		if err := writeRow(f, ledgerSheet, i+2, cells); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		from, _ := excelize.CoordinatesToCellName(colConverted+1, 2)
		to, _ := excelize.CoordinatesToCellName(colConverted+1, len(rows)+1)
		if err := f.SetCellStyle(ledgerSheet, from, to, numStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}
	if err := f.SetColWidth(ledgerSheet, "A", "K", 14); err != nil {
		return fmt.Errorf("column width: %w", err)
	}
	if err := f.SetPanes(ledgerSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := [][]any{
		{"", "円", "USD"},
		{"IN", totals.InBase.InexactFloat64(), totals.InUSD.InexactFloat64()},
		{"OUT", totals.OutBase.InexactFloat64(), totals.OutUSD.InexactFloat64()},
		{core.TypeCashflow.Label(), totals.CashflowBase.InexactFloat64(), totals.CashflowUSD.InexactFloat64()},
		{"純額", totals.NetBase.InexactFloat64(), totals.NetUSD.InexactFloat64()},
	}
	for i, cells := range summary {
		if err := writeRow(f, summarySheet, i+1, cells); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", "C1", headStyle); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	if err := f.SetCellStyle(summarySheet, "B2", "B5", numStyle); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
