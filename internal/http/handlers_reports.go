package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"assetboard/internal/core"
	"assetboard/internal/export"
	applog "assetboard/internal/log"
	"assetboard/internal/sheets"
)

type reportGroup struct {
	Label string
	Total decimal.Decimal
	Rows  []entryRowView
}

type reportData struct {
	page
	State      ReportState
	Period     string
	Years      []int
	Months     []option
	Segments   []option
	Currencies []option
	Groups     []reportGroup
	GrandTotal decimal.Decimal
	Previous   decimal.Decimal
	Delta      core.Delta
	Totals     core.ReportTotal
	USDRate    decimal.Decimal
	Count      int
	CSVHref    string
	XLSXHref   string
}

type reportResult struct {
	rows     []core.TransactionRow
	previous []core.TransactionRow
}

// loadReport fetches the period and the one before it concurrently and
// applies the filters to both.
func (s *Server) loadReport(ctx context.Context, st ReportState) (reportResult, error) {
	var res reportResult
	prev := st.Previous()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.listRows(gctx, sheets.EntryQuery{Year: st.Year, Month: st.Month})
		res.rows = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.listRows(gctx, sheets.EntryQuery{Year: prev.Year, Month: prev.Month})
		res.previous = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return reportResult{}, err
	}
	res.rows = core.SortByDate(core.FilterRows(res.rows, st.Filters))
	res.previous = core.FilterRows(res.previous, prev.Filters)
	return res, nil
}

// reportRate picks the USD rate of the report's month, or of December for a
// whole year.
func (s *Server) reportRate(ctx context.Context, st ReportState) decimal.Decimal {
	month := st.Month
	if month == 0 {
		month = 12
	}
	return s.usdRate(ctx, st.Year, month)
}

func filterOptions(values []string, labels func(string) string, selected string) []option {
	out := []option{{Value: "", Label: "すべて", Selected: core.IsWildcard(selected)}}
	for _, v := range values {
		out = append(out, option{Value: v, Label: labels(v), Selected: v == selected})
	}
	return out
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := ParseReportState(r.URL.Query(), s.now())

	data := reportData{
		page:     newPage("レポート", "/reports"),
		State:    st,
		Period:   st.Period(),
		CSVHref:  "/reports/export.csv?" + st.Query().Encode(),
		XLSXHref: "/reports/export.xlsx?" + st.Query().Encode(),
	}
	for y := s.now().Year(); y >= s.now().Year()-5; y-- {
		data.Years = append(data.Years, y)
	}
	data.Months = []option{{Value: "", Label: "通年", Selected: st.Month == 0}}
	for m := 1; m <= 12; m++ {
		data.Months = append(data.Months, option{Value: strconv.Itoa(m), Label: strconv.Itoa(m) + "月", Selected: m == st.Month})
	}
	var segs []string
	for _, seg := range core.Segments() {
		segs = append(segs, string(seg))
	}
	data.Segments = filterOptions(segs, func(v string) string { return core.Segment(v).Label() }, st.Filters.Segment)
	data.Currencies = filterOptions(core.SupportedCurrencies(), func(v string) string { return v }, core.NormalizeCurrency(st.Filters.Currency))

	res, err := s.loadReport(ctx, st)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Report data error", applog.FieldError, err)
		data.Error = errorMessage(err)
	}

	groups := core.GroupBySegment(res.rows)
	for _, g := range groups {
		rg := reportGroup{Label: g.Label, Total: g.Total}
		for _, row := range g.Rows {
			rg.Rows = append(rg.Rows, toEntryRowView(row))
		}
		data.Groups = append(data.Groups, rg)
	}
	data.Count = len(res.rows)
	data.GrandTotal = core.GrandTotal(groups)
	data.Previous = core.SumConverted(res.previous)
	data.Delta = core.PeriodDelta(data.GrandTotal, data.Previous)
	data.USDRate = s.reportRate(ctx, st)
	data.Totals = core.ReportTotals(res.rows, data.USDRate)

	s.render(w, r, http.StatusOK, "reports.html", data)
}

// exportRows loads the filtered report rows or writes a 502.
func (s *Server) exportRows(w http.ResponseWriter, r *http.Request) (ReportState, []core.TransactionRow, bool) {
	ctx := r.Context()
	st := ParseReportState(r.URL.Query(), s.now())
	rows, err := s.listRows(ctx, sheets.EntryQuery{Year: st.Year, Month: st.Month})
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Export data error",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpExport)
		http.Error(w, errorMessage(err), http.StatusBadGateway)
		return st, nil, false
	}
	return st, core.SortByDate(core.FilterRows(rows, st.Filters)), true
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	st, rows, ok := s.exportRows(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "CSV export failed", applog.FieldError, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+st.Period()+`.csv"`)
	_, _ = buf.WriteTo(w)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldCount, len(rows),
		"format", "csv")
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	st, rows, ok := s.exportRows(w, r)
	if !ok {
		return
	}
	totals := core.ReportTotals(rows, s.reportRate(r.Context(), st))
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows, totals); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "XLSX export failed", applog.FieldError, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+st.Period()+`.xlsx"`)
	_, _ = buf.WriteTo(w)
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Report exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldCount, len(rows),
		"format", "xlsx")
}
