package http

import (
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"assetboard/internal/core"
	applog "assetboard/internal/log"
	"assetboard/internal/sheets"
)

// seriesMonths is the length of the dashboard series.
const seriesMonths = 12

type viewTab struct {
	Label  string
	Href   string
	Active bool
}

type seriesBar struct {
	Label    string
	In, Out  string
	Total    decimal.Decimal
	Width    int
	Current  bool
	Negative bool
}

type dashboardData struct {
	page
	State      DashboardState
	Views      []viewTab
	PrevHref   string
	NextHref   string
	Period     string
	Total      decimal.Decimal
	TotalUSD   decimal.Decimal
	USDRate    decimal.Decimal
	Delta      core.Delta
	HasDelta   bool
	Series     []seriesBar
	SeriesFrom string
}

func dashboardHref(st DashboardState) string {
	return "/?" + st.Query().Encode()
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := ParseDashboardState(r.URL.Query(), s.now())

	data := dashboardData{page: newPage("ダッシュボード", "/"), State: st}
	for _, v := range []struct {
		view  core.View
		label string
	}{
		{core.ViewCorporate, "法人"},
		{core.ViewPersonal, "個人"},
		{core.ViewTotal, "合計"},
	} {
		tab := st
		tab.View = v.view
		data.Views = append(data.Views, viewTab{Label: v.label, Href: dashboardHref(tab), Active: v.view == st.View})
	}
	prev, next := st, st
	prev.Month, next.Month = st.Month.Prev(), st.Month.Next()
	data.PrevHref, data.NextHref = dashboardHref(prev), dashboardHref(next)

	// The window may span two calendar years.
	end := st.Month.Start()
	first := monthOf(end.AddDate(0, -(seriesMonths - 1), 0))
	years := []int{first.Year}
	if first.Year != st.Month.Year {
		years = append(years, st.Month.Year)
	}
	parts := make([][]core.TransactionRow, len(years))
	g, gctx := errgroup.WithContext(ctx)
	for i, y := range years {
		g.Go(func() error {
			rows, err := s.listRows(gctx, sheets.EntryQuery{Year: y})
			parts[i] = rows
			return err
		})
	}
	var rows []core.TransactionRow
	if err := g.Wait(); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Dashboard data error", applog.FieldError, err)
		data.Error = errorMessage(err)
	} else {
		for _, p := range parts {
			rows = append(rows, p...)
		}
	}

	series := core.MonthlySeries(rows, st.View, end, seriesMonths)
	eff := core.EffectiveMonth(series)
	if eff >= 0 {
		cur := series[eff]
		data.Period = monthKey(cur.Year, int(cur.Month))
		data.Total = cur.Total
		if eff > 0 {
			data.Delta = core.PeriodDelta(cur.Total, series[eff-1].Total)
			data.HasDelta = true
		}
		data.USDRate = s.usdRate(ctx, cur.Year, int(cur.Month))
		data.TotalUSD = cur.Total.Div(data.USDRate).Round(2)
	}
	data.Series = seriesBars(series, eff)
	data.SeriesFrom = first.String()

	s.render(w, r, http.StatusOK, "dashboard.html", data)
}

// seriesBars scales month totals to bar widths relative to the largest
// absolute total.
func seriesBars(series []core.MonthPoint, current int) []seriesBar {
	peak := decimal.Zero
	for _, p := range series {
		if a := p.Total.Abs(); a.GreaterThan(peak) {
			peak = a
		}
	}
	out := make([]seriesBar, 0, len(series))
	for i, p := range series {
		bar := seriesBar{
			Label:    monthKey(p.Year, int(p.Month)),
			In:       FormatYen(p.In),
			Out:      FormatYen(p.Out),
			Total:    p.Total,
			Current:  i == current,
			Negative: p.Total.IsNegative(),
		}
		if peak.IsPositive() && !p.Total.IsZero() {
			bar.Width = int(p.Total.Abs().Mul(decimal.NewFromInt(100)).Div(peak).Round(0).IntPart())
			if bar.Width < 2 {
				bar.Width = 2
			}
		}
		out = append(out, bar)
	}
	return out
}

type holdingRow struct {
	Name   string
	Amount decimal.Decimal
}

type segmentCard struct {
	Segment  core.Segment
	Label    string
	Total    decimal.Decimal
	Count    int
	Holdings []holdingRow
	Href     string
}

type assetsData struct {
	page
	Segments   []segmentCard
	GrandTotal decimal.Decimal
}

// handleAssets shows holdings per segment, fetching each segment in parallel.
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := assetsData{page: newPage("資産", "/assets")}

	segments := core.Segments()
	summaries := make([]core.SegmentSummary, len(segments))
	for i, seg := range segments {
		summaries[i] = core.SegmentSummary{Segment: seg, Label: seg.Label()}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, seg := range segments {
		g.Go(func() error {
			rows, err := s.listRows(gctx, sheets.EntryQuery{Segment: seg})
			if err != nil {
				return err
			}
			for _, sum := range core.SummarizeSegments(rows) {
				if sum.Segment == seg {
					summaries[i] = sum
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Assets data error", applog.FieldError, err)
		data.Error = errorMessage(err)
		for i, seg := range segments {
			summaries[i] = core.SegmentSummary{Segment: seg, Label: seg.Label()}
		}
	}

	for _, sum := range summaries {
		card := segmentCard{
			Segment: sum.Segment,
			Label:   sum.Label,
			Total:   sum.Total,
			Count:   sum.Count,
			Href:    "/reports?" + url.Values{"segment": {string(sum.Segment)}}.Encode(),
		}
		for _, c := range sum.ByCategory {
			card.Holdings = append(card.Holdings, holdingRow{Name: c.Name, Amount: c.Amount})
		}
		data.GrandTotal = data.GrandTotal.Add(sum.Total)
		data.Segments = append(data.Segments, card)
	}

	s.render(w, r, http.StatusOK, "assets.html", data)
}
