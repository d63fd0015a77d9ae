package http

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"assetboard/internal/core"
)

// MonthState is a selected calendar month.
type MonthState struct {
	Year  int
	Month int
}

// ParseMonth reads "YYYY-MM". Anything else yields the month of now.
func ParseMonth(v string, now time.Time) MonthState {
	fallback := MonthState{Year: now.Year(), Month: int(now.Month())}
	t, err := time.Parse("2006-01", strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return MonthState{Year: t.Year(), Month: int(t.Month())}
}

func (m MonthState) String() string { return monthKey(m.Year, m.Month) }

// Start is the first instant of the month in UTC.
func (m MonthState) Start() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

func (m MonthState) Prev() MonthState { return monthOf(m.Start().AddDate(0, -1, 0)) }
func (m MonthState) Next() MonthState { return monthOf(m.Start().AddDate(0, 1, 0)) }

func monthOf(t time.Time) MonthState {
	return MonthState{Year: t.Year(), Month: int(t.Month())}
}

// DashboardState is the dashboard query: a view and the last month shown.
type DashboardState struct {
	View  core.View
	Month MonthState
}

func ParseDashboardState(q url.Values, now time.Time) DashboardState {
	return DashboardState{
		View:  core.ParseView(q.Get("view")),
		Month: ParseMonth(q.Get("month"), now),
	}
}

func (s DashboardState) Query() url.Values {
	q := url.Values{}
	q.Set("view", string(s.View))
	q.Set("month", s.Month.String())
	return q
}

// EntryState is the manual entry page query.
type EntryState struct {
	Month               MonthState
	Segment             string // code or wildcard
	ExcludeFundTransfer bool
}

func ParseEntryState(q url.Values, now time.Time) EntryState {
	st := EntryState{
		Month:               ParseMonth(q.Get("month"), now),
		ExcludeFundTransfer: parseBool(q.Get("exclude_transfer")),
	}
	if seg, ok := core.ParseSegment(q.Get("segment")); ok {
		st.Segment = string(seg)
	}
	return st
}

func (s EntryState) Query() url.Values {
	q := url.Values{}
	q.Set("month", s.Month.String())
	if s.Segment != "" {
		q.Set("segment", s.Segment)
	}
	if s.ExcludeFundTransfer {
		q.Set("exclude_transfer", "1")
	}
	return q
}

// ReportState is the report query. Month is zero for a whole year.
type ReportState struct {
	Year    int
	Month   int
	Filters core.Filters
}

func ParseReportState(q url.Values, now time.Time) ReportState {
	st := ReportState{Year: now.Year()}
	if y, err := strconv.Atoi(strings.TrimSpace(q.Get("year"))); err == nil && y >= 1900 && y <= 9999 {
		st.Year = y
	}
	if m, err := strconv.Atoi(strings.TrimSpace(q.Get("month"))); err == nil && m >= 1 && m <= 12 {
		st.Month = m
	}
	st.Filters = core.Filters{
		Segment:  sanitizeInput(q.Get("segment")),
		Category: sanitizeInput(q.Get("category")),
		Currency: sanitizeInput(q.Get("currency")),
		Search:   sanitizeInput(q.Get("q")),
	}
	return st
}

func (s ReportState) Query() url.Values {
	q := url.Values{}
	q.Set("year", strconv.Itoa(s.Year))
	if s.Month != 0 {
		q.Set("month", strconv.Itoa(s.Month))
	}
	for key, v := range map[string]string{
		"segment":  s.Filters.Segment,
		"category": s.Filters.Category,
		"currency": s.Filters.Currency,
		"q":        s.Filters.Search,
	} {
		if v != "" {
			q.Set(key, v)
		}
	}
	return q
}

// Period names the report period, e.g. "2024" or "2024-05".
func (s ReportState) Period() string {
	if s.Month == 0 {
		return strconv.Itoa(s.Year)
	}
	return monthKey(s.Year, s.Month)
}

// Previous returns the state of the preceding period with the same filters.
func (s ReportState) Previous() ReportState {
	prev := s
	if s.Month == 0 {
		prev.Year--
		return prev
	}
	m := MonthState{Year: s.Year, Month: s.Month}.Prev()
	prev.Year, prev.Month = m.Year, m.Month
	return prev
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
