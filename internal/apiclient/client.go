// Package apiclient talks to the external REST backend that owns the ledger
// when DATA_BACKEND=api.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"assetboard/internal/core"
	ports "assetboard/internal/sheets"
)

// maxConcurrentMonths bounds parallel month requests for year queries.
const maxConcurrentMonths = 4

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Summary mirrors the summary block of the listing endpoint.
type Summary struct {
	InJPY    decimal.Decimal `json:"in_jpy"`
	OutJPY   decimal.Decimal `json:"out_jpy"`
	TotalJPY decimal.Decimal `json:"total_jpy"`
}

type listResponse struct {
	Summary Summary       `json:"summary"`
	Rows    []core.APIRow `json:"rows"`
}

type ratesResponse struct {
	Base  string                                `json:"base"`
	Year  string                                `json:"year"`
	Mode  string                                `json:"mode"`
	Table map[string]map[string]decimal.Decimal `json:"table"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	now     func() time.Time
}

var (
	_ ports.EntryWriter  = (*Client)(nil)
	_ ports.EntryDeleter = (*Client)(nil)
	_ ports.EntryLister  = (*Client)(nil)
	_ ports.RateReader   = (*Client)(nil)
)

// New returns a client for baseURL. A zero timeout means 7 seconds.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 7 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "Backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode == http.StatusNotFound && method == http.MethodDelete {
		return ports.ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ListMonth fetches one month and its server-side summary.
func (c *Client) ListMonth(ctx context.Context, year, month int, segment core.Segment) ([]core.TransactionRow, Summary, error) {
	q := url.Values{}
	q.Set("month", fmt.Sprintf("%04d-%02d", year, month))
	q.Set("segment", segmentParam(segment))
	q.Set("currency", "ALL")
	q.Set("exclude_transfer", "false")

	var resp listResponse
	if err := c.do(ctx, http.MethodGet, "/api/manual-entry", q, nil, &resp); err != nil {
		return nil, Summary{}, err
	}
	rows := make([]core.TransactionRow, 0, len(resp.Rows))
	for _, a := range resp.Rows {
		rows = append(rows, core.ReconcileAPIRow(a))
	}
	return rows, resp.Summary, nil
}

// ListEntries implements sheets.EntryLister. Year queries without a month
// fetch the twelve months concurrently.
func (c *Client) ListEntries(ctx context.Context, q ports.EntryQuery) ([]core.TransactionRow, error) {
	if q.Year != 0 && q.Month != 0 {
		rows, _, err := c.ListMonth(ctx, q.Year, q.Month, q.Segment)
		return rows, err
	}
	if q.Year == 0 {
		var resp listResponse
		query := url.Values{}
		query.Set("segment", segmentParam(q.Segment))
		if err := c.do(ctx, http.MethodGet, "/api/manual-entry", query, nil, &resp); err != nil {
			return nil, err
		}
		rows := make([]core.TransactionRow, 0, len(resp.Rows))
		for _, a := range resp.Rows {
			rows = append(rows, core.ReconcileAPIRow(a))
		}
		return core.SortByDate(rows), nil
	}

	months := make([][]core.TransactionRow, 12)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentMonths)
	for m := 1; m <= 12; m++ {
		g.Go(func() error {
			rows, _, err := c.ListMonth(gctx, q.Year, m, q.Segment)
			if err != nil {
				return fmt.Errorf("month %d: %w", m, err)
			}
			months[m-1] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []core.TransactionRow
	for _, rows := range months {
		out = append(out, rows...)
	}
	return out, nil
}

// CreateEntry posts the row and returns the stored version.
func (c *Client) CreateEntry(ctx context.Context, row core.TransactionRow) (core.TransactionRow, error) {
	if err := row.Validate(); err != nil {
		return core.TransactionRow{}, err
	}
	var saved core.APIRow
	if err := c.do(ctx, http.MethodPost, "/api/manual-entry", nil, core.ToAPIRow(row), &saved); err != nil {
		return core.TransactionRow{}, err
	}
	return core.ReconcileAPIRow(saved), nil
}

// DeleteEntry implements sheets.EntryDeleter.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ports.ErrNotFound
	}
	return c.do(ctx, http.MethodDelete, "/api/manual-entry/"+url.PathEscape(id), nil, nil, nil)
}

// RateTable returns the monthly JPY rates of year keyed by "YYYY-MM".
func (c *Client) RateTable(ctx context.Context, year int, symbols ...string) (map[string]map[string]decimal.Decimal, error) {
	if len(symbols) == 0 {
		symbols = []string{"USD"}
	}
	q := url.Values{}
	q.Set("year", fmt.Sprint(year))
	q.Set("mode", "avg")
	q.Set("symbols", strings.Join(symbols, ","))

	var resp ratesResponse
	if err := c.do(ctx, http.MethodGet, "/api/rates", q, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Table == nil {
		return nil, errors.New("rates response without table")
	}
	return resp.Table, nil
}

// Rates implements sheets.RateReader with the latest month of the current
// year's table.
func (c *Client) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	table, err := c.RateTable(ctx, c.now().Year(), ratedCurrencies()...)
	if err != nil {
		return nil, err
	}
	return latestRates(table), nil
}

func ratedCurrencies() []string {
	var out []string
	for _, cur := range core.SupportedCurrencies() {
		if !core.IsBaseCurrency(cur) {
			out = append(out, cur)
		}
	}
	return out
}

// latestRates picks the most recent month holding each currency.
func latestRates(table map[string]map[string]decimal.Decimal) map[string]decimal.Decimal {
	months := make([]string, 0, len(table))
	for ym := range table {
		months = append(months, ym)
	}
	sort.Strings(months)

	out := map[string]decimal.Decimal{core.BaseCurrency: decimal.NewFromInt(1)}
	for _, ym := range months {
		for cur, rate := range table[ym] {
			if code := core.NormalizeCurrency(cur); code != "" && rate.IsPositive() {
				out[code] = rate
			}
		}
	}
	return out
}

func segmentParam(s core.Segment) string {
	if s == "" {
		return "total"
	}
	return string(s)
}
