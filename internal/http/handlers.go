package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/backend"
	"assetboard/internal/core"
	applog "assetboard/internal/log"
	"assetboard/internal/sheets"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).String(),
	})
}

// handleReady checks templates and the backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch p, ok := s.backend.(backend.Pinger); {
	case s.backend == nil:
		checks["backend"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	case !ok:
		checks["backend"] = "ok"
	default:
		if err := p.Ping(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.ActiveClients(),
		"status":         "ok",
	}
	checks["requests"] = s.tracer.GetMetrics().TotalRequests
	checks["suspicious_requests"] = s.detector.GetMetrics().SuspiciousRequests

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// listRows fetches rows with the request timeout applied.
func (s *Server) listRows(ctx context.Context, q sheets.EntryQuery) ([]core.TransactionRow, error) {
	if s.backend == nil {
		return nil, errors.New("no backend configured")
	}
	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	rows, err := s.backend.ListEntries(cctx, q)
	if err != nil {
		return nil, fmt.Errorf("list entries (year=%d, month=%d, segment=%s): %w", q.Year, q.Month, q.Segment, err)
	}
	applog.FromContext(ctx).DebugContext(ctx, "Entries listed",
		applog.FieldYear, q.Year,
		applog.FieldMonth, q.Month,
		applog.FieldCount, len(rows))
	return rows, nil
}

// usdRate resolves the JPY per USD rate for a month: the backend's monthly
// table first, then its current rates, then the configured fallback.
func (s *Server) usdRate(ctx context.Context, year, month int) decimal.Decimal {
	if s.backend == nil {
		return s.usdFallback
	}
	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	if rt, ok := s.backend.(backend.RateTabler); ok && month > 0 {
		table, err := rt.RateTable(cctx, year, "USD")
		switch {
		case err == nil:
			if v := table[monthKey(year, month)]["USD"]; v.IsPositive() {
				return v
			}
		case !errors.Is(err, errors.ErrUnsupported):
			applog.FromContext(ctx).WarnContext(ctx, "Rate table unavailable", applog.FieldError, err, applog.FieldYear, year)
		}
	}
	rates, err := s.backend.Rates(cctx)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Rates unavailable, using fallback", applog.FieldError, err)
		return s.usdFallback
	}
	if v := rates["USD"]; v.IsPositive() {
		return v
	}
	return s.usdFallback
}

// navItem is one entry of the top navigation.
type navItem struct {
	Href, Label string
	Active      bool
}

func navigation(active string) []navItem {
	items := []navItem{
		{Href: "/", Label: "ダッシュボード"},
		{Href: "/assets", Label: "資産"},
		{Href: "/manual-entry", Label: "手入力"},
		{Href: "/reports", Label: "レポート"},
		{Href: "/files", Label: "ファイル"},
		{Href: "/admin/categories", Label: "カテゴリ"},
	}
	for i := range items {
		items[i].Active = items[i].Href == active
	}
	return items
}

// page carries what the layout needs around every page body.
type page struct {
	Title string
	Nav   []navItem
	Error string
}

func newPage(title, active string) page {
	return page{Title: title, Nav: navigation(active)}
}
