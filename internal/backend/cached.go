package backend

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/cache"
	"assetboard/internal/core"
	"assetboard/internal/sheets"
)

const ratesKey = "rates"

// Cached serves repeated listings and rate lookups from memory. Entry writes
// purge the row cache since one entry can appear under several queries.
type Cached struct {
	next  Backend
	rows  *cache.LRUCache[[]core.TransactionRow]
	rates *cache.LRUCache[map[string]decimal.Decimal]
	table *cache.LRUCache[map[string]map[string]decimal.Decimal]
}

var _ Backend = (*Cached)(nil)

func NewCached(next Backend, size int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		rows:  cache.NewLRUCache[[]core.TransactionRow](size, ttl),
		rates: cache.NewLRUCache[map[string]decimal.Decimal](1, ttl),
		table: cache.NewLRUCache[map[string]map[string]decimal.Decimal](8, ttl),
	}
}

// Caches exposes the underlying caches for periodic cleanup.
func (c *Cached) Caches() []cache.Cleaner {
	return []cache.Cleaner{c.rows, c.rates, c.table}
}

func queryKey(q sheets.EntryQuery) string {
	return fmt.Sprintf("%04d-%02d/%s", q.Year, q.Month, q.Segment)
}

func (c *Cached) ListEntries(ctx context.Context, q sheets.EntryQuery) ([]core.TransactionRow, error) {
	key := queryKey(q)
	if rows, ok := c.rows.Get(key); ok {
		return append([]core.TransactionRow(nil), rows...), nil
	}
	rows, err := c.next.ListEntries(ctx, q)
	if err != nil {
		return nil, err
	}
	c.rows.Set(key, append([]core.TransactionRow(nil), rows...))
	return rows, nil
}

func (c *Cached) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	if rates, ok := c.rates.Get(ratesKey); ok {
		return maps.Clone(rates), nil
	}
	rates, err := c.next.Rates(ctx)
	if err != nil {
		return nil, err
	}
	c.rates.Set(ratesKey, maps.Clone(rates))
	return rates, nil
}

func (c *Cached) CreateEntry(ctx context.Context, row core.TransactionRow) (core.TransactionRow, error) {
	saved, err := c.next.CreateEntry(ctx, row)
	if err == nil {
		c.rows.Purge()
	}
	return saved, err
}

func (c *Cached) DeleteEntry(ctx context.Context, id string) error {
	err := c.next.DeleteEntry(ctx, id)
	if err == nil {
		c.rows.Purge()
	}
	return err
}

// RateTabler is implemented by backends that keep monthly rates.
type RateTabler interface {
	RateTable(ctx context.Context, year int, symbols ...string) (map[string]map[string]decimal.Decimal, error)
}

// RateTable forwards to the wrapped backend, returning errors.ErrUnsupported
// when it has no monthly table.
func (c *Cached) RateTable(ctx context.Context, year int, symbols ...string) (map[string]map[string]decimal.Decimal, error) {
	rt, ok := c.next.(RateTabler)
	if !ok {
		return nil, errors.ErrUnsupported
	}
	key := fmt.Sprintf("%04d/%s", year, strings.Join(symbols, ","))
	if table, ok := c.table.Get(key); ok {
		return cloneTable(table), nil
	}
	table, err := rt.RateTable(ctx, year, symbols...)
	if err != nil {
		return nil, err
	}
	c.table.Set(key, cloneTable(table))
	return table, nil
}

func cloneTable(t map[string]map[string]decimal.Decimal) map[string]map[string]decimal.Decimal {
	out := make(map[string]map[string]decimal.Decimal, len(t))
	for ym, rates := range t {
		out[ym] = maps.Clone(rates)
	}
	return out
}

// Ping forwards to the wrapped backend when it supports readiness checks.
func (c *Cached) Ping(ctx context.Context) error {
	if p, ok := c.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
