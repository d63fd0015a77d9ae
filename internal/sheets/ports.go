package sheets

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"assetboard/internal/core"
)

// ErrNotFound is returned when an entry id is unknown to a backend.
var ErrNotFound = errors.New("entry not found")

// EntryQuery scopes a listing. Zero values mean "all".
type EntryQuery struct {
	Year    int
	Month   int // 1-12, requires Year
	Segment core.Segment
}

// Matches reports whether a row falls inside the query.
func (q EntryQuery) Matches(r core.TransactionRow) bool {
	if q.Year != 0 && r.Date.Year() != q.Year {
		return false
	}
	if q.Month != 0 && int(r.Date.Month()) != q.Month {
		return false
	}
	if q.Segment != "" && r.Segment != q.Segment {
		return false
	}
	return true
}

// Ports for outbound adapters.
type (
	// EntryWriter stores a new ledger entry and returns it with its id set.
	EntryWriter interface {
		CreateEntry(ctx context.Context, row core.TransactionRow) (core.TransactionRow, error)
	}

	// EntryDeleter removes an entry by id.
	EntryDeleter interface {
		DeleteEntry(ctx context.Context, id string) error
	}

	// EntryLister lists entries for a query.
	EntryLister interface {
		ListEntries(ctx context.Context, q EntryQuery) ([]core.TransactionRow, error)
	}

	// RateReader returns currency -> base currency rates.
	RateReader interface {
		Rates(ctx context.Context) (map[string]decimal.Decimal, error)
	}
)
