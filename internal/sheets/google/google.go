package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"assetboard/internal/core"
	ports "assetboard/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options locates the workbook and the credentials used to open it.
type Options struct {
	SpreadsheetID   string
	LedgerSheet     string // default "Ledger"
	RatesSheet      string // default "Rates"
	CredentialsJSON string
	CredentialsFile string
}

// Client reads and writes the ledger workbook. The ledger sheet holds one
// entry per row in ledgerColumns order below a header row; the rates sheet
// holds currency and JPY rate pairs.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	ledgerSheet   string
	ratesSheet    string

	mu            sync.Mutex
	ledgerSheetID *int64
}

// Ensure interface conformance
var (
	_ ports.EntryWriter  = (*Client)(nil)
	_ ports.EntryDeleter = (*Client)(nil)
	_ ports.EntryLister  = (*Client)(nil)
	_ ports.RateReader   = (*Client)(nil)
)

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if opts.LedgerSheet == "" {
		opts.LedgerSheet = "Ledger"
	}
	if opts.RatesSheet == "" {
		opts.RatesSheet = "Rates"
	}

	svc, err := newSheetsService(ctx, opts.CredentialsJSON, opts.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: opts.SpreadsheetID,
		ledgerSheet:   opts.LedgerSheet,
		ratesSheet:    opts.RatesSheet,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, credentialsJSON, credentialsFile string) (*gsheet.Service, error) {
	var (
		creds []byte
		err   error
	)
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		creds = []byte(credentialsJSON)
	case strings.TrimSpace(credentialsFile) != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", credentialsFile)
		creds, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) ledgerRange() string {
	return fmt.Sprintf("%s!A:%s", c.ledgerSheet, lastLedgerColumn)
}

// CreateEntry assigns a new id to the row and appends it.
func (c *Client) CreateEntry(ctx context.Context, row core.TransactionRow) (core.TransactionRow, error) {
	if err := row.Validate(); err != nil {
		return core.TransactionRow{}, fmt.Errorf("validation failed: %w", err)
	}
	row.ID = uuid.NewString()
	if err := c.AppendRow(ctx, row); err != nil {
		return core.TransactionRow{}, err
	}
	return row, nil
}

// AppendRow writes row as-is, keeping its id. The sync worker uses it to
// mirror entries whose id was assigned by SQLite.
func (c *Client) AppendRow(ctx context.Context, row core.TransactionRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	vr := &gsheet.ValueRange{Values: [][]any{ledgerValues(row)}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.ledgerRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.ledgerSheet, err)
	}
	slog.DebugContext(ctx, "Appended ledger row", "id", row.ID, "sheet", c.ledgerSheet)
	return nil
}

// ListEntries scans the ledger sheet. Rows that do not parse are skipped.
func (c *Client) ListEntries(ctx context.Context, q ports.EntryQuery) ([]core.TransactionRow, error) {
	values, err := c.readLedger(ctx)
	if err != nil {
		return nil, err
	}
	rows, skipped := parseLedger(values)
	if skipped > 0 {
		slog.DebugContext(ctx, "Skipped unparseable ledger rows", "count", skipped)
	}
	out := rows[:0]
	for _, r := range rows {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// DeleteEntry removes the ledger row carrying id.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	values, err := c.readLedger(ctx)
	if err != nil {
		return err
	}
	idx := findRowByID(values, id)
	if idx < 0 {
		return ports.ErrNotFound
	}
	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from %s: %w", idx+1, c.ledgerSheet, err)
	}
	slog.InfoContext(ctx, "Deleted ledger row", "id", id, "row", idx+1)
	return nil
}

// Rates reads the rates sheet. JPY is always present with rate 1.
func (c *Client) Rates(ctx context.Context) (map[string]decimal.Decimal, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:B", c.ratesSheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRates(resp.Values), nil
}

// Ping checks the workbook is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.sheetID(ctx)
	return err
}

func (c *Client) readLedger(ctx context.Context) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.ledgerRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// sheetID resolves and caches the numeric id of the ledger sheet, which
// structural edits such as row deletion require.
func (c *Client) sheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ledgerSheetID != nil {
		return *c.ledgerSheetID, nil
	}
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.ledgerSheet {
			id := sh.Properties.SheetId
			c.ledgerSheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.ledgerSheet)
}
