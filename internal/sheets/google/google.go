package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"budget/internal/core"
	ports "budget/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// lastColumn is the rightmost column of both tables (five columns, A:E).
const lastColumn = "E"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheets        map[core.Table]string
}

// Ensure interface conformance
var (
	_ ports.RecordStore = (*Client)(nil)
	_ ports.Pinger      = (*Client)(nil)
)

// Options configures a Client. Sheet names default to the table names.
type Options struct {
	SpreadsheetID     string
	TransactionsSheet string
	BillsSheet        string

	// Service account credentials, inline or as a file path. When both are
	// empty GOOGLE_APPLICATION_CREDENTIALS is used.
	ServiceAccountJSON string
	ServiceAccountFile string
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional sheet names: GOOGLE_TRANSACTIONS_SHEET (default "Transactions"),
// GOOGLE_BILLS_SHEET (default "Bills").
func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, Options{
		SpreadsheetID:      os.Getenv("GOOGLE_SPREADSHEET_ID"),
		TransactionsSheet:  os.Getenv("GOOGLE_TRANSACTIONS_SHEET"),
		BillsSheet:         os.Getenv("GOOGLE_BILLS_SHEET"),
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	})
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", opts.SpreadsheetID)
	return NewWithService(svc, opts), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, opts Options) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheets: map[core.Table]string{
			core.TransactionsTable: orDefault(opts.TransactionsSheet, string(core.TransactionsTable)),
			core.BillsTable:        orDefault(opts.BillsSheet, string(core.BillsTable)),
		},
	}
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.ServiceAccountJSON)
	file := strings.TrimSpace(opts.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// SheetName returns the worksheet backing table.
func (c *Client) SheetName(table core.Table) string {
	return c.sheets[table]
}

// Load reads the whole worksheet unformatted, so dates do not depend on the
// spreadsheet locale. The first row is the header; the legacy lowercase
// schema is mapped onto canonical column names. An empty sheet,
// a header-only sheet or any read failure yields ports.ErrUnavailable.
func (c *Client) Load(ctx context.Context, table core.Table) ([]core.Row, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	sheet, ok := c.sheets[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}
	rng := a1Range(sheet, "A", lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %w", rng, ports.ErrUnavailable, err)
	}
	rows := parseValues(table, resp.Values)
	if len(rows) == 0 {
		return nil, fmt.Errorf("read %s: %w", rng, ports.ErrUnavailable)
	}
	return rows, nil
}

// Append writes rows after the last populated row in one API call. A sheet
// without a header gets the canonical header written ahead of the rows.
func (c *Client) Append(ctx context.Context, table core.Table, rows []core.Row) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	sheet, ok := c.sheets[table]
	if !ok {
		return fmt.Errorf("unknown table %q", table)
	}
	if len(rows) == 0 {
		return nil
	}

	values := make([][]any, 0, len(rows)+1)
	hasHeader, err := c.hasHeader(ctx, sheet)
	if err != nil {
		return err
	}
	if !hasHeader {
		values = append(values, toAny(table.Columns()))
	}
	for _, r := range rows {
		values = append(values, toAny(table.Values(r)))
	}

	rng := a1Range(sheet, "A", lastColumn)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Rows appended to sheet", "sheet", sheet, "rows", len(rows), "header_written", !hasHeader)
	return nil
}

func (c *Client) hasHeader(ctx context.Context, sheet string) (bool, error) {
	rng := a1Range(sheet, "A1", lastColumn+"1")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read %s: %w", rng, err)
	}
	return len(resp.Values) > 0 && len(resp.Values[0]) > 0, nil
}

// Ping fetches spreadsheet metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	return nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
