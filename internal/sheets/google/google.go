package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"manager/internal/core"

	ports "manager/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configures the Sheets client. SpreadsheetID is required; one of
// CredentialsJSON or CredentialsFile must carry service account credentials.
type Options struct {
	SpreadsheetID   string
	SheetName       string // base name without year, defaults to "Receipts"
	CredentialsJSON string
	CredentialsFile string
}

// Client appends receipts to a bookkeeping spreadsheet. Rows live on a
// per-year tab named "<year> <base>".
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	receiptsBase  string
}

// Ensure interface conformance
var (
	_ ports.ReceiptWriter    = (*Client)(nil)
	_ ports.MonthTotalReader = (*Client)(nil)
)

// New creates a Sheets client from explicit options using Service Account
// credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Receipts"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		receiptsBase:  base,
	}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte

	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		path := strings.TrimSpace(opts.CredentialsFile)
		slog.InfoContext(ctx, "Reading credentials from file", "path", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// Append books a receipt on the tab for its creation year and returns the
// written range as the row reference.
func (c *Client) Append(ctx context.Context, r core.Receipt) (string, error) {
	if err := r.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	sheetName := c.receiptSheetName(created.Year())
	rng := fmt.Sprintf("%s!A:E", sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{receiptRow(r, created)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheetName, err)
	}

	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// receiptRow lays out a booked receipt as Month, Day, Category, Amount, Owner.
func receiptRow(r core.Receipt, created time.Time) []any {
	category := strings.TrimSpace(r.Category)
	if category == "" {
		category = "(uncategorized)"
	}
	return []any{
		int(created.Month()),
		created.Day(),
		category,
		r.Sum.Units(),
		r.OwnerID,
	}
}

// ReadMonthTotal scans the year tab and sums booked amounts for the month.
func (c *Client) ReadMonthTotal(ctx context.Context, year int, month int) (core.Money, error) {
	if c.svc == nil {
		return core.Money{}, errors.New("sheets service not initialized")
	}
	if month < 1 || month > 12 {
		return core.Money{}, fmt.Errorf("invalid month: %d", month)
	}

	sheetName := c.receiptSheetName(year)
	rng := fmt.Sprintf("%s!A:E", sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return core.Money{}, fmt.Errorf("read %s: %w", rng, err)
	}

	total := sumMonthRows(resp.Values, month)
	return core.Money{Cents: total}, nil
}

func (c *Client) receiptSheetName(year int) string {
	return yearPrefixedName(c.receiptsBase, year)
}
