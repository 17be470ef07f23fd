package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"financas/internal/core"
	ports "financas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab transactions are mirrored to.
const DefaultSheetName = "Transacoes"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// Ensure interface conformance
var _ ports.Exporter = (*Client)(nil)

// Config selects the spreadsheet and the service account credentials.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS
// Optional: GOOGLE_SHEET_NAME (default "Transacoes")
func NewFromEnv(ctx context.Context) (*Client, error) {
	credentialsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	return New(ctx, Config{
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:       os.Getenv("GOOGLE_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: credentialsFile,
	})
}

func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}

	if len(opts) == 0 {
		credentials, err := readCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(credentials),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", spreadsheetID, "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func readCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) rangeOf(cells string) string {
	return fmt.Sprintf("%s!%s", c.sheet, cells)
}

func (c *Client) readRows(ctx context.Context) ([][]any, error) {
	rng := c.rangeOf("A:H")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeRows(ctx context.Context, firstRow int, rows [][]any) error {
	rng := c.rangeOf(fmt.Sprintf("A%d:H%d", firstRow, firstRow+len(rows)-1))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// Upsert rewrites the row of t.ID in place or appends it after the last row.
func (c *Client) Upsert(ctx context.Context, t core.Transaction, version int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values, err := c.readRows(ctx)
	if err != nil {
		return err
	}

	row, stored, found := findRow(values, t.ID)
	switch {
	case found && stored > version:
		slog.InfoContext(ctx, "Skipping stale transaction version",
			"id", t.ID, "version", version, "stored_version", stored)
		return nil
	case !found && len(values) == 0:
		if err := c.writeRows(ctx, 1, [][]any{headerRow()}); err != nil {
			return err
		}
		row = 2
	case !found:
		row = len(values) + 1
	}

	if err := c.writeRows(ctx, row, [][]any{ports.Row(t, version)}); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Transaction mirrored to sheet",
		"id", t.ID,
		"version", version,
		"row", row,
		"updated", found)
	return nil
}

// Remove clears the row of id. Missing rows are not an error.
func (c *Client) Remove(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values, err := c.readRows(ctx)
	if err != nil {
		return err
	}
	row, _, found := findRow(values, id)
	if !found {
		slog.InfoContext(ctx, "Transaction not present in sheet", "id", id)
		return nil
	}

	rng := c.rangeOf(fmt.Sprintf("A%d:H%d", row, row))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Transaction removed from sheet", "id", id, "row", row)
	return nil
}

// ReplaceAll clears the sheet and writes the header plus one row per
// transaction, all at version 0.
func (c *Client) ReplaceAll(ctx context.Context, txs []core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := c.rangeOf("A:H")
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, headerRow())
	for _, t := range txs {
		rows = append(rows, ports.Row(t, 0))
	}
	if err := c.writeRows(ctx, 1, rows); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Sheet snapshot written", "rows", len(txs))
	return nil
}

func headerRow() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

// findRow locates id in column A and returns its 1-based sheet row and the
// version stored in column H.
func findRow(values [][]any, id int64) (int, int64, bool) {
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) == 0 {
			continue
		}
		rowID, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil || rowID != id {
			continue
		}
		var version int64
		if len(cols) >= 8 {
			version, _ = strconv.ParseInt(cols[7], 10, 64)
		}
		return i + 1, version, true
	}
	return 0, 0, false
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
