package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"gastos/internal/core"
	"gastos/internal/insights"
	ports "gastos/internal/sheets"
)

const DefaultSheetName = "Resumo"

var _ ports.SnapshotExporter = (*Exporter)(nil)

// rowAppender is the slice of the Sheets API the exporter needs.
type rowAppender interface {
	AppendRow(ctx context.Context, spreadsheetID, rng string, row []any) error
}

type sheetsAppender struct {
	svc *gsheet.Service
}

func (a sheetsAppender) AppendRow(ctx context.Context, spreadsheetID, rng string, row []any) error {
	vr := &gsheet.ValueRange{Values: [][]any{row}}
	_, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	return err
}

// Exporter appends one summary row per monthly snapshot to a yearly sheet.
type Exporter struct {
	api           rowAppender
	spreadsheetID string
	sheetBase     string
}

// NewFromEnv creates an Exporter using a service account.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Resumo"), prefixed with the snapshot year.
func NewFromEnv(ctx context.Context) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if base == "" {
		base = DefaultSheetName
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Exporter{api: sheetsAppender{svc: svc}, spreadsheetID: spreadsheetID, sheetBase: base}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials(ctx)
	if err != nil {
		return nil, err
	}
	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

func serviceAccountCredentials(ctx context.Context) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.DebugContext(ctx, "Reading service account credentials", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ExportSnapshot appends the snapshot's headline to "<year> <sheet>".
func (e *Exporter) ExportSnapshot(ctx context.Context, snap core.Snapshot, h insights.Headline) error {
	if e.api == nil {
		return errors.New("sheets service not initialized")
	}
	month, err := time.Parse("2006-01", snap.Period)
	if err != nil {
		return fmt.Errorf("snapshot period %q is not a month: %w", snap.Period, err)
	}
	sheet := yearPrefixedName(e.sheetBase, month.Year())
	rng := fmt.Sprintf("%s!A:J", sheet)

	if err := e.api.AppendRow(ctx, e.spreadsheetID, rng, snapshotRow(snap, h)); err != nil {
		return fmt.Errorf("append to %s: %w", sheet, err)
	}
	slog.DebugContext(ctx, "Snapshot exported", "sheet", sheet, "user_id", snap.UserID, "period", snap.Period)
	return nil
}

// snapshotRow lays out: period, user, policy, income, expenses, balance,
// savings rate, top category, insight count, created at.
func snapshotRow(snap core.Snapshot, h insights.Headline) []any {
	return []any{
		snap.Period,
		snap.UserID,
		snap.Policy,
		amount(h.TotalIncome),
		amount(h.TotalExpenses),
		amount(h.Balance),
		decimal.NewFromFloat(h.SavingsRate).StringFixed(1),
		h.TopCategory,
		h.InsightCount,
		snap.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func amount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
