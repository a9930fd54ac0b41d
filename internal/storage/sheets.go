package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsWriter replaces the contents of spreadsheet tabs with tables
type SheetsWriter struct {
	service *sheets.Service
}

// NewSheetsWriter authenticates with a service account credentials file
func NewSheetsWriter(ctx context.Context, credentialsFile string) (*SheetsWriter, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	oauthConfig, err := google.JWTConfigFromJSON(credentials, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	return NewSheetsWriterWithOptions(ctx, option.WithHTTPClient(oauthConfig.Client(ctx)))
}

// NewSheetsWriterWithOptions builds a writer from raw client options
func NewSheetsWriterWithOptions(ctx context.Context, opts ...option.ClientOption) (*SheetsWriter, error) {
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets client: %w", err)
	}
	return &SheetsWriter{service: service}, nil
}

// Write clears the named tab and fills it with the table, creating the tab
// when it does not exist yet. The header row is frozen.
func (w *SheetsWriter) Write(ctx context.Context, spreadsheetID, sheet string, t Table) error {
	sheetID, err := w.ensureSheet(ctx, spreadsheetID, sheet)
	if err != nil {
		return err
	}

	_, err = w.service.Spreadsheets.Values.Clear(spreadsheetID, a1Range(sheet, ""), &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to clear sheet %s: %w", sheet, err)
	}

	valueRange := &sheets.ValueRange{
		Values: t.Values(),
	}
	_, err = w.service.Spreadsheets.Values.Update(spreadsheetID, a1Range(sheet, "A1"), valueRange).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to update sheet %s: %w", sheet, err)
	}

	freeze := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: sheetID,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 1,
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
		},
	}
	if _, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, freeze).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to freeze header of %s: %w", sheet, err)
	}
	return nil
}

func (w *SheetsWriter) ensureSheet(ctx context.Context, spreadsheetID, title string) (int64, error) {
	spreadsheet, err := w.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to get spreadsheet: %w", err)
	}
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}

	add := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}}},
		},
	}
	resp, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, add).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to add sheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("unable to add sheet %s: empty reply", title)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// a1Range quotes the tab name so spaces, '!' and apostrophes survive A1 notation
func a1Range(sheet, cells string) string {
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if cells == "" {
		return quoted
	}
	return quoted + "!" + cells
}
