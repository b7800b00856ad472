package tracking

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// LoginTimeLayout is how login times are written to the sheet.
const LoginTimeLayout = "2006-01-02 15:04:05"

var sheetScopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive",
}

// RowAppender appends one row to the bottom of a worksheet.
type RowAppender interface {
	AppendRow(ctx context.Context, spreadsheetID, worksheet string, row []any) error
}

type sheetsAppender struct {
	srv *sheets.Service
}

// NewSheetsAppender authorizes a service account and returns an appender
// backed by the Sheets API.
func NewSheetsAppender(ctx context.Context, serviceAccountFile string) (RowAppender, error) {
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, sheetScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &sheetsAppender{srv: srv}, nil
}

func (a *sheetsAppender) AppendRow(ctx context.Context, spreadsheetID, worksheet string, row []any) error {
	_, err := a.srv.Spreadsheets.Values.
		Append(spreadsheetID, worksheet+"!A:B", &sheets.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row to %s: %w", worksheet, err)
	}
	return nil
}

// SheetsTracker writes [username, login time] rows to a worksheet.
type SheetsTracker struct {
	appender      RowAppender
	spreadsheetID string
	worksheet     string
}

func NewSheetsTracker(appender RowAppender, spreadsheetID, worksheet string) *SheetsTracker {
	return &SheetsTracker{appender: appender, spreadsheetID: spreadsheetID, worksheet: worksheet}
}

func (s *SheetsTracker) TrackLogin(ctx context.Context, username string, at time.Time) error {
	return s.appender.AppendRow(ctx, s.spreadsheetID, s.worksheet, LoginRow(username, at))
}

// LoginRow is the sheet row for a login, in local time.
func LoginRow(username string, at time.Time) []any {
	return []any{username, at.Local().Format(LoginTimeLayout)}
}
