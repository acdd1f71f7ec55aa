package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetScope = "https://www.googleapis.com/auth/spreadsheets"

// SheetConfig describes the shared spreadsheet and the service account
// allowed to write to it. Either CredentialsFile or the Email/PrivateKey
// pair must be set.
type SheetConfig struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	Email           string
	PrivateKey      string
}

// SheetStore mirrors appointments to a shared Google Sheet. It is the
// best-effort half of the dual write: its failures never fail a booking.
type SheetStore struct {
	svc           *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetStore authenticates against the Sheets API with a service
// account and returns a store bound to one spreadsheet.
func NewSheetStore(ctx context.Context, cfg SheetConfig) (*SheetStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("sheets: spreadsheet id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(spreadsheetScope))
	case cfg.Email != "" && cfg.PrivateKey != "":
		conf := &jwt.Config{
			Email:      cfg.Email,
			PrivateKey: []byte(normalizePrivateKey(cfg.PrivateKey)),
			Scopes:     []string{spreadsheetScope},
			TokenURL:   "https://oauth2.googleapis.com/token",
		}
		opts = append(opts, option.WithTokenSource(conf.TokenSource(ctx)))
	default:
		return nil, fmt.Errorf("sheets: no credentials configured")
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: service init: %w", err)
	}

	name := cfg.SheetName
	if name == "" {
		name = "Sheet1"
	}
	return &SheetStore{svc: svc, spreadsheetID: cfg.SpreadsheetID, sheetName: name}, nil
}

// AppendRow appends one appointment to the sheet using the same column
// order as the local log.
func (s *SheetStore) AppendRow(ctx context.Context, appt Appointment) error {
	row := appointmentRow(appt)
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}

	rng := fmt.Sprintf("%s!A:H", s.sheetName)
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, rng, &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append: %w", err)
	}
	return nil
}

// ScheduleColumn returns the raw values of the schedule column, header
// excluded. Callers decide what to do with values that do not parse.
func (s *SheetStore) ScheduleColumn(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!G2:G", s.sheetName)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read schedule column: %w", err)
	}

	out := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if v, ok := row[0].(string); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// normalizePrivateKey accepts keys pasted into env vars with literal
// "\n" sequences instead of real newlines.
func normalizePrivateKey(key string) string {
	if strings.Contains(key, "\n") {
		return key
	}
	return strings.ReplaceAll(key, `\n`, "\n")
}

// parseScheduleValues converts raw schedule strings into instants,
// skipping anything that does not parse as RFC 3339.
func parseScheduleValues(raw []string) []time.Time {
	var instants []time.Time
	for _, v := range raw {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			continue
		}
		instants = append(instants, t)
	}
	return instants
}
