package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/SIMPLIKARG/TESTING/internal/platform/config"
)

// NewService builds a Sheets API client from service-account credentials.
func NewService(ctx context.Context, cfg config.SheetsConfig, opts ...option.ClientOption) (*sheetsapi.Service, error) {
	clientOpts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(cfg.CredentialsFile))
	case len(opts) == 0:
		return nil, errors.New("sheets: credentials are required")
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheetsapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return svc, nil
}

// ColumnLetter converts a 0-based column index into A1 notation ("A", "Z", "AA").
func ColumnLetter(col int) string {
	if col < 0 {
		return ""
	}
	var out []byte
	for n := col + 1; n > 0; n = (n - 1) / 26 {
		out = append([]byte{byte('A' + (n-1)%26)}, out...)
	}
	return string(out)
}

// Range quotes the sheet title and appends an A1 range.
func Range(sheet, a1 string) string {
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	if a1 == "" {
		return quoted
	}
	return quoted + "!" + a1
}
