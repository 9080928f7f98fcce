// Package sheets stores games, submissions and winners in a Google Sheets
// workbook. Every call goes through the remote package's Caller.
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/okian/gamesdesk/internal/adapters/remote"
)

// Value input modes.
const (
	inputUserEntered = "USER_ENTERED"
	inputRaw         = "RAW"
)

// ValueRange is a block of cells addressed by an A1 range.
type ValueRange struct {
	Range  string
	Values [][]string
}

// Backend is the primitive values API the Store is built on.
type Backend interface {
	Get(ctx context.Context, rng string) ([][]string, error)
	Update(ctx context.Context, rng string, rows [][]string) error
	BatchUpdate(ctx context.Context, data []ValueRange) error
	Append(ctx context.Context, rng string, rows [][]string) error
	Clear(ctx context.Context, rng string) error
}

// APIBackend talks to the Sheets v4 values API.
type APIBackend struct {
	values        *gsheets.SpreadsheetsValuesService
	spreadsheetID string
	caller        *remote.Caller
}

// NewAPIBackend builds a backend for one spreadsheet. The caller guards
// every request; opts usually carry the authorized HTTP client.
func NewAPIBackend(ctx context.Context, spreadsheetID string, caller *remote.Caller, opts ...option.ClientOption) (*APIBackend, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &APIBackend{values: svc.Spreadsheets.Values, spreadsheetID: spreadsheetID, caller: caller}, nil
}

func (b *APIBackend) Get(ctx context.Context, rng string) ([][]string, error) {
	resp, err := remote.Call(ctx, b.caller, "sheets.get", func(ctx context.Context) (*gsheets.ValueRange, error) {
		return b.values.Get(b.spreadsheetID, rng).ValueRenderOption("FORMATTED_VALUE").Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}
	return toStrings(resp.Values), nil
}

func (b *APIBackend) Update(ctx context.Context, rng string, rows [][]string) error {
	return b.caller.Do(ctx, "sheets.update", func(ctx context.Context) error {
		_, err := b.values.Update(b.spreadsheetID, rng, &gsheets.ValueRange{Range: rng, Values: toCells(rows)}).
			ValueInputOption(inputUserEntered).Context(ctx).Do()
		return err
	})
}

func (b *APIBackend) BatchUpdate(ctx context.Context, data []ValueRange) error {
	if len(data) == 0 {
		return nil
	}
	req := &gsheets.BatchUpdateValuesRequest{ValueInputOption: inputUserEntered}
	for _, d := range data {
		req.Data = append(req.Data, &gsheets.ValueRange{Range: d.Range, Values: toCells(d.Values)})
	}
	return b.caller.Do(ctx, "sheets.batch_update", func(ctx context.Context) error {
		_, err := b.values.BatchUpdate(b.spreadsheetID, req).Context(ctx).Do()
		return err
	})
}

// Append writes reader-supplied text, so values are stored raw and never
// evaluated as formulas.
func (b *APIBackend) Append(ctx context.Context, rng string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	return b.caller.Do(ctx, "sheets.append", func(ctx context.Context) error {
		_, err := b.values.Append(b.spreadsheetID, rng, &gsheets.ValueRange{Values: toCells(rows)}).
			ValueInputOption(inputRaw).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
}

func (b *APIBackend) Clear(ctx context.Context, rng string) error {
	return b.caller.Do(ctx, "sheets.clear", func(ctx context.Context) error {
		_, err := b.values.Clear(b.spreadsheetID, rng, &gsheets.ClearValuesRequest{}).Context(ctx).Do()
		return err
	})
}

func toStrings(in [][]interface{}) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = make([]string, len(row))
		for j, v := range row {
			if v != nil {
				out[i][j] = fmt.Sprint(v)
			}
		}
	}
	return out
}

func toCells(in [][]string) [][]interface{} {
	out := make([][]interface{}, len(in))
	for i, row := range in {
		out[i] = make([]interface{}, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}
