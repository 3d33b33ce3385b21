// Package export renders simulation results as JSON or CSV artifacts.
package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"civsandbox/internal/sim"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", &Error{Format: Format(value), Reason: "unsupported format"}
}

// Error reports an export that produced nothing.
type Error struct {
	Format Format
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("export %s: %s", e.Format, e.Reason)
}

const csvHeader = "Year,Social Trust,Inequality,Economy"

// JSON renders the full result with two-space indentation.
func JSON(r *sim.Result) ([]byte, error) {
	if r == nil {
		return nil, &Error{Format: FormatJSON, Reason: "no result to export"}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, &Error{Format: FormatJSON, Reason: err.Error()}
	}
	return data, nil
}

// CSV renders the timeline, one row per point. Rows are joined by a single
// newline with none after the last row.
func CSV(r *sim.Result) ([]byte, error) {
	if r == nil {
		return nil, &Error{Format: FormatCSV, Reason: "no result to export"}
	}
	rows := make([]string, 0, len(r.Timeline)+1)
	rows = append(rows, csvHeader)
	for _, pt := range r.Timeline {
		rows = append(rows, strings.Join([]string{
			strconv.Itoa(pt.Year),
			formatFloat(pt.SocialTrust),
			formatFloat(pt.Inequality),
			formatFloat(pt.Economy),
		}, ","))
	}
	return []byte(strings.Join(rows, "\n")), nil
}

// Render dispatches on format.
func Render(format Format, r *sim.Result) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(r)
	case FormatCSV:
		return CSV(r)
	}
	return nil, &Error{Format: format, Reason: "unsupported format"}
}

func ContentType(format Format) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
