// Package export writes curve datasets for analysis outside the simulator:
// CSV and XLSX streams for download, and a SQLite sink that appends runs to
// a standalone file.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("export: unknown format")

// Format selects a dataset encoding.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts a format name or a file extension, case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Write encodes curve in format f.
func Write(w io.Writer, f Format, m *tensile.Model, curve tensile.Curve) error {
	switch f {
	case CSV:
		return WriteCSV(w, curve)
	case XLSX:
		return WriteXLSX(w, m, curve)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// header is shared by the tabular formats.
var header = []string{"strain", "stress_mpa", "phase"}
