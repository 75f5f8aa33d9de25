// Package output renders aggregated groups as a tree table, CSV, JSON, YAML
// or an xlsx workbook.
package output

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RexQian/kubectl-view-allocations/pkg/aggregate"
	"github.com/samber/lo"
)

// ErrUnsupportedFormat is returned for an unknown output format
var ErrUnsupportedFormat = errors.New("unsupported output format")

type Format string

const (
	TableFormat Format = "table"
	CSVFormat   Format = "csv"
	JSONFormat  Format = "json"
	YAMLFormat  Format = "yaml"
	XLSXFormat  Format = "xlsx"
)

// AllFormats lists the supported formats, the first one is the default
var AllFormats = []Format{TableFormat, CSVFormat, JSONFormat, YAMLFormat, XLSXFormat}

// ParseFormat reads a format name, case insensitive
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(AllFormats, f) {
		return "", fmt.Errorf("%w %q, expected one of %v", ErrUnsupportedFormat, s, AllFormats)
	}
	return f, nil
}

type Options struct {
	Format          Format
	GroupBy         []aggregate.GroupBy // the dimensions the groups were built with
	ShowUtilization bool
	ShowZero        bool // table only
	Colors          bool // table only
	OutputFile      string
	Now             time.Time // report date, defaults to the current time
}

func (o Options) date() string {
	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	return now.UTC().Format(time.RFC3339)
}

// Render writes the groups to w in the requested format. An xlsx report is
// saved to OutputFile when it is set, otherwise written to w.
func Render(w io.Writer, groups []aggregate.Group, opts Options) error {
	switch opts.Format {
	case TableFormat, "":
		return renderTable(w, groups, opts)
	case CSVFormat:
		return renderCSV(w, groups, opts)
	case JSONFormat:
		return renderJSON(w, groups, opts)
	case YAMLFormat:
		return renderYAML(w, groups, opts)
	case XLSXFormat:
		return renderXLSX(w, groups, opts)
	default:
		return fmt.Errorf("%w %q", ErrUnsupportedFormat, opts.Format)
	}
}
