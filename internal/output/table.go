package output

import (
	"fmt"
	"io"

	"github.com/RexQian/kubectl-view-allocations/pkg/aggregate"
	"github.com/RexQian/kubectl-view-allocations/pkg/models"
	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const absent = "__"

var (
	warnColors = text.Colors{text.FgYellow}
	okColors   = text.Colors{text.FgGreen}
)

func tableStyle() table.Style {
	style := table.StyleDefault
	style.Name = "allocations"
	style.Format.Header = text.FormatDefault
	style.Options = table.Options{
		DrawBorder:      false,
		SeparateColumns: false,
		SeparateFooter:  false,
		SeparateHeader:  true,
		SeparateRows:    false,
	}
	return style
}

func renderTable(w io.Writer, groups []aggregate.Group, opts Options) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(tableStyle())

	header := table.Row{"Resource"}
	if opts.ShowUtilization {
		header = append(header, "Utilization")
	}
	header = append(header, "Requested", "Limit", "Allocatable", "Free")
	tw.AppendHeader(header)

	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i := 2; i <= len(header); i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	for _, row := range BuildRows(groups, opts.ShowZero) {
		tw.AppendRow(tableRow(row, opts))
	}
	tw.Render()
	return nil
}

func tableRow(row Row, opts Options) table.Row {
	out := table.Row{row.Label()}
	t := row.Group.Totals
	if t == nil {
		// mixed kinds, nothing to sum
		for i := 1; i < 5; i++ {
			out = append(out, "")
		}
		if opts.ShowUtilization {
			out = append(out, "")
		}
		return out
	}

	cells := []string{}
	if opts.ShowUtilization {
		cells = append(cells, cell(t.Utilization, t.Allocatable))
	}
	cells = append(cells,
		cell(t.Requested, t.Allocatable),
		cell(t.Limit, t.Allocatable),
		cell(t.Allocatable, nil),
		cell(t.Free(), nil),
	)

	colors := rowColors(*t)
	for _, c := range cells {
		if opts.Colors {
			c = colors.Sprint(c)
		}
		out = append(out, c)
	}
	return out
}

// cell shows a quantity in its display scale, prefixed by its share of whole
// when whole is known and not zero
func cell(q, whole *qty.Qty) string {
	if q == nil {
		return absent
	}
	if whole != nil {
		if pct, ok := q.Percentage(*whole); ok {
			return fmt.Sprintf("(%.0f%%) %s", pct, q.String())
		}
	}
	return q.String()
}

// rowColors flags a row whose requests or usage exceed its limits, or whose
// requests or limits are missing
func rowColors(t models.QtyByQualifier) text.Colors {
	switch {
	case greater(t.Requested, t.Limit), greater(t.Utilization, t.Limit):
		return warnColors
	case empty(t.Requested), empty(t.Limit):
		return warnColors
	default:
		return okColors
	}
}

// greater orders absent quantities before any present one
func greater(a, b *qty.Qty) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return a.Cmp(*b) > 0
	}
}

func empty(q *qty.Qty) bool {
	return q == nil || q.IsZero()
}
