package output

import (
	"fmt"
	"io"

	"github.com/RexQian/kubectl-view-allocations/pkg/aggregate"
	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
)

// percent is a share of the allocatable, in percent
type percent float64

// report lays the groups out as flat records: one column per grouping
// dimension, numbers as float64, percentages as percent, nil when absent.
// Groups without totals are skipped.
func report(groups []aggregate.Group, opts Options) ([]string, [][]any) {
	header := []string{"Date", "Kind"}
	header = append(header, lo.Map(opts.GroupBy, func(g aggregate.GroupBy, _ int) string { return g.String() })...)
	if opts.ShowUtilization {
		header = append(header, "Utilization", "%Utilization")
	}
	header = append(header, "Requested", "%Requested", "Limit", "%Limit", "Allocatable", "Free")

	date := opts.date()
	var records [][]any
	for _, g := range groups {
		t := g.Totals
		if t == nil {
			continue
		}
		kind := ""
		if g.Depth() > 0 && g.Depth() <= len(opts.GroupBy) {
			kind = opts.GroupBy[g.Depth()-1].String()
		}
		record := []any{date, kind}
		for i := range opts.GroupBy {
			key := ""
			if i < len(g.Path) {
				key = g.Path[i]
			}
			record = append(record, key)
		}
		if opts.ShowUtilization {
			record = append(record, number(t.Utilization), share(t.Utilization, t.Allocatable))
		}
		record = append(record,
			number(t.Requested), share(t.Requested, t.Allocatable),
			number(t.Limit), share(t.Limit, t.Allocatable),
			number(t.Allocatable),
			number(t.Free()),
		)
		records = append(records, record)
	}
	return header, records
}

func number(q *qty.Qty) any {
	if q == nil {
		return nil
	}
	return q.Float64()
}

func share(q, whole *qty.Qty) any {
	if q == nil || whole == nil {
		return nil
	}
	pct, ok := q.Percentage(*whole)
	if !ok {
		return nil
	}
	return percent(pct)
}

func csvCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case percent:
		return fmt.Sprintf("%.0f%%", float64(v))
	case float64:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprint(v)
	}
}

func renderCSV(w io.Writer, groups []aggregate.Group, opts Options) error {
	header, records := report(groups, opts)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	// the header goes in as a plain row, styles never apply to it
	tw.AppendRow(lo.ToAnySlice(header))
	for _, record := range records {
		tw.AppendRow(lo.Map(record, func(v any, _ int) any { return csvCell(v) }))
	}
	tw.RenderCSV()
	return nil
}
