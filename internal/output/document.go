package output

import (
	"encoding/json"
	"io"

	"github.com/RexQian/kubectl-view-allocations/pkg/aggregate"
	"github.com/RexQian/kubectl-view-allocations/pkg/models"
	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Entry is the document form of a group
type Entry struct {
	Path   []string               `json:"path" yaml:"path"`
	Kind   string                 `json:"kind,omitempty" yaml:"kind,omitempty"`
	Totals *models.QtyByQualifier `json:"totals,omitempty" yaml:"totals,omitempty"`
	Free   *qty.Qty               `json:"free,omitempty" yaml:"free,omitempty"`
}

func entries(groups []aggregate.Group, opts Options) []Entry {
	return lo.Map(groups, func(g aggregate.Group, _ int) Entry {
		e := Entry{Path: g.Path, Totals: g.Totals}
		if g.Depth() > 0 && g.Depth() <= len(opts.GroupBy) {
			e.Kind = opts.GroupBy[g.Depth()-1].String()
		}
		if g.Totals != nil {
			e.Free = g.Totals.Free()
		}
		return e
	})
}

func renderJSON(w io.Writer, groups []aggregate.Group, opts Options) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries(groups, opts))
}

func renderYAML(w io.Writer, groups []aggregate.Group, opts Options) error {
	b, err := yaml.Marshal(entries(groups, opts))
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
