package output

import (
	"github.com/RexQian/kubectl-view-allocations/pkg/aggregate"
	"github.com/RexQian/kubectl-view-allocations/pkg/tree"
	"github.com/samber/lo"
)

// Row is a group ready to be displayed in the tree table
type Row struct {
	Prefix string
	Group  aggregate.Group
}

// Label is the first column: the branch prefix and the last key of the path
func (r Row) Label() string {
	return r.Prefix + " " + r.Group.Key()
}

// BuildRows drops the groups with nothing to show (unless showZero) and
// computes the tree prefixes of the remaining ones. Groups without totals
// are kept, they anchor their children.
func BuildRows(groups []aggregate.Group, showZero bool) []Row {
	kept := lo.Filter(groups, func(g aggregate.Group, _ int) bool {
		return showZero || g.Totals == nil || !g.Totals.IsEmpty()
	})
	prefixes := tree.ProvidePrefix(kept, func(parent, item aggregate.Group) bool {
		return tree.IsChildPath(parent.Path, item.Path)
	})
	return lo.Map(kept, func(g aggregate.Group, i int) Row {
		return Row{Prefix: prefixes[i], Group: g}
	})
}
