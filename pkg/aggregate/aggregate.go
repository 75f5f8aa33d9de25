// Package aggregate groups flat resource measurements along an ordered list
// of dimensions and sums them per qualifier.
//
// The result is a forest flattened in pre-order: each Group carries its key
// path, and a group is the parent of another when the other's path extends it
// by exactly one segment.
package aggregate

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/RexQian/kubectl-view-allocations/pkg/models"
	"github.com/samber/lo"
)

var (
	// ErrMixedKinds is returned when records of different kinds are summed together
	ErrMixedKinds = errors.New("cannot sum resources of different kinds")
	// ErrUnknownGroupBy is returned for an unsupported grouping dimension
	ErrUnknownGroupBy = errors.New("unknown group by")
	// ErrNoGroupBy is returned when no grouping dimension is given
	ErrNoGroupBy = errors.New("at least one group by is required")
)

// Group is one node of the aggregated forest. Totals is nil when the group
// mixes kinds (a level above the resource dimension), such groups have no
// meaningful sum but still anchor their children.
type Group struct {
	Path   []string               `json:"path" yaml:"path"`
	Totals *models.QtyByQualifier `json:"totals,omitempty" yaml:"totals,omitempty"`
}

// Depth is the number of segments of the path
func (g Group) Depth() int {
	return len(g.Path)
}

// Key is the last segment of the path
func (g Group) Key() string {
	if len(g.Path) == 0 {
		return ""
	}
	return g.Path[len(g.Path)-1]
}

// IsChildOf reports whether g sits directly below parent
func (g Group) IsChildOf(parent Group) bool {
	return len(parent.Path)+1 == len(g.Path) && slices.Equal(parent.Path, g.Path[:len(parent.Path)])
}

// AcceptResource reports whether a resource name matches one of the filters,
// an empty filter list accepts everything
func AcceptResource(name string, filters []string) bool {
	return len(filters) == 0 || lo.SomeBy(filters, func(f string) bool {
		return strings.Contains(name, f)
	})
}

// FilterResources keeps the records whose kind matches the filters
func FilterResources(records []models.Resource, filters []string) []models.Resource {
	return lo.Filter(records, func(r models.Resource, _ int) bool {
		return AcceptResource(r.Kind, filters)
	})
}

// SumByQualifier sums the records per qualifier. It returns nil for an empty
// input and ErrMixedKinds when the records do not share one kind.
func SumByQualifier(records []*models.Resource) (*models.QtyByQualifier, error) {
	if len(records) == 0 {
		return nil, nil
	}
	kind := records[0].Kind
	totals := &models.QtyByQualifier{}
	for _, r := range records {
		if r.Kind != kind {
			return nil, fmt.Errorf("%w: %q and %q", ErrMixedKinds, kind, r.Kind)
		}
		totals.Add(r.Qualifier, r.Quantity)
	}
	return totals, nil
}

// Aggregate filters the records by resource name, groups them along groupBy
// and returns the groups sorted by path (a pre-order of the forest).
// The output only depends on the content of records, not on their order.
func Aggregate(records []models.Resource, groupBy []GroupBy, filters []string) ([]Group, error) {
	if len(groupBy) == 0 {
		return nil, ErrNoGroupBy
	}
	fns := make([]KeyFunc, 0, len(groupBy))
	for _, g := range groupBy {
		fn, err := g.KeyFunc()
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}

	accepted := FilterResources(records, filters)
	refs := make([]*models.Resource, len(accepted))
	for i := range accepted {
		refs[i] = &accepted[i]
	}

	out, err := group(refs, nil, fns)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(out, func(a, b Group) int {
		return slices.Compare(a.Path, b.Path)
	})
	return out, nil
}

func group(records []*models.Resource, prefix []string, fns []KeyFunc) ([]Group, error) {
	if len(fns) == 0 {
		return nil, nil
	}

	// keys in order of first appearance
	var keys []string
	partitions := make(map[string][]*models.Resource)
	for _, r := range records {
		key, ok := fns[0](r)
		if !ok {
			continue
		}
		if _, seen := partitions[key]; !seen {
			keys = append(keys, key)
		}
		partitions[key] = append(partitions[key], r)
	}

	var out []Group
	for _, key := range keys {
		members := partitions[key]
		path := append(slices.Clone(prefix), key)

		var totals *models.QtyByQualifier
		if sameKind(members) {
			var err error
			if totals, err = SumByQualifier(members); err != nil {
				return nil, err
			}
		}
		out = append(out, Group{Path: path, Totals: totals})

		children, err := group(members, path, fns[1:])
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
	}
	return out, nil
}

func sameKind(records []*models.Resource) bool {
	return len(lo.UniqBy(records, func(r *models.Resource) string { return r.Kind })) <= 1
}
