package aggregate

import (
	"fmt"
	"strings"

	"github.com/RexQian/kubectl-view-allocations/pkg/models"
	"github.com/samber/lo"
)

// GroupBy is a named grouping dimension
type GroupBy string

const (
	GroupByResource  GroupBy = "resource"
	GroupByNode      GroupBy = "node"
	GroupByPod       GroupBy = "pod"
	GroupByNamespace GroupBy = "namespace"
)

// DefaultGroupBy is used when no dimension is selected
var DefaultGroupBy = []GroupBy{GroupByResource, GroupByNode, GroupByPod}

// KeyFunc extracts the grouping key of a record, false excludes the record
// from that level
type KeyFunc func(r *models.Resource) (string, bool)

var keyFuncs = map[GroupBy]KeyFunc{
	GroupByResource:  extractKind,
	GroupByNode:      extractNodeName,
	GroupByPod:       extractPodName,
	GroupByNamespace: extractNamespace,
}

// AllGroupBy lists the accepted dimension names
func AllGroupBy() []GroupBy {
	return []GroupBy{GroupByResource, GroupByNode, GroupByPod, GroupByNamespace}
}

// ParseGroupBy reads a dimension name, case insensitive. "workload" is
// accepted as an alias of "pod".
func ParseGroupBy(s string) (GroupBy, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "workload" {
		return GroupByPod, nil
	}
	g := GroupBy(name)
	if _, ok := keyFuncs[g]; !ok {
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownGroupBy, s, strings.Join(lo.Map(AllGroupBy(), func(g GroupBy, _ int) string { return string(g) }), ", "))
	}
	return g, nil
}

// ParseGroupByList parses every name, an empty list yields DefaultGroupBy
func ParseGroupByList(names []string) ([]GroupBy, error) {
	if len(names) == 0 {
		return append([]GroupBy(nil), DefaultGroupBy...), nil
	}
	out := make([]GroupBy, 0, len(names))
	for _, n := range names {
		g, err := ParseGroupBy(n)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// KeyFunc returns the key extraction rule of the dimension
func (g GroupBy) KeyFunc() (KeyFunc, error) {
	fn, ok := keyFuncs[g]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroupBy, string(g))
	}
	return fn, nil
}

func (g GroupBy) String() string {
	return string(g)
}

func extractKind(r *models.Resource) (string, bool) {
	return r.Kind, true
}

func extractNodeName(r *models.Resource) (string, bool) {
	return value(r.Location.NodeName)
}

func extractPodName(r *models.Resource) (string, bool) {
	// the pods count is redundant once grouped per pod
	if r.Kind == models.KindPods {
		return "", false
	}
	return value(r.Location.PodName)
}

func extractNamespace(r *models.Resource) (string, bool) {
	return value(r.Location.Namespace)
}

func value(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	return *s, true
}
