package models

import (
	"fmt"

	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
)

// KindPods is the synthetic resource counting scheduled pods
const KindPods = "pods"

// Qualifier is the role a measured quantity plays
type Qualifier int

const (
	Limit Qualifier = iota
	Requested
	Allocatable
	Utilization
)

func (q Qualifier) String() string {
	switch q {
	case Limit:
		return "Limit"
	case Requested:
		return "Requested"
	case Allocatable:
		return "Allocatable"
	case Utilization:
		return "Utilization"
	default:
		return fmt.Sprintf("Qualifier(%d)", int(q))
	}
}

// Location describes where a measurement was observed, every field is optional
type Location struct {
	NodeName  *string `json:"node_name,omitempty" yaml:"node_name,omitempty"`
	Namespace *string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	PodName   *string `json:"pod_name,omitempty" yaml:"pod_name,omitempty"`
}

// NodeLocation creates a location for a node level measurement
func NodeLocation(nodeName string) Location {
	return Location{NodeName: &nodeName}
}

// PodLocation creates a location for a pod, nodeName may be empty for pods
// which are not bound yet
func PodLocation(nodeName, namespace, podName string) Location {
	loc := Location{Namespace: &namespace, PodName: &podName}
	if nodeName != "" {
		loc.NodeName = &nodeName
	}
	return loc
}

func (l Location) String() string {
	return fmt.Sprintf("node=%s namespace=%s pod=%s", deref(l.NodeName), deref(l.Namespace), deref(l.PodName))
}

func deref(s *string) string {
	if s == nil {
		return "<none>"
	}
	return *s
}

// Resource is a single measurement: a kind, a qualifier, a quantity and where it was observed
type Resource struct {
	Kind      string    `json:"kind" yaml:"kind"`
	Qualifier Qualifier `json:"qualifier" yaml:"qualifier"`
	Quantity  qty.Qty   `json:"quantity" yaml:"quantity"`
	Location  Location  `json:"location" yaml:"location"`
}

// QtyByQualifier holds the totals of a group, a nil field means no record of
// that qualifier contributed
type QtyByQualifier struct {
	Limit       *qty.Qty `json:"limit,omitempty" yaml:"limit,omitempty"`
	Requested   *qty.Qty `json:"requested,omitempty" yaml:"requested,omitempty"`
	Allocatable *qty.Qty `json:"allocatable,omitempty" yaml:"allocatable,omitempty"`
	Utilization *qty.Qty `json:"utilization,omitempty" yaml:"utilization,omitempty"`
}

// Add accumulates a quantity in the bucket of its qualifier
func (t *QtyByQualifier) Add(qualifier Qualifier, q qty.Qty) {
	switch qualifier {
	case Limit:
		t.Limit = add(t.Limit, q)
	case Requested:
		t.Requested = add(t.Requested, q)
	case Allocatable:
		t.Allocatable = add(t.Allocatable, q)
	case Utilization:
		t.Utilization = add(t.Utilization, q)
	}
}

func add(acc *qty.Qty, q qty.Qty) *qty.Qty {
	sum := q
	if acc != nil {
		sum = acc.Add(q)
	}
	return &sum
}

// Used returns the greater of limit and requested, nil when both are absent
func (t QtyByQualifier) Used() *qty.Qty {
	switch {
	case t.Limit == nil:
		return t.Requested
	case t.Requested == nil:
		return t.Limit
	}
	used := t.Limit.Max(*t.Requested)
	return &used
}

// Free returns allocatable - max(limit, requested), floored at zero.
// It is nil when allocatable or both limit and requested are absent.
func (t QtyByQualifier) Free() *qty.Qty {
	used := t.Used()
	if t.Allocatable == nil || used == nil {
		return nil
	}
	free := t.Allocatable.Sub(*used)
	return &free
}

// IsEmpty reports whether the group carries no information worth a row:
// no utilization and requested, limit and allocatable absent or zero
func (t QtyByQualifier) IsEmpty() bool {
	return t.Utilization == nil && isEmpty(t.Requested) && isEmpty(t.Limit) && isEmpty(t.Allocatable)
}

func isEmpty(q *qty.Qty) bool {
	return q == nil || q.IsZero()
}
