package utils

import "github.com/RexQian/kubectl-view-allocations/pkg/aggregate"

// Config represents the configuration of an allocation report
type Config struct {
	// KubeContext is the name of the Kubernetes context to use
	KubeContext string

	// Namespace restricts pods (and their utilization) to one namespace, empty means all
	Namespace string

	// Utilization indicates that utilization was explicitly requested, a missing
	// metrics API is then reported as a warning
	Utilization bool

	// ShowZero keeps rows whose requested, limit and allocatable are all zero
	ShowZero bool

	// ResourceNames filters resources by (partial) name, empty means all
	ResourceNames []string

	// GroupBy is the ordered list of grouping dimensions
	GroupBy []aggregate.GroupBy

	// OutputFormat is one of table, csv, json, yaml or xlsx
	OutputFormat string

	// OutputFile is the destination of the xlsx report
	OutputFile string

	// HideNames indicates whether to obfuscate node, namespace and pod names
	HideNames bool

	// MaxProcessors bounds the number of namespaces fetched concurrently
	MaxProcessors int

	// NoProgress disables the progress bar
	NoProgress bool
}
