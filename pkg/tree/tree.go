// Package tree computes the branch drawing prefixes used to display a
// forest flattened in pre-order as an indented text tree.
package tree

import "strings"

// Glyphs used to draw the tree. Continuations are as wide as a branch and
// the space separating it from the label.
const (
	Tee    = "├─"
	Corner = "└─"
	Pipe   = "│  "
	Blank  = "   "
)

// ProvidePrefix returns one prefix per item, aligned by index. items must be
// in pre-order (a parent before its descendants), isChildOf reports whether
// item sits one level below parent. An item's parent is the nearest preceding
// item it is a child of; items without one are roots.
func ProvidePrefix[T any](items []T, isChildOf func(parent, item T) bool) []string {
	parents := make([]int, len(items))
	depths := make([]int, len(items))
	for i := range items {
		parents[i] = -1
		for j := i - 1; j >= 0; j-- {
			if isChildOf(items[j], items[i]) {
				parents[i] = j
				depths[i] = depths[j] + 1
				break
			}
		}
	}

	hasNext := make([]bool, len(items))
	for i := range items {
		hasNext[i] = hasNextSibling(i, parents, depths)
	}

	out := make([]string, len(items))
	var ancestors []int
	for i := range items {
		ancestors = ancestors[:0]
		for p := parents[i]; p >= 0; p = parents[p] {
			ancestors = append(ancestors, p)
		}

		var b strings.Builder
		for k := len(ancestors) - 1; k >= 0; k-- {
			if hasNext[ancestors[k]] {
				b.WriteString(Pipe)
			} else {
				b.WriteString(Blank)
			}
		}
		if hasNext[i] {
			b.WriteString(Tee)
		} else {
			b.WriteString(Corner)
		}
		out[i] = b.String()
	}
	return out
}

// hasNextSibling scans forward for an item sharing the parent of i, stopping
// once the sibling group has ended (a shallower item).
func hasNextSibling(i int, parents, depths []int) bool {
	for k := i + 1; k < len(parents); k++ {
		switch {
		case depths[k] < depths[i]:
			return false
		case depths[k] == depths[i]:
			return parents[k] == parents[i]
		}
	}
	return false
}

// PathPrefixes computes the prefixes of pre-ordered key paths.
func PathPrefixes(paths [][]string) []string {
	return ProvidePrefix(paths, IsChildPath)
}

// IsChildPath reports whether item is exactly one level deeper than parent.
// In a pre-ordered forest the nearest preceding such path is the parent,
// which keeps the drawing consistent when some rows were filtered out.
func IsChildPath(parent, item []string) bool {
	return len(parent)+1 == len(item)
}
