package models

import (
	"testing"

	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *qty.Qty {
	q := qty.MustParse(s)
	return &q
}

func TestQtyByQualifierAdd(t *testing.T) {
	var totals QtyByQualifier
	totals.Add(Requested, qty.MustParse("500m"))
	totals.Add(Requested, qty.MustParse("1500m"))
	totals.Add(Allocatable, qty.MustParse("4"))

	require.NotNil(t, totals.Requested)
	require.NotNil(t, totals.Allocatable)
	assert.True(t, totals.Requested.Equal(qty.MustParse("2")))
	assert.True(t, totals.Allocatable.Equal(qty.MustParse("4")))
	assert.Nil(t, totals.Limit)
	assert.Nil(t, totals.Utilization)
}

func TestFree(t *testing.T) {
	tests := []struct {
		name     string
		totals   QtyByQualifier
		expected *qty.Qty
	}{
		{
			name:     "Requested greater than limit",
			totals:   QtyByQualifier{Allocatable: ptr("4"), Requested: ptr("2"), Limit: ptr("1")},
			expected: ptr("2"),
		},
		{
			name:     "Limit greater than requested",
			totals:   QtyByQualifier{Allocatable: ptr("4"), Requested: ptr("1"), Limit: ptr("3")},
			expected: ptr("1"),
		},
		{
			name:     "Only requested",
			totals:   QtyByQualifier{Allocatable: ptr("8Gi"), Requested: ptr("2Gi")},
			expected: ptr("6Gi"),
		},
		{
			name:     "Over subscribed is floored at zero",
			totals:   QtyByQualifier{Allocatable: ptr("1"), Limit: ptr("3")},
			expected: ptr("0"),
		},
		{
			name:     "No allocatable",
			totals:   QtyByQualifier{Requested: ptr("1")},
			expected: nil,
		},
		{
			name:     "No requested nor limit",
			totals:   QtyByQualifier{Allocatable: ptr("4")},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free := tt.totals.Free()
			if tt.expected == nil {
				assert.Nil(t, free)
				return
			}
			require.NotNil(t, free)
			assert.True(t, free.Equal(*tt.expected), "got %s", free.Canonical())
		})
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, QtyByQualifier{}.IsEmpty())
	assert.True(t, QtyByQualifier{Requested: ptr("0"), Limit: ptr("0")}.IsEmpty())
	assert.False(t, QtyByQualifier{Requested: ptr("0"), Utilization: ptr("0")}.IsEmpty())
	assert.False(t, QtyByQualifier{Allocatable: ptr("1")}.IsEmpty())
}

func TestLocation(t *testing.T) {
	loc := PodLocation("", "default", "pod-a")
	assert.Nil(t, loc.NodeName)
	assert.Equal(t, "node=<none> namespace=default pod=pod-a", loc.String())

	loc = NodeLocation("node-1")
	require.NotNil(t, loc.NodeName)
	assert.Equal(t, "node-1", *loc.NodeName)
	assert.Nil(t, loc.PodName)
}
