package collector

import (
	"testing"

	"github.com/RexQian/kubectl-view-allocations/pkg/models"
	"github.com/RexQian/kubectl-view-allocations/pkg/qty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObfuscateName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple name",
			input:    "my-cluster-name",
			expected: "880d9279006f73a32536d549cc3cfd617c42a023e16eaecabf2971aaf7b01676",
		},
		{
			name:     "Another name",
			input:    "production-us-east-1",
			expected: "583d6af8436c7e65185372ff1b0e57161bacc891e9d242f820577b18e8052639",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := ObfuscateName(tt.input)
			if tt.input == "" {
				assert.Equal(t, "", actual)
				return
			}

			assert.NotEqual(t, tt.input, actual)
			// 16 bytes of the hash, hex encoded
			assert.Equal(t, tt.expected[:32], actual)
		})
	}
}

func TestHideNames(t *testing.T) {
	records := []models.Resource{
		{Kind: "cpu", Qualifier: models.Allocatable, Quantity: qty.MustParse("4"), Location: models.NodeLocation("node-1")},
		{Kind: "cpu", Qualifier: models.Requested, Quantity: qty.MustParse("1"), Location: models.PodLocation("node-1", "default", "web-0")},
	}
	original := records[1].Location.PodName

	HideNames(records)

	require.NotNil(t, records[0].Location.NodeName)
	assert.Equal(t, *records[0].Location.NodeName, *records[1].Location.NodeName, "equal names keep grouping together")
	assert.Nil(t, records[0].Location.PodName)
	assert.Equal(t, ObfuscateName("web-0"), *records[1].Location.PodName)
	assert.Equal(t, "web-0", *original, "the original strings are not modified")
}
