package collector

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"sync"

	"github.com/RexQian/kubectl-view-allocations/pkg/models"
)

// ObfuscationCache is a cache of obfuscated names to avoid recalculating
var ObfuscationCache sync.Map

// ObfuscateName obfuscates a name using SHA-256
func ObfuscateName(name string) string {
	if name == "" {
		return ""
	}

	if cachedName, ok := ObfuscationCache.Load(name); ok {
		return cachedName.(string)
	}

	h := sha256.New()
	io.WriteString(h, name)

	// first 16 bytes only, names stay readable in a table
	result := strings.ToLower(hex.EncodeToString(h.Sum(nil)[:16]))

	ObfuscationCache.Store(name, result)

	return result
}

// HideNames replaces node, namespace and pod names of every record by their
// obfuscated form. Equal names map to equal hashes so grouping is unchanged.
func HideNames(records []models.Resource) {
	for i := range records {
		loc := &records[i].Location
		loc.NodeName = obfuscatePtr(loc.NodeName)
		loc.Namespace = obfuscatePtr(loc.Namespace)
		loc.PodName = obfuscatePtr(loc.PodName)
	}
}

func obfuscatePtr(s *string) *string {
	if s == nil {
		return nil
	}
	hidden := ObfuscateName(*s)
	return &hidden
}
