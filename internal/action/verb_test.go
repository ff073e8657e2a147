package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize_ResolvesKnownSynonyms(t *testing.T) {
	tests := []struct {
		verb     string
		expected string
	}{
		{"calculate", "compute"},
		{"Calculate", "compute"},
		{"verify", "validate"},
		{"save", "store"},
		{"initialize", "start"},
		{"observe", "watch"},
		{"EXTRACT", "extract"},
	}
	for _, tt := range tests {
		t.Run(tt.verb, func(t *testing.T) {
			assert.Equal(t, tt.expected, Canonicalize(tt.verb))
		})
	}
}

// Verb canonicalization idempotence.
func TestCanonicalize_IsIdempotent(t *testing.T) {
	for _, v := range []string{"calculate", "extract", "UNKNOWN_VERB", "store"} {
		once := Canonicalize(v)
		twice := Canonicalize(once)
		assert.Equal(t, once, twice)
	}
}
