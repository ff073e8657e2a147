// Package action implements the Action Registry & Runner:
// a process-wide table binding lowercased, canonicalized verbs to action
// handlers, plus a runner bridging async and synchronous invocation for
// code emitted by the code generator.
package action

import "strings"

// synonyms is the fixed verb-canonicalization table.
// Unknown verbs pass through Canonicalize unchanged.
var synonyms = map[string]string{
	"calculate":  "compute",
	"verify":     "validate",
	"save":       "store",
	"initialize": "start",
	"observe":    "watch",
}

// Canonicalize lowercases v and resolves it through the synonym table.
// Canonicalize is idempotent: canonicalize(canonicalize(v)) == canonicalize(v)
// since the table's values are never themselves
// keys.
func Canonicalize(verb string) string {
	v := strings.ToLower(verb)
	if canon, ok := synonyms[v]; ok {
		return canon
	}
	return v
}
