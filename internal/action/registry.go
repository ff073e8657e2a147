package action

import (
	"fmt"
	"sync"

	"github.com/arolang/aro/internal/aroerr"
	"github.com/arolang/aro/internal/ast"
)

// Registry binds canonicalized verbs to action handlers. Mutations
// (Register) are serialized under a write lock; lookups (Lookup) take a
// read lock, so concurrent compiled handlers never block each other on
// plain dispatch.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry builds an empty action registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds every verb a handler declares, canonicalized and
// lowercased, to that handler instance. A later Register for the same
// canonical verb replaces the earlier binding.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range h.Verbs() {
		r.handlers[Canonicalize(v)] = h
	}
}

// Lookup resolves a verb (canonicalizing first) to its bound handler.
func (r *Registry) Lookup(verb string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[Canonicalize(verb)]
	return h, ok
}

// Count returns the number of distinct canonical verbs currently bound
// to a handler.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

func unknownActionError(verb string) error {
	return aroerr.New(aroerr.KindUnknownAction, fmt.Sprintf("no handler bound to verb %q", verb), nil).
		WithDetail("verb", verb)
}

func invalidPrepositionError(verb string, p ast.Preposition) error {
	return aroerr.New(aroerr.KindInvalidPreposition,
		fmt.Sprintf("handler for verb %q does not accept preposition %q", verb, p), nil).
		WithDetail("verb", verb).
		WithDetail("preposition", p.String())
}
