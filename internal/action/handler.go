package action

import (
	"context"

	"github.com/arolang/aro/internal/ast"
)

// Role is the static role an action handler declares.
type Role string

const (
	RoleRequest  Role = "request"
	RoleOwn      Role = "own"
	RoleResponse Role = "response"
	RoleExport   Role = "export"
)

// RuntimeContext is the opaque per-invocation context an action receives.
// It wraps a context.Context for cancellation/deadlines and a variable
// store a handler can bind into (mirroring the runtime ABI's variable
// bind/resolve helpers, without the pointer plumbing only
// emitted IR needs).
type RuntimeContext struct {
	context.Context
	vars map[string]any
}

// NewRuntimeContext wraps ctx for use by action handlers.
func NewRuntimeContext(ctx context.Context) *RuntimeContext {
	return &RuntimeContext{Context: ctx, vars: make(map[string]any)}
}

// Bind stores a variable, overwriting any existing binding of the same name.
func (c *RuntimeContext) Bind(name string, value any) {
	c.vars[name] = value
}

// Resolve looks up a previously bound variable.
func (c *RuntimeContext) Resolve(name string) (any, bool) {
	v, ok := c.vars[name]
	return v, ok
}

// Unbind removes a variable, mirroring the runtime ABI's unbind helper.
func (c *RuntimeContext) Unbind(name string) {
	delete(c.vars, name)
}

// Handler is the action-handler contract: static metadata
// plus an execute method that may bind variables, call services, publish
// events, and returns the value to bind to the statement's result.
type Handler interface {
	Role() Role
	Verbs() []string
	ValidPrepositions() map[ast.Preposition]bool
	Execute(ctx *RuntimeContext, result ResultDescriptor, object ObjectDescriptor) (any, error)
}
