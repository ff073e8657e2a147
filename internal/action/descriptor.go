package action

import "github.com/arolang/aro/internal/ast"

// ResultDescriptor names the variable an action's return value binds to.
// It mirrors the runtime ABI's ResultDescriptor field
// for field, without the pointer/stack-slot plumbing only the emitted IR
// needs.
type ResultDescriptor struct {
	Base       string
	Specifiers []string
}

// ObjectDescriptor is the (preposition, noun) object an action acts upon,
// mirroring the runtime ABI's ObjectDescriptor.
type ObjectDescriptor struct {
	Base        string
	Preposition ast.Preposition
	Specifiers  []string
}

// NewResultDescriptor builds a ResultDescriptor from a qualified noun.
func NewResultDescriptor(n ast.QualifiedNoun) ResultDescriptor {
	return ResultDescriptor{Base: n.Base, Specifiers: n.Specifiers}
}

// NewObjectDescriptor builds an ObjectDescriptor from an ObjectRef.
func NewObjectDescriptor(ref ast.ObjectRef) ObjectDescriptor {
	return ObjectDescriptor{
		Base:        ref.Noun.Base,
		Preposition: ref.Preposition,
		Specifiers:  ref.Noun.Specifiers,
	}
}
