// Package codegen lowers an analyzed program to a single module of IR
// with an external C-like runtime ABI. No LLVM binding
// exists anywhere in the example corpus this module was grounded on, so
// the IR is a hand-rolled, serializable Go data structure — Module,
// Function, Block, Instr — that mirrors the ABI's descriptor layouts and
// block-naming discipline structurally and renders itself as `.ll`-shaped
// text via String(), the same "build an explicit intermediate
// representation" approach the rest of this codebase uses for its own
// wire and descriptor types.
package codegen

import (
	"fmt"
	"strings"
)

// Module is the single compilation unit the generator emits: one global string
// pool, one function per feature set, and a synthesized main.
type Module struct {
	Name      string
	Strings   *StringPool
	Functions []*Function
}

// Function is one emitted feature-set or main function.
type Function struct {
	Name       string
	Params     []Param
	ReturnType string
	Blocks     []*Block
}

// Param is one function parameter.
type Param struct {
	Name string
	Type string
}

// Block is one basic block: a label plus an ordered instruction list
// ending in exactly one terminator.
type Block struct {
	Label        string
	Instructions []Instr
}

// Terminator reports whether the block's last instruction is a
// terminator (br, ret). Used by lowering code to assert well-formedness
// before appending a new block.
func (b *Block) Terminator() bool {
	if len(b.Instructions) == 0 {
		return false
	}
	last := b.Instructions[len(b.Instructions)-1]
	return last.IsTerminator
}

// Instr is one emitted IR instruction. A single generic shape (opcode +
// operands + optional result register) is enough to render every form
// the lowering pass needs: alloca, store, load, call, br, br-cond, ret,
// getelementptr.
type Instr struct {
	Result       string
	Opcode       string
	Type         string
	Operands     []string
	IsTerminator bool
}

func (f *Function) addBlock(label string) *Block {
	b := &Block{Label: label}
	f.Blocks = append(f.Blocks, b)
	return b
}

func (b *Block) emit(i Instr) {
	b.Instructions = append(b.Instructions, i)
}

func (b *Block) alloca(result, typ string) {
	b.emit(Instr{Result: result, Opcode: "alloca", Type: typ})
}

func (b *Block) store(value, ptr, typ string) {
	b.emit(Instr{Opcode: "store", Type: typ, Operands: []string{value, ptr}})
}

func (b *Block) load(result, ptr, typ string) {
	b.emit(Instr{Result: result, Opcode: "load", Type: typ, Operands: []string{ptr}})
}

func (b *Block) call(result, fn string, args ...string) {
	b.emit(Instr{Result: result, Opcode: "call", Operands: append([]string{fn}, args...)})
}

func (b *Block) br(target string) {
	b.emit(Instr{Opcode: "br", Operands: []string{target}, IsTerminator: true})
}

func (b *Block) brCond(cond, ifTrue, ifFalse string) {
	b.emit(Instr{Opcode: "br_cond", Operands: []string{cond, ifTrue, ifFalse}, IsTerminator: true})
}

func (b *Block) ret(value string) {
	op := []string{}
	if value != "" {
		op = []string{value}
	}
	b.emit(Instr{Opcode: "ret", Operands: op, IsTerminator: true})
}

func (b *Block) getelementptr(result, base string) {
	b.emit(Instr{Result: result, Opcode: "getelementptr", Operands: []string{base}})
}

// String renders the module in an `.ll`-shaped textual form.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)
	if m.Strings != nil {
		sb.WriteString(m.Strings.String())
	}
	for _, fn := range m.Functions {
		sb.WriteString(fn.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (f *Function) String() string {
	var sb strings.Builder
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
	}
	fmt.Fprintf(&sb, "define %s @%s(%s) {\n", f.ReturnType, f.Name, strings.Join(params, ", "))
	for _, b := range f.Blocks {
		sb.WriteString(b.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Label)
	for _, instr := range b.Instructions {
		sb.WriteString("  ")
		sb.WriteString(instr.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (i Instr) String() string {
	var sb strings.Builder
	if i.Result != "" {
		fmt.Fprintf(&sb, "%s = ", i.Result)
	}
	sb.WriteString(i.Opcode)
	if i.Type != "" {
		fmt.Fprintf(&sb, " %s", i.Type)
	}
	if len(i.Operands) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(i.Operands, ", "))
	}
	return sb.String()
}
