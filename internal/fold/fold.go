// Package fold implements the constant folder: it
// statically evaluates expressions built only from literals, grouped
// constants, and constant arrays/maps into a single LiteralValue, so the
// code generator can emit an immediate instead of a runtime evaluation
// call. It never panics — a subexpression that can't be folded simply
// makes the surrounding fold report "not foldable".
package fold

import "github.com/arolang/aro/internal/ast"

// notFoldedOps lists binary operators that are deliberately never
// folded even when both operands are constant.
var notFoldedOps = map[string]bool{
	"concat": true, "is": true, "is_not": true, "contains": true, "matches": true,
}

// IsConstant reports whether expr contains no free variable-refs or
// side-effecting forms, and every nested expression is itself constant.
func IsConstant(expr ast.Expression) bool {
	switch expr.Kind {
	case ast.ExprLiteral:
		return isConstantLiteral(expr.Literal)
	case ast.ExprVariableRef:
		return false
	case ast.ExprBinary:
		if notFoldedOps[expr.BinaryOp] {
			return false
		}
		return expr.Left != nil && expr.Right != nil &&
			IsConstant(*expr.Left) && IsConstant(*expr.Right)
	case ast.ExprUnary:
		return expr.Operand != nil && IsConstant(*expr.Operand)
	case ast.ExprGrouped:
		return expr.Inner != nil && IsConstant(*expr.Inner)
	case ast.ExprArrayLiteral:
		for _, e := range expr.Elements {
			if !IsConstant(e) {
				return false
			}
		}
		return true
	case ast.ExprMapLiteral:
		for _, e := range expr.Entries {
			if !IsConstant(e.Value) {
				return false
			}
		}
		return true
	default:
		// Interpolated strings, member access, subscript, existence,
		// and type-check are never constant-foldable.
		return false
	}
}

func isConstantLiteral(lit ast.LiteralValue) bool {
	switch lit.Kind {
	case ast.LitArray:
		for _, e := range lit.Array {
			if !isConstantLiteral(e) {
				return false
			}
		}
		return true
	case ast.LitObject:
		for _, f := range lit.Object {
			if !isConstantLiteral(f.Value) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Evaluate folds expr to a literal value, or returns (zero, false) when it
// cannot be folded. Determinism follows from this
// being a pure function of expr: the same expression always yields the
// same result, and IsConstant(expr) implies Evaluate succeeds for every
// arithmetic/logical form this package defines.
func Evaluate(expr ast.Expression) (ast.LiteralValue, bool) {
	switch expr.Kind {
	case ast.ExprLiteral:
		return expr.Literal, true
	case ast.ExprGrouped:
		if expr.Inner == nil {
			return ast.LiteralValue{}, false
		}
		return Evaluate(*expr.Inner)
	case ast.ExprUnary:
		return evalUnary(expr)
	case ast.ExprBinary:
		return evalBinary(expr)
	case ast.ExprArrayLiteral:
		return evalArray(expr)
	case ast.ExprMapLiteral:
		return evalMap(expr)
	default:
		return ast.LiteralValue{}, false
	}
}

func evalArray(expr ast.Expression) (ast.LiteralValue, bool) {
	out := make([]ast.LiteralValue, 0, len(expr.Elements))
	for _, e := range expr.Elements {
		v, ok := Evaluate(e)
		if !ok {
			return ast.LiteralValue{}, false
		}
		out = append(out, v)
	}
	return ast.LiteralValue{Kind: ast.LitArray, Array: out}, true
}

func evalMap(expr ast.Expression) (ast.LiteralValue, bool) {
	out := make([]ast.ObjectField, 0, len(expr.Entries))
	for _, e := range expr.Entries {
		v, ok := Evaluate(e.Value)
		if !ok {
			return ast.LiteralValue{}, false
		}
		out = append(out, ast.ObjectField{Key: e.Key, Value: v})
	}
	return ast.LiteralValue{Kind: ast.LitObject, Object: out}, true
}

func evalUnary(expr ast.Expression) (ast.LiteralValue, bool) {
	if expr.Operand == nil {
		return ast.LiteralValue{}, false
	}
	v, ok := Evaluate(*expr.Operand)
	if !ok {
		return ast.LiteralValue{}, false
	}
	switch expr.UnaryOp {
	case "not":
		if v.Kind != ast.LitBoolean {
			return ast.LiteralValue{}, false
		}
		return ast.LiteralValue{Kind: ast.LitBoolean, Bool: !v.Bool}, true
	case "negate", "-":
		switch v.Kind {
		case ast.LitInteger:
			return ast.LiteralValue{Kind: ast.LitInteger, Int: -v.Int}, true
		case ast.LitFloat:
			return ast.LiteralValue{Kind: ast.LitFloat, Float: -v.Float}, true
		}
	}
	return ast.LiteralValue{}, false
}

func evalBinary(expr ast.Expression) (ast.LiteralValue, bool) {
	if notFoldedOps[expr.BinaryOp] || expr.Left == nil || expr.Right == nil {
		return ast.LiteralValue{}, false
	}
	l, ok := Evaluate(*expr.Left)
	if !ok {
		return ast.LiteralValue{}, false
	}
	r, ok := Evaluate(*expr.Right)
	if !ok {
		return ast.LiteralValue{}, false
	}

	switch expr.BinaryOp {
	case "add":
		return foldAdd(l, r)
	case "subtract":
		return foldArith(l, r, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case "multiply":
		return foldArith(l, r, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case "divide":
		return foldDivide(l, r)
	case "modulo":
		return foldModulo(l, r)
	case "==":
		return foldEquals(l, r, false)
	case "!=":
		return foldEquals(l, r, true)
	case "<", "<=", ">", ">=":
		return foldCompare(expr.BinaryOp, l, r)
	case "and":
		return foldLogical(l, r, func(a, b bool) bool { return a && b })
	case "or":
		return foldLogical(l, r, func(a, b bool) bool { return a || b })
	}
	return ast.LiteralValue{}, false
}

func asFloat(v ast.LiteralValue) (float64, bool) {
	switch v.Kind {
	case ast.LitInteger:
		return float64(v.Int), true
	case ast.LitFloat:
		return v.Float, true
	}
	return 0, false
}

func bothInt(l, r ast.LiteralValue) bool {
	return l.Kind == ast.LitInteger && r.Kind == ast.LitInteger
}

func foldAdd(l, r ast.LiteralValue) (ast.LiteralValue, bool) {
	if l.Kind == ast.LitString && r.Kind == ast.LitString {
		return ast.LiteralValue{Kind: ast.LitString, Str: l.Str + r.Str}, true
	}
	return foldArith(l, r, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
}

func foldArith(l, r ast.LiteralValue, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) (ast.LiteralValue, bool) {
	if bothInt(l, r) {
		return ast.LiteralValue{Kind: ast.LitInteger, Int: intOp(l.Int, r.Int)}, true
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		return ast.LiteralValue{Kind: ast.LitFloat, Float: floatOp(lf, rf)}, true
	}
	return ast.LiteralValue{}, false
}

func foldDivide(l, r ast.LiteralValue) (ast.LiteralValue, bool) {
	if bothInt(l, r) {
		if r.Int == 0 {
			return ast.LiteralValue{}, false
		}
		return ast.LiteralValue{Kind: ast.LitInteger, Int: l.Int / r.Int}, true
	}
	lf, lok := asFloat(l)
	rf, rok := asFloat(r)
	if lok && rok {
		if rf == 0 {
			return ast.LiteralValue{}, false
		}
		return ast.LiteralValue{Kind: ast.LitFloat, Float: lf / rf}, true
	}
	return ast.LiteralValue{}, false
}

func foldModulo(l, r ast.LiteralValue) (ast.LiteralValue, bool) {
	if !bothInt(l, r) || r.Int == 0 {
		return ast.LiteralValue{}, false
	}
	return ast.LiteralValue{Kind: ast.LitInteger, Int: l.Int % r.Int}, true
}

func foldEquals(l, r ast.LiteralValue, negate bool) (ast.LiteralValue, bool) {
	var eq bool
	if l.Kind != r.Kind {
		lf, lok := asFloat(l)
		rf, rok := asFloat(r)
		if lok && rok {
			eq = lf == rf
		} else {
			eq = false
		}
	} else {
		eq = l.Equal(r)
	}
	if negate {
		eq = !eq
	}
	return ast.LiteralValue{Kind: ast.LitBoolean, Bool: eq}, true
}

func foldCompare(op string, l, r ast.LiteralValue) (ast.LiteralValue, bool) {
	var cmp int
	switch {
	case l.Kind == ast.LitString && r.Kind == ast.LitString:
		switch {
		case l.Str < r.Str:
			cmp = -1
		case l.Str > r.Str:
			cmp = 1
		}
	default:
		lf, lok := asFloat(l)
		rf, rok := asFloat(r)
		if !lok || !rok {
			return ast.LiteralValue{}, false
		}
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	}
	var result bool
	switch op {
	case "<":
		result = cmp < 0
	case "<=":
		result = cmp <= 0
	case ">":
		result = cmp > 0
	case ">=":
		result = cmp >= 0
	}
	return ast.LiteralValue{Kind: ast.LitBoolean, Bool: result}, true
}

func foldLogical(l, r ast.LiteralValue, op func(a, b bool) bool) (ast.LiteralValue, bool) {
	if l.Kind != ast.LitBoolean || r.Kind != ast.LitBoolean {
		return ast.LiteralValue{}, false
	}
	return ast.LiteralValue{Kind: ast.LitBoolean, Bool: op(l.Bool, r.Bool)}, true
}
