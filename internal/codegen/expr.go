package codegen

import (
	"encoding/json"

	"github.com/arolang/aro/internal/ast"
	"github.com/arolang/aro/internal/fold"
)

// SerializeExpression renders expr into the compact JSON shape the
// runtime's expression evaluator understands, used when
// an expression can't be folded to a literal at compile time. A
// constant-foldable expression should be lowered via fold.Evaluate
// first; this function does not attempt folding itself.
func SerializeExpression(expr ast.Expression) (string, error) {
	v, err := toJSONValue(expr)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(v)
	return string(raw), err
}

func toJSONValue(expr ast.Expression) (any, error) {
	switch expr.Kind {
	case ast.ExprLiteral:
		return map[string]any{"$lit": literalToJSON(expr.Literal)}, nil
	case ast.ExprVariableRef:
		m := map[string]any{"$var": expr.Variable.Base}
		if len(expr.Variable.Specifiers) > 0 {
			m["$specs"] = expr.Variable.Specifiers
		}
		return m, nil
	case ast.ExprBinary:
		left, err := toJSONValue(*expr.Left)
		if err != nil {
			return nil, err
		}
		right, err := toJSONValue(*expr.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"$binary": map[string]any{"op": expr.BinaryOp, "left": left, "right": right}}, nil
	case ast.ExprUnary:
		operand, err := toJSONValue(*expr.Operand)
		if err != nil {
			return nil, err
		}
		return map[string]any{"$unary": map[string]any{"op": expr.UnaryOp, "operand": operand}}, nil
	case ast.ExprInterpolated:
		return map[string]any{"$interpolated": expr.Template}, nil
	case ast.ExprMemberAccess:
		base, err := toJSONValue(*expr.Base)
		if err != nil {
			return nil, err
		}
		return map[string]any{"$member": map[string]any{"base": base, "member": expr.Member}}, nil
	case ast.ExprSubscript:
		base, err := toJSONValue(*expr.Base)
		if err != nil {
			return nil, err
		}
		index, err := toJSONValue(*expr.Index)
		if err != nil {
			return nil, err
		}
		return map[string]any{"$subscript": map[string]any{"base": base, "index": index}}, nil
	case ast.ExprGrouped:
		return toJSONValue(*expr.Inner)
	case ast.ExprExistence:
		inner, err := toJSONValue(*expr.Base)
		if err != nil {
			return nil, err
		}
		return map[string]any{"$exists": inner}, nil
	case ast.ExprTypeCheck:
		inner, err := toJSONValue(*expr.Base)
		if err != nil {
			return nil, err
		}
		return map[string]any{"$typeCheck": map[string]any{"expr": inner, "type": expr.TypeName}}, nil
	case ast.ExprArrayLiteral, ast.ExprMapLiteral:
		return plainCollection(expr)
	}
	return nil, nil
}

func literalToJSON(lit ast.LiteralValue) any {
	switch lit.Kind {
	case ast.LitString:
		return lit.Str
	case ast.LitInteger:
		return lit.Int
	case ast.LitFloat:
		return lit.Float
	case ast.LitBoolean:
		return lit.Bool
	case ast.LitNull:
		return nil
	case ast.LitArray:
		out := make([]any, len(lit.Array))
		for i, e := range lit.Array {
			out[i] = literalToJSON(e)
		}
		return out
	case ast.LitObject:
		out := make(map[string]any, len(lit.Object))
		for _, f := range lit.Object {
			out[f.Key] = literalToJSON(f.Value)
		}
		return out
	case ast.LitRegex:
		return map[string]any{"pattern": lit.RegexPattern, "flags": lit.RegexFlags}
	}
	return nil
}

// plainCollection serializes an array/map literal expression without
// "$lit" wrappers — the shape variableBindArray/Dict expects for
// collection literals.
func plainCollection(expr ast.Expression) (any, error) {
	if expr.Kind == ast.ExprArrayLiteral {
		out := make([]any, len(expr.Elements))
		for i, e := range expr.Elements {
			v, err := toJSONValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
	out := make(map[string]any, len(expr.Entries))
	for _, e := range expr.Entries {
		v, err := toJSONValue(e.Value)
		if err != nil {
			return nil, err
		}
		out[e.Key] = v
	}
	return out, nil
}

// serializeOrFold returns the expression's folded literal JSON
// (`{"$lit":...}`-free — a plain literal value) when it's constant, or
// its full $-tagged serialization otherwise. The code generator prefers
// the folded form so the emitted IR carries an immediate instead of a
// runtime evaluate-expression call.
func serializeOrFold(expr ast.Expression) (string, bool, error) {
	if fold.IsConstant(expr) {
		v, ok := fold.Evaluate(expr)
		if ok {
			raw, err := json.Marshal(literalToJSON(v))
			return string(raw), true, err
		}
	}
	s, err := SerializeExpression(expr)
	return s, false, err
}
