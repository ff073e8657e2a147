package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro/internal/ast"
)

func strLit(s string) ast.Expression {
	return ast.Expression{Kind: ast.ExprLiteral, Literal: ast.LiteralValue{Kind: ast.LitString, Str: s}}
}

func varRef(base string, specs ...string) ast.Expression {
	return ast.Expression{Kind: ast.ExprVariableRef, Variable: ast.NewQualifiedNoun(base, specs...)}
}

func TestSerializeExpression_LiteralString(t *testing.T) {
	s, err := SerializeExpression(strLit("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"$lit":"hello"}`, s)
}

func TestSerializeExpression_VariableRefOmitsEmptySpecs(t *testing.T) {
	s, err := SerializeExpression(varRef("user"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"$var":"user"}`, s)
}

func TestSerializeExpression_VariableRefIncludesSpecs(t *testing.T) {
	s, err := SerializeExpression(varRef("user", "id"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"$var":"user","$specs":["id"]}`, s)
}

func TestSerializeExpression_Binary(t *testing.T) {
	left := strLit("a")
	right := strLit("b")
	expr := ast.Expression{Kind: ast.ExprBinary, BinaryOp: "concat", Left: &left, Right: &right}
	s, err := SerializeExpression(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$binary":{"op":"concat","left":{"$lit":"a"},"right":{"$lit":"b"}}}`, s)
}

func TestSerializeExpression_Interpolated(t *testing.T) {
	expr := ast.Expression{Kind: ast.ExprInterpolated, Template: "hello ${name}"}
	s, err := SerializeExpression(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$interpolated":"hello ${name}"}`, s)
}

func TestSerializeExpression_MemberAccess(t *testing.T) {
	base := varRef("user")
	expr := ast.Expression{Kind: ast.ExprMemberAccess, Base: &base, Member: "name"}
	s, err := SerializeExpression(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$member":{"base":{"$var":"user"},"member":"name"}}`, s)
}

func TestSerializeExpression_Subscript(t *testing.T) {
	base := varRef("items")
	index := ast.Expression{Kind: ast.ExprLiteral, Literal: ast.LiteralValue{Kind: ast.LitInteger, Int: 0}}
	expr := ast.Expression{Kind: ast.ExprSubscript, Base: &base, Index: &index}
	s, err := SerializeExpression(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$subscript":{"base":{"$var":"items"},"index":{"$lit":0}}}`, s)
}

func TestSerializeExpression_PlainArrayLiteralHasNoLitWrapper(t *testing.T) {
	expr := ast.Expression{Kind: ast.ExprArrayLiteral, Elements: []ast.Expression{strLit("a"), strLit("b")}}
	s, err := SerializeExpression(expr)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"$lit":"a"},{"$lit":"b"}]`, s)
}

func TestSerializeOrFold_ConstantExpressionFoldsToPlainLiteral(t *testing.T) {
	left := ast.Expression{Kind: ast.ExprLiteral, Literal: ast.LiteralValue{Kind: ast.LitInteger, Int: 2}}
	right := ast.Expression{Kind: ast.ExprLiteral, Literal: ast.LiteralValue{Kind: ast.LitInteger, Int: 3}}
	expr := ast.Expression{Kind: ast.ExprBinary, BinaryOp: "add", Left: &left, Right: &right}

	s, folded, err := serializeOrFold(expr)
	require.NoError(t, err)
	assert.True(t, folded)
	assert.Equal(t, "5", s)
}

func TestSerializeOrFold_NonConstantExpressionSerializesFull(t *testing.T) {
	expr := varRef("user", "id")
	s, folded, err := serializeOrFold(expr)
	require.NoError(t, err)
	assert.False(t, folded)
	assert.JSONEq(t, `{"$var":"user","$specs":["id"]}`, s)
}
