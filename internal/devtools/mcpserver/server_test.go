package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro/internal/ast"
	"github.com/arolang/aro/internal/openapi"
)

const sampleSpec = `
openapi: 3.0.3
info:
  title: Users
  version: "1.0"
paths:
  /users/{id}:
    get:
      operationId: Get User Handler
      responses:
        "200":
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/User'
  /users/me:
    get:
      operationId: Get Current User Handler
      responses:
        "200":
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/User'
components:
  schemas:
    User:
      type: object
      required: [id, name]
      properties:
        id:
          type: integer
        name:
          type: string
`

func testDocument(t *testing.T) *openapi.Document {
	t.Helper()
	doc, err := openapi.ParseDocument([]byte(sampleSpec))
	require.NoError(t, err)
	return doc
}

func testProgram() ast.Program {
	emit := func(target string) ast.Statement {
		return ast.Statement{
			Kind:   ast.KindAction,
			Verb:   "emit",
			Result: ast.NewQualifiedNoun(target),
		}
	}
	return ast.Program{FeatureSets: []ast.FeatureSet{
		{
			Name:             "Boot",
			BusinessActivity: "Application-Start",
		},
		{
			Name:             "Order Placed Handler",
			BusinessActivity: "Order Placed Handler",
			Statements:       []ast.Statement{emit("Order Shipped")},
		},
		{
			Name:             "Order Shipped Handler",
			BusinessActivity: "Order Shipped Handler",
			Statements:       []ast.Statement{emit("Order Placed")},
		},
		{
			Name:             "Orders Observer",
			BusinessActivity: "Orders Observer",
		},
	}}
}

func exprJSON(t *testing.T, expr ast.Expression) string {
	t.Helper()
	raw, err := json.Marshal(expr)
	require.NoError(t, err)
	return string(raw)
}

func intLit(v int64) *ast.Expression {
	return &ast.Expression{
		Kind:    ast.ExprLiteral,
		Literal: ast.LiteralValue{Kind: ast.LitInteger, Int: v},
	}
}

func TestFoldExpression_ConstantArithmetic(t *testing.T) {
	s := NewServer(testProgram(), nil)

	// 2 + 3 * 4
	expr := ast.Expression{
		Kind:     ast.ExprBinary,
		BinaryOp: "add",
		Left:     intLit(2),
		Right: &ast.Expression{
			Kind:     ast.ExprBinary,
			BinaryOp: "multiply",
			Left:     intLit(3),
			Right:    intLit(4),
		},
	}

	out, err := s.handleFold(context.Background(), FoldInput{Expression: exprJSON(t, expr)})
	require.NoError(t, err)
	assert.True(t, out.Constant)
	assert.Equal(t, int64(14), out.Value)
}

func TestFoldExpression_VariableRefIsNotConstant(t *testing.T) {
	s := NewServer(testProgram(), nil)

	expr := ast.Expression{
		Kind:     ast.ExprVariableRef,
		Variable: ast.NewQualifiedNoun("user"),
	}

	out, err := s.handleFold(context.Background(), FoldInput{Expression: exprJSON(t, expr)})
	require.NoError(t, err)
	assert.False(t, out.Constant)
	assert.Nil(t, out.Value)
}

func TestFoldExpression_RejectsEmptyAndMalformedInput(t *testing.T) {
	s := NewServer(testProgram(), nil)

	_, err := s.handleFold(context.Background(), FoldInput{Expression: "  "})
	require.Error(t, err)

	_, err = s.handleFold(context.Background(), FoldInput{Expression: "{not json"})
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestMatchRoute_SpecificityAndParameters(t *testing.T) {
	s := NewServer(testProgram(), testDocument(t))

	out, err := s.handleMatchRoute(context.Background(), MatchRouteInput{Method: "GET", Path: "/users/me"})
	require.NoError(t, err)
	assert.True(t, out.Matched)
	assert.Equal(t, "Get Current User Handler", out.OperationID)

	out, err = s.handleMatchRoute(context.Background(), MatchRouteInput{Method: "GET", Path: "/users/42"})
	require.NoError(t, err)
	assert.True(t, out.Matched)
	assert.Equal(t, "Get User Handler", out.OperationID)
	assert.Equal(t, map[string]string{"id": "42"}, out.PathParameters)

	out, err = s.handleMatchRoute(context.Background(), MatchRouteInput{Method: "POST", Path: "/users/42"})
	require.NoError(t, err)
	assert.False(t, out.Matched)
}

func TestMatchRoute_WithoutDocument(t *testing.T) {
	s := NewServer(testProgram(), nil)

	_, err := s.handleMatchRoute(context.Background(), MatchRouteInput{Method: "GET", Path: "/users/me"})
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeNoDocument, mcpErr.Code)
}

func TestValidatePayload(t *testing.T) {
	s := NewServer(testProgram(), testDocument(t))

	out, err := s.handleValidatePayload(context.Background(), ValidatePayloadInput{
		Schema:  "User",
		Payload: `{"id": 1, "name": "a"}`,
	})
	require.NoError(t, err)
	assert.True(t, out.Valid)
	assert.Empty(t, out.Issues)

	out, err = s.handleValidatePayload(context.Background(), ValidatePayloadInput{
		Schema:  "User",
		Payload: `{"id": 1}`,
	})
	require.NoError(t, err)
	assert.False(t, out.Valid)
	require.NotEmpty(t, out.Issues)
	assert.Equal(t, "missing-required-property", out.Issues[0].Kind)

	out, err = s.handleValidatePayload(context.Background(), ValidatePayloadInput{
		Schema:  "Nope",
		Payload: `{}`,
	})
	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Equal(t, "schema-not-found", out.Issues[0].Kind)
}

func TestDetectCycles(t *testing.T) {
	s := NewServer(testProgram(), nil)

	out, err := s.handleDetectCycles(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Cycles, 1)
	assert.ElementsMatch(t,
		[]string{"Order Placed Handler", "Order Shipped Handler"},
		out.Cycles[0].FeatureSets)
}

func TestProgramStatus(t *testing.T) {
	s := NewServer(testProgram(), testDocument(t))

	out, err := s.handleProgramStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, out.FeatureSets)
	assert.Equal(t, 1, out.EntryPoints)
	assert.Equal(t, 2, out.Handlers)
	assert.Equal(t, 1, out.Observers)
	assert.Equal(t, 2, out.Routes)
	assert.True(t, out.HasOpenAPI)
}

func TestCallTool_UnknownTool(t *testing.T) {
	s := NewServer(testProgram(), nil)

	_, err := s.CallTool(context.Background(), "no_such_tool", nil)
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeMethodNotFound, mcpErr.Code)
}

func TestListTools_NamesAreStable(t *testing.T) {
	s := NewServer(testProgram(), nil)

	var names []string
	for _, tool := range s.ListTools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"fold_expression",
		"match_route",
		"validate_payload",
		"detect_cycles",
		"program_status",
	}, names)
}
