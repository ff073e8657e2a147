package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arolang/aro/internal/ast"
)

// StringPool interns every string constant the lowering pass will need,
// deduplicated by exact content, so each reference
// resolves to a stable global name.
type StringPool struct {
	index map[string]string
	order []string
}

// NewStringPool builds an empty pool.
func NewStringPool() *StringPool {
	return &StringPool{index: make(map[string]string)}
}

// Intern registers s if not already present and returns its global
// constant name (stable across repeated Intern calls for equal content).
func (p *StringPool) Intern(s string) string {
	if name, ok := p.index[s]; ok {
		return name
	}
	name := fmt.Sprintf("@.str.%d", len(p.order))
	p.index[s] = name
	p.order = append(p.order, s)
	return name
}

// Lookup returns the global name already interned for s, if any.
func (p *StringPool) Lookup(s string) (string, bool) {
	name, ok := p.index[s]
	return name, ok
}

// String renders every interned constant as a global declaration, sorted
// by name for deterministic output.
func (p *StringPool) String() string {
	names := make([]string, 0, len(p.order))
	for _, s := range p.order {
		names = append(names, s)
	}
	sort.SliceStable(names, func(i, j int) bool {
		return p.index[names[i]] < p.index[names[j]]
	})
	var sb strings.Builder
	for _, s := range names {
		fmt.Fprintf(&sb, "%s = constant [%d x i8] c%q\n", p.index[s], len(s)+1, s)
	}
	return sb.String()
}

// reservedVariableNames lists every reserved binding statement lowering
// may emit, in one place so the pre-emission walk can intern them all.
var reservedVariableNames = []string{
	varWhereField, varWhereOp, varWhereValue,
	varAggregationType, varAggregationField,
	varByPattern, varByFlags,
	varTo, varWith,
	varResultExpression,
	varPublishAlias, varPublishVariable,
	varRequireVariable, varRequireSource,
}

// collectProgramStrings interns, before any lowering runs, every string
// constant the lowering pass will reference: reserved variable names,
// feature-set names and business activities, qualified-noun bases and
// specifiers, and literal strings and regex patterns inside expressions.
// Lowering assumes every string it points at is already pooled, so this
// walk is a correctness requirement, not an optimization.
func collectProgramStrings(program ast.Program, pool *StringPool) {
	for _, v := range reservedVariableNames {
		pool.Intern(v)
	}
	for _, fs := range program.FeatureSets {
		pool.Intern(fs.Name)
		pool.Intern(fs.BusinessActivity)
		collectStatementStrings(fs.Statements, pool)
	}
}

func collectNounStrings(n ast.QualifiedNoun, pool *StringPool) {
	pool.Intern(n.Base)
	for _, s := range n.Specifiers {
		pool.Intern(s)
	}
}

func collectStatementStrings(stmts []ast.Statement, pool *StringPool) {
	for _, stmt := range stmts {
		switch stmt.Kind {
		case ast.KindAction:
			collectNounStrings(stmt.Result, pool)
			if stmt.HasObject {
				collectNounStrings(stmt.Object.Noun, pool)
			}
			if stmt.HasGuard {
				collectExpressionStrings(stmt.Guard, pool)
			}
			switch stmt.Value.Kind {
			case ast.ValueSourceLiteral:
				collectLiteralStrings(stmt.Value.Literal, pool)
			case ast.ValueSourceExpression, ast.ValueSourceSink:
				collectExpressionStrings(stmt.Value.Expression, pool)
			}
			if stmt.Query.HasWhere {
				pool.Intern(stmt.Query.WhereField)
				pool.Intern(stmt.Query.WhereOp)
				collectExpressionStrings(stmt.Query.WhereValue, pool)
			}
			if stmt.Query.HasAggregation {
				pool.Intern(stmt.Query.AggregationType)
				pool.Intern(stmt.Query.AggregationField)
			}
			if stmt.Query.HasBy {
				pool.Intern(stmt.Query.ByPattern)
				pool.Intern(stmt.Query.ByFlags)
			}
			if stmt.Range.HasTo {
				collectExpressionStrings(stmt.Range.To, pool)
			}
			if stmt.Range.HasWith {
				collectExpressionStrings(stmt.Range.With, pool)
			}
		case ast.KindMatch:
			collectNounStrings(stmt.Subject, pool)
			for _, c := range stmt.Cases {
				collectExpressionStrings(c.Pattern, pool)
				collectStatementStrings(c.Body, pool)
			}
			collectStatementStrings(stmt.Otherwise, pool)
		case ast.KindForEach:
			pool.Intern(stmt.ItemVariable)
			if stmt.HasIndex {
				pool.Intern(stmt.IndexVariable)
			}
			collectNounStrings(stmt.Collection, pool)
			if stmt.HasFilter {
				collectExpressionStrings(stmt.Filter, pool)
			}
			collectStatementStrings(stmt.Body, pool)
		case ast.KindPublish:
			pool.Intern(stmt.ExternalName)
			pool.Intern(stmt.InternalVariable)
		case ast.KindRequire:
			if stmt.Source.Kind == ast.RequireFramework {
				continue
			}
			pool.Intern(stmt.VariableName)
			if stmt.Source.Kind == ast.RequireEnvironment {
				pool.Intern("environment")
			} else {
				pool.Intern(stmt.Source.FeatureSet)
			}
		}
	}
}

func collectExpressionStrings(expr ast.Expression, pool *StringPool) {
	switch expr.Kind {
	case ast.ExprLiteral:
		collectLiteralStrings(expr.Literal, pool)
	case ast.ExprVariableRef:
		collectNounStrings(expr.Variable, pool)
	case ast.ExprBinary:
		collectExpressionStrings(*expr.Left, pool)
		collectExpressionStrings(*expr.Right, pool)
	case ast.ExprUnary:
		collectExpressionStrings(*expr.Operand, pool)
	case ast.ExprGrouped:
		collectExpressionStrings(*expr.Inner, pool)
	case ast.ExprInterpolated:
		pool.Intern(expr.Template)
	case ast.ExprArrayLiteral:
		for _, e := range expr.Elements {
			collectExpressionStrings(e, pool)
		}
	case ast.ExprMapLiteral:
		for _, e := range expr.Entries {
			pool.Intern(e.Key)
			collectExpressionStrings(e.Value, pool)
		}
	case ast.ExprMemberAccess:
		collectExpressionStrings(*expr.Base, pool)
		pool.Intern(expr.Member)
	case ast.ExprSubscript:
		collectExpressionStrings(*expr.Base, pool)
		collectExpressionStrings(*expr.Index, pool)
	case ast.ExprExistence:
		collectExpressionStrings(*expr.Base, pool)
	case ast.ExprTypeCheck:
		collectExpressionStrings(*expr.Base, pool)
		pool.Intern(expr.TypeName)
	}
}

func collectLiteralStrings(lit ast.LiteralValue, pool *StringPool) {
	switch lit.Kind {
	case ast.LitString:
		pool.Intern(lit.Str)
	case ast.LitRegex:
		pool.Intern(lit.RegexPattern)
		pool.Intern(lit.RegexFlags)
	case ast.LitArray:
		for _, e := range lit.Array {
			collectLiteralStrings(e, pool)
		}
	case ast.LitObject:
		for _, f := range lit.Object {
			pool.Intern(f.Key)
			collectLiteralStrings(f.Value, pool)
		}
	}
}
