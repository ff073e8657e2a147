// Package ast defines the analyzed-program data model that the rest of
// the ARO core consumes: qualified nouns, statements, expressions, and
// literal values. Nodes are immutable once constructed and are shared
// (read concurrently) by the code generator, the cycle analyzer, and the
// schema validator — the surface parser that produces them is out of
// scope here; this package only describes their shape.
package ast

// Preposition is one of the ten connector tokens carrying semantic roles
// between a verb and its object. The integer encoding is part of the
// runtime ABI and must never be renumbered.
type Preposition int

const (
	PrepNone    Preposition = 0
	PrepFrom    Preposition = 1
	PrepFor     Preposition = 2
	PrepWith    Preposition = 3
	PrepTo      Preposition = 4
	PrepInto    Preposition = 5
	PrepVia     Preposition = 6
	PrepAgainst Preposition = 7
	PrepOn      Preposition = 8
	PrepBy      Preposition = 9
	PrepAt      Preposition = 10
)

var prepositionNames = map[Preposition]string{
	PrepFrom: "from", PrepFor: "for", PrepWith: "with", PrepTo: "to",
	PrepInto: "into", PrepVia: "via", PrepAgainst: "against", PrepOn: "on",
	PrepBy: "by", PrepAt: "at",
}

var prepositionsByName = func() map[string]Preposition {
	m := make(map[string]Preposition, len(prepositionNames))
	for p, n := range prepositionNames {
		m[n] = p
	}
	return m
}()

// String returns the lowercase spelling of a preposition.
func (p Preposition) String() string {
	if n, ok := prepositionNames[p]; ok {
		return n
	}
	return "none"
}

// ParsePreposition resolves a lowercase preposition token to its encoding.
func ParsePreposition(s string) (Preposition, bool) {
	p, ok := prepositionsByName[s]
	return p, ok
}

// QualifiedNoun is a (base, specifiers) identifier, e.g. "user: id: parameters"
// parses to base "user", specifiers ["id", "parameters"]. Immutable after
// construction.
type QualifiedNoun struct {
	Base       string
	Specifiers []string
}

// NewQualifiedNoun builds a qualified noun, defensively copying specifiers
// so later mutation of the caller's slice cannot leak into the shared AST.
func NewQualifiedNoun(base string, specifiers ...string) QualifiedNoun {
	var cp []string
	if len(specifiers) > 0 {
		cp = append(cp, specifiers...)
	}
	return QualifiedNoun{Base: base, Specifiers: cp}
}

// Position is a 1-indexed source location, inclusive at Line/Col.
type Position struct {
	Line int
	Col  int
}

// Span is a half-open source range: inclusive at Start, exclusive at End.
type Span struct {
	File  string
	Start Position
	End   Position
}

// RequireSource names where a Require statement pulls its value from.
type RequireSource int

const (
	RequireFramework RequireSource = iota
	RequireEnvironment
	RequireFeatureSet
)

// RequireSpec fully describes a Require statement's source.
type RequireSpec struct {
	Kind        RequireSource
	FeatureSet  string // only meaningful when Kind == RequireFeatureSet
}

// QueryModifiers captures the optional where/aggregation/by clauses an
// action statement may carry.
type QueryModifiers struct {
	HasWhere        bool
	WhereField      string
	WhereOp         string
	WhereValue      Expression
	HasAggregation  bool
	AggregationType string
	AggregationField string
	HasBy           bool
	ByPattern       string
	ByFlags         string
}

// RangeModifiers captures the optional to/with clauses an action statement
// may carry.
type RangeModifiers struct {
	HasTo   bool
	To      Expression
	HasWith bool
	With    Expression
}

// ValueSourceKind tags how a result gets its value.
type ValueSourceKind int

const (
	ValueSourceNone ValueSourceKind = iota
	ValueSourceLiteral
	ValueSourceExpression
	ValueSourceSink // an expression whose result binds to _result_expression_
)

// ValueSource is what feeds an action statement's result.
type ValueSource struct {
	Kind       ValueSourceKind
	Literal    LiteralValue
	Expression Expression
}

// ObjectRef is the (preposition, noun) pair an action acts upon.
type ObjectRef struct {
	Preposition Preposition
	Noun        QualifiedNoun
}

// StatementKind discriminates the Statement tagged union.
type StatementKind int

const (
	StatementAction StatementKind = iota
	StatementMatch
	StatementForEach
	StatementPublish
	StatementRequire
)

// MatchCase is one arm of a Match statement.
type MatchCase struct {
	Pattern Expression
	Body    []Statement
}

// Statement is a tagged union over the five statement forms the language
// core understands. Only the fields relevant to Kind are
// populated; callers must switch on Kind before reading the rest.
type Statement struct {
	Kind Kind
	Span Span

	// Action statement fields.
	Verb        string
	Result      QualifiedNoun
	Object      ObjectRef
	HasObject   bool
	Value       ValueSource
	Query       QueryModifiers
	Range       RangeModifiers
	Guard       Expression
	HasGuard    bool

	// Match statement fields.
	Subject   QualifiedNoun
	Cases     []MatchCase
	Otherwise []Statement
	HasOtherwise bool

	// For-each loop fields.
	ItemVariable  string
	IndexVariable string
	HasIndex      bool
	Collection    QualifiedNoun
	Filter        Expression
	HasFilter     bool
	Body          []Statement

	// Publish statement fields.
	ExternalName     string
	InternalVariable string

	// Require statement fields.
	VariableName string
	Source       RequireSpec
}

// Kind is an alias kept distinct from StatementKind for readability at
// call sites (`stmt.Kind == ast.KindAction`).
type Kind = StatementKind

const (
	KindAction   = StatementAction
	KindMatch    = StatementMatch
	KindForEach  = StatementForEach
	KindPublish  = StatementPublish
	KindRequire  = StatementRequire
)

// ExpressionKind discriminates the Expression tagged union.
type ExpressionKind int

const (
	ExprLiteral ExpressionKind = iota
	ExprVariableRef
	ExprBinary
	ExprUnary
	ExprGrouped
	ExprInterpolated
	ExprArrayLiteral
	ExprMapLiteral
	ExprMemberAccess
	ExprSubscript
	ExprExistence
	ExprTypeCheck
)

// MapEntry is one (key, value) pair of a map-literal expression.
type MapEntry struct {
	Key   string
	Value Expression
}

// Expression is a tagged union over every expression form the codegen
// and folder understand. As with Statement, only fields relevant to Kind
// are populated.
type Expression struct {
	Kind ExpressionKind
	Span Span

	Literal LiteralValue

	Variable QualifiedNoun

	BinaryOp    string
	Left, Right *Expression

	UnaryOp  string
	Operand  *Expression

	Inner *Expression // grouped expression

	Template string // interpolated string, "${var}" markers kept verbatim

	Elements []Expression // array literal
	Entries  []MapEntry   // map literal

	Base   *Expression // member access / subscript base
	Member string      // member access
	Index  *Expression // subscript index

	TypeName string // type-check target type name
}

// LiteralKind discriminates the LiteralValue sum type.
type LiteralKind int

const (
	LitString LiteralKind = iota
	LitInteger
	LitFloat
	LitBoolean
	LitNull
	LitArray
	LitObject
	LitRegex
)

// LiteralValue is the sum of string | integer | float | boolean | null |
// array | object | regex that a constant expression can fold to.
type LiteralValue struct {
	Kind LiteralKind

	Str     string
	Int     int64
	Float   float64
	Bool    bool
	Array   []LiteralValue
	Object  []ObjectField
	RegexPattern string
	RegexFlags   string
}

// ObjectField is one (key, value) pair of an object literal.
type ObjectField struct {
	Key   string
	Value LiteralValue
}

// Equal reports structural equality between two literals, the rule the
// constant folder's `==`/`!=` operators rely on: cross-kind comparisons
// are always false, null == null is true.
func (l LiteralValue) Equal(o LiteralValue) bool {
	if l.Kind != o.Kind {
		// Integer/float cross-kind equality is handled by the folder
		// before reaching here; every other cross-kind pair is false.
		return false
	}
	switch l.Kind {
	case LitString:
		return l.Str == o.Str
	case LitInteger:
		return l.Int == o.Int
	case LitFloat:
		return l.Float == o.Float
	case LitBoolean:
		return l.Bool == o.Bool
	case LitNull:
		return true
	case LitRegex:
		return l.RegexPattern == o.RegexPattern && l.RegexFlags == o.RegexFlags
	case LitArray:
		if len(l.Array) != len(o.Array) {
			return false
		}
		for i := range l.Array {
			if !l.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	case LitObject:
		if len(l.Object) != len(o.Object) {
			return false
		}
		om := make(map[string]LiteralValue, len(o.Object))
		for _, f := range o.Object {
			om[f.Key] = f.Value
		}
		for _, f := range l.Object {
			v, ok := om[f.Key]
			if !ok || !f.Value.Equal(v) {
				return false
			}
		}
		return true
	}
	return false
}

// FeatureSet is a named, statement-bearing unit of ARO code.
type FeatureSet struct {
	Name             string
	BusinessActivity string
	Statements       []Statement
	Span             Span
}

const entryPointActivity = "Application-Start"

// IsEntryPoint reports whether this feature set's business activity marks
// it as an application entry point.
func (f FeatureSet) IsEntryPoint() bool {
	return f.BusinessActivity == entryPointActivity
}

const handlerSuffix = " Handler"
const observerSuffix = " Observer"

// IsHandler reports whether the business activity marks this as an event
// handler (a " Handler" suffix).
func (f FeatureSet) IsHandler() bool {
	return hasSuffixCI(f.BusinessActivity, handlerSuffix)
}

// IsObserver reports whether the business activity marks this as a
// repository observer (an " Observer" suffix).
func (f FeatureSet) IsObserver() bool {
	return hasSuffixCI(f.BusinessActivity, observerSuffix)
}

// HandlerEventType returns the event type a " Handler" business activity
// registers for: the prefix before the suffix.
func (f FeatureSet) HandlerEventType() string {
	if !f.IsHandler() {
		return ""
	}
	return f.BusinessActivity[:len(f.BusinessActivity)-len(handlerSuffix)]
}

// ObserverRepository returns the repository name a " Observer" business
// activity registers for.
func (f FeatureSet) ObserverRepository() string {
	if !f.IsObserver() {
		return ""
	}
	return f.BusinessActivity[:len(f.BusinessActivity)-len(observerSuffix)]
}

func hasSuffixCI(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	return s[len(s)-len(suffix):] == suffix
}

// Program is an ordered collection of analyzed feature sets. A valid
// Program has at least one Application-Start feature set; when several
// exist, the last one in program order is the application's main entry
// (module-import semantics).
type Program struct {
	FeatureSets []FeatureSet
}

// EntryPoints returns every Application-Start feature set, in program
// order. The last element is the application's main entry.
func (p Program) EntryPoints() []FeatureSet {
	var out []FeatureSet
	for _, fs := range p.FeatureSets {
		if fs.IsEntryPoint() {
			out = append(out, fs)
		}
	}
	return out
}

// ByName returns the feature set with the given name, if any.
func (p Program) ByName(name string) (FeatureSet, bool) {
	for _, fs := range p.FeatureSets {
		if fs.Name == name {
			return fs, true
		}
	}
	return FeatureSet{}, false
}
