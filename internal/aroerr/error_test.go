package aroerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro/internal/ast"
)

// TS01: Error wrapping preserves original error.
func TestError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("boom")

	// When: wrapping it as a runtime IO error
	wrapped := Wrap(KindIO, originalErr)

	// Then: unwrapping returns the original error
	require.NotNil(t, wrapped)
	assert.Equal(t, originalErr, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, wrapped))
}

func TestError_Error_ReturnsFormattedMessageWithSpan(t *testing.T) {
	span := ast.Span{File: "orders.aro", Start: ast.Position{Line: 3, Col: 5}}
	err := New(KindUnknownVerb, "unknown verb \"frobnicate\"", nil).At(span)
	assert.Equal(t, `[unknown-verb] orders.aro:3:5: unknown verb "frobnicate"`, err.Error())
}

func TestError_Error_WithoutSpanOmitsLocation(t *testing.T) {
	err := New(KindUnknownAction, "no handler bound to verb \"emit\"", nil)
	assert.Equal(t, `[unknown-action] no handler bound to verb "emit"`, err.Error())
}

func TestError_Is_MatchesByKind(t *testing.T) {
	a := New(KindTimeout, "a", nil)
	b := New(KindTimeout, "b", nil)
	c := New(KindNetwork, "c", nil)
	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
}

func TestCategoryFromKind_GroupsByComponent(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected Category
	}{
		{KindUnknownVerb, CategoryCompilation},
		{KindDuplicateOperationID, CategoryOpenAPI},
		{KindMissingRequiredProperty, CategorySchemaValidation},
		{KindUnknownAction, CategoryRuntime},
		{KindCircularEventChain, CategoryCycleAnalyzer},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := New(tt.kind, "msg", nil)
			assert.Equal(t, tt.expected, err.Category)
		})
	}
}

func TestSeverityFromKind_FatalKindsAbortCompilation(t *testing.T) {
	assert.Equal(t, SeverityFatal, New(KindNoEntryPoint, "m", nil).Severity)
	assert.Equal(t, SeverityFatal, New(KindModuleVerificationFailed, "m", nil).Severity)
	assert.Equal(t, SeverityError, New(KindUnknownVerb, "m", nil).Severity)
}

func TestIsRetryable_OnlyNetworkAndTimeoutKinds(t *testing.T) {
	assert.True(t, IsRetryable(New(KindNetwork, "m", nil)))
	assert.True(t, IsRetryable(New(KindTimeout, "m", nil)))
	assert.False(t, IsRetryable(New(KindUnknownVerb, "m", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestWithDetailAndSuggestion_Chain(t *testing.T) {
	err := New(KindInvalidPropertyType, "id must be integer", nil).
		WithDetail("field", "id").
		WithSuggestion("pass an integer id")
	assert.Equal(t, "id", err.Details["field"])
	assert.Equal(t, "pass an integer id", err.Suggestion)
}

func TestKindOf_ExtractsKindFromWrappedError(t *testing.T) {
	assert.Equal(t, KindTimeout, KindOf(New(KindTimeout, "m", nil)))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
