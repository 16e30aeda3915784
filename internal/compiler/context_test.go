package compiler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasResolution(t *testing.T) {
	ctx := NewContext(Options{MacroAliases: MacroAliases{State: []string{"$signal"}, Effect: []string{"$watch"}}})

	canon, ok := ctx.CanonicalMacroName("$signal")
	require.True(t, ok)
	assert.Equal(t, CanonicalState, canon)

	canon, ok = ctx.CanonicalMacroName("$watch")
	require.True(t, ok)
	assert.Equal(t, CanonicalEffect, canon)

	// canonical names recognize themselves with no configuration
	canon, ok = ctx.CanonicalMacroName("$state")
	require.True(t, ok)
	assert.Equal(t, CanonicalState, canon)

	_, ok = ctx.CanonicalMacroName("somethingElse")
	assert.False(t, ok)
}

func TestDestructTempCounterIsProcessGlobal(t *testing.T) {
	a := NewContext(Options{})
	b := NewContext(Options{})
	first := a.NextDestructTemp()
	second := b.NextDestructTemp()
	assert.NotEqual(t, first, second, "independent compilations share the counter")
	assert.Contains(t, first, "__destruct_")
}

func TestWarnNilCallbackSilent(t *testing.T) {
	ctx := NewContext(Options{})
	assert.NotPanics(t, func() {
		ctx.Warn(Diagnostic{Code: "W000", Message: "ignored"})
	})
}

func TestWarnInvokesCallback(t *testing.T) {
	var got []Diagnostic
	ctx := NewContext(Options{OnWarn: func(d Diagnostic) { got = append(got, d) }})
	ctx.Warn(Diagnostic{Code: "W001", Message: "hm", File: "a.jsx", Line: 2})
	require.Len(t, got, 1)
	assert.Equal(t, "W001", got[0].Code)
}

func TestRunPassesThroughCompileError(t *testing.T) {
	ctx := NewContext(Options{})
	want := NewBuildError("a.jsx", 4, "unsupported statement form")
	err := ctx.Run(func() error { return want })
	assert.Equal(t, want, err)
}

func TestRunWrapsPanicAsInvariantError(t *testing.T) {
	ctx := NewContext(Options{})
	err := ctx.Run(func() error { panic(errors.New("index out of range")) })
	require.Error(t, err)
	cerr, ok := err.(*CompileError)
	require.True(t, ok)
	assert.Equal(t, InvariantError, cerr.Kind)
	assert.Contains(t, cerr.Message, "index out of range")
}

func TestRunRecoversPanickedCompileError(t *testing.T) {
	ctx := NewContext(Options{})
	want := NewAnalysisError(nil, "phi placeholder never filled")
	err := ctx.Run(func() error { panic(want) })
	assert.Equal(t, want, err)
}

func TestErrorFormatting(t *testing.T) {
	err := NewBuildError("app.jsx", 12, "break with no matching enclosing loop/label %q", "outer")
	assert.Equal(t, BuildError, err.Kind)
	assert.Contains(t, err.Error(), "BUILD_ERROR")
	assert.Contains(t, err.Error(), "app.jsx:12")
}

func TestWrapInvariantPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := WrapInvariant(cause, "during %s", "ssa")
	assert.Equal(t, InvariantError, err.Kind)
	assert.ErrorIs(t, err, cause)
}
