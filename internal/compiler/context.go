// Package compiler carries the ambient per-compilation state: the
// macro-alias set, the warning callback, and the
// destructuring-temp counter. The alias set and the callback live on a
// Context that is threaded by pointer through every pass and is not modified
// after NewContext, so a nested or re-entrant compilation (an arrow body
// processed while its enclosing function is still being built), or a failing
// one, leaves the outer view unchanged. The destructuring-temp counter is the
// exception: it is a package-level counter shared by every Context.
package compiler

// OnWarn is the optional diagnostic side channel. A nil OnWarn
// means warnings are suppressed silently; errors still propagate.
type OnWarn func(Diagnostic)

// Options are the compilation options.
type Options struct {
	// OnWarn is the optional diagnostic callback; nil suppresses warnings.
	OnWarn OnWarn

	// MacroAliases adds user-chosen alias names for the canonical state/effect
	// macros. Default canonical names are always recognized regardless of
	// this setting.
	MacroAliases MacroAliases

	// InlineDerivedMemos extends single-use inlining to user-named const
	// bindings, not just compiler-temporaries.
	InlineDerivedMemos bool

	// ForcePure/ForceNoMemo mark every function of the compilation as if it
	// carried the corresponding directive, the caller-supplied leg of purity
	// detection.
	ForcePure   bool
	ForceNoMemo bool

	// CrossBlockConstProp mirrors the CROSS_BLOCK_CONST_PROP environment
	// toggle.
	CrossBlockConstProp bool

	File string
}

// MacroAliases maps user-chosen alias names to the canonical macro names.
type MacroAliases struct {
	State  []string
	Effect []string
}

// Canonical macro names, always recognized.
const (
	CanonicalState  = "$state"
	CanonicalEffect = "$effect"
)

// Context is the ambient state of a single compilation, established at the
// top-level entry point and threaded through every pass.
type Context struct {
	Opts Options

	// aliasToCanonical maps every recognized alias (including the canonical
	// names themselves) to its canonical form.
	aliasToCanonical map[string]string

	// destructTempCounter is process-global by design: collisions across
	// independently compiled files cannot happen because names are scoped
	// per function, so a shared counter is only observable in
	// diagnostics/printed IR.
	destructTempCounter *uint64
}

var globalDestructCounter uint64

// NewContext establishes the ambient state for one compilation.
func NewContext(opts Options) *Context {
	c := &Context{
		Opts:                opts,
		aliasToCanonical:    map[string]string{CanonicalState: CanonicalState, CanonicalEffect: CanonicalEffect},
		destructTempCounter: &globalDestructCounter,
	}
	for _, alias := range opts.MacroAliases.State {
		c.aliasToCanonical[alias] = CanonicalState
	}
	for _, alias := range opts.MacroAliases.Effect {
		c.aliasToCanonical[alias] = CanonicalEffect
	}
	return c
}

// CanonicalMacroName resolves a callee identifier to its canonical macro
// name, or returns (name, false) when it is not a recognized alias.
func (c *Context) CanonicalMacroName(name string) (string, bool) {
	canonical, ok := c.aliasToCanonical[name]
	return canonical, ok
}

// NextDestructTemp allocates the next `__destruct_<n>` name.
func (c *Context) NextDestructTemp() string {
	n := *c.destructTempCounter
	*c.destructTempCounter++
	return formatTemp("__destruct_", n)
}

func formatTemp(prefix string, n uint64) string {
	// Avoid importing fmt in the hot path of destructuring expansion; this
	// mirrors the builder's own small integer-formatting helpers.
	digits := [20]byte{}
	i := len(digits)
	if n == 0 {
		i--
		digits[i] = '0'
	}
	for n > 0 {
		i--
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return prefix + string(digits[i:])
}

// Warn reports a non-fatal diagnostic through the ambient callback, if any.
func (c *Context) Warn(d Diagnostic) {
	if c.Opts.OnWarn != nil {
		c.Opts.OnWarn(d)
	}
}
