package compiler

// Run executes fn as one compilation unit, recovering any panic raised by a
// pass. A panic carrying a *CompileError is returned unchanged. Any other
// panic means the compiler hit a bug in its own invariants, not that the
// user's input was malformed, so it is wrapped into an INVARIANT_ERROR
// rather than surfacing as a Go runtime panic or being confused with a
// BuildError/AnalysisError at the call site.
func (c *Context) Run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if cerr, ok := r.(*CompileError); ok {
				err = cerr
				return
			}
			if e, ok := r.(error); ok {
				err = WrapInvariant(e, "recovered panic during compilation")
				return
			}
			err = WrapInvariant(nil, "recovered panic during compilation: %v", r)
		}
	}()
	return fn()
}
