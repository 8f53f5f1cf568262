// Package verify implements static verification of generated app code: an
// empty-input check, a lint pass over the raw source, and a JSX
// compile/transpile pass.
package verify

// Result is the outcome of verifying one code payload.
type Result struct {
	Valid      bool
	Diagnostic string
}

// Verifier checks a generated code payload without executing it.
type Verifier interface {
	Verify(code string) Result
}

// EmptyCodeDiagnostic is returned for empty or whitespace-only payloads.
const EmptyCodeDiagnostic = "generated code is empty or invalid."

// StaticVerifier runs the three verification steps in order: empty check,
// lint, compile. The first failing step's diagnostic is the only one
// returned. It holds no mutable state and is safe for concurrent use.
type StaticVerifier struct{}

// NewStaticVerifier creates a verifier with the default rule set.
func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{}
}

// Verify checks code and returns a verdict with a diagnostic on failure.
// Lint runs before compile: lint diagnostics are more specific and make
// better regeneration feedback.
func (v *StaticVerifier) Verify(code string) Result {
	if isBlank(code) {
		return Result{Valid: false, Diagnostic: EmptyCodeDiagnostic}
	}

	if result := runLint(code); !result.Valid {
		return result
	}

	return runCompile(code)
}

func isBlank(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
		default:
			return false
		}
	}
	return true
}
