package verify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Severity levels for lint findings. Only error-severity findings fail
// verification.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Finding is a single lint result with a 1-based source position.
type Finding struct {
	Rule     string
	Message  string
	Line     int
	Column   int
	Severity string
}

// recognizedGlobals are identifiers the generated code may call freely: the
// UI toolkit global, the React runtime globals, and common browser runtime
// globals. The allow list takes precedence over the watch list: a recognized
// identifier is never flagged. Watched identifiers are flagged even though a
// browser would define some of them; generated apps must not reach the
// network.
var recognizedGlobals = map[string]bool{
	"MaterialUI":  true,
	"React":       true,
	"ReactDOM":    true,
	"window":      true,
	"document":    true,
	"console":     true,
	"JSON":        true,
	"Math":        true,
	"Date":        true,
	"setTimeout":  true,
	"setInterval": true,
}

// watchedCalls maps forbidden callees to their rule and diagnostic. These
// only fire on a call of the bare identifier; member access (data.fetch())
// and plain words in JSX text are not identifier references.
var watchedCalls = map[string]struct {
	rule    string
	message string
}{
	"eval":           {rule: "no-eval", message: "eval can be harmful"},
	"require":        {rule: "no-require", message: "'require' is not defined"},
	"fetch":          {rule: "no-undef", message: "'fetch' is not defined"},
	"XMLHttpRequest": {rule: "no-undef", message: "'XMLHttpRequest' is not defined"},
	"WebSocket":      {rule: "no-undef", message: "'WebSocket' is not defined"},
	"EventSource":    {rule: "no-undef", message: "'EventSource' is not defined"},
}

// callPattern matches an identifier in call position. Leftmost matching
// guarantees the capture starts at the head of the identifier; member access
// is rejected by inspecting the preceding byte.
var callPattern = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`)

type lintRule struct {
	name    string
	pattern *regexp.Regexp
	message string
}

// lineRules catch module syntax at the start of a line. The patterns require
// declaration shape (a from-clause or module specifier for import, a binding
// form for export) so prose in JSX text that happens to start with one of
// these words does not trip them.
var lineRules = []lintRule{
	{
		name:    "no-import",
		pattern: regexp.MustCompile(`(?m)^\s*(import)\s+(?:[^;\n]*?\bfrom\s*['"]|['"])`),
		message: "'import' declarations are not allowed",
	},
	{
		name:    "no-export",
		pattern: regexp.MustCompile(`(?m)^\s*(export)\s+(?:default\b|const\b|let\b|var\b|function\b|class\b|\{|\*)`),
		message: "'export' declarations are not allowed",
	},
}

// runLint applies the fixed rule set to the source and returns the first
// error-severity finding as a failure. Zero findings is a pass: an
// inconclusive lint never blocks generation.
func runLint(code string) Result {
	findings := lintSource(code)

	for _, f := range findings {
		if f.Severity == SeverityError {
			return Result{
				Valid: false,
				Diagnostic: fmt.Sprintf("lint error: %s at line %d, column %d",
					f.Message, f.Line, f.Column),
			}
		}
	}

	return Result{Valid: true}
}

// lintSource runs every rule over the comment- and string-masked source and
// returns findings ordered by position.
func lintSource(code string) []Finding {
	masked := maskLiterals(code)

	var findings []Finding
	for _, rule := range lineRules {
		for _, loc := range rule.pattern.FindAllStringSubmatchIndex(masked, -1) {
			// Position of the captured keyword, not the leading whitespace.
			line, col := position(masked, loc[2])
			findings = append(findings, Finding{
				Rule:     rule.name,
				Message:  rule.message,
				Line:     line,
				Column:   col,
				Severity: SeverityError,
			})
		}
	}

	for _, loc := range callPattern.FindAllStringSubmatchIndex(masked, -1) {
		start := loc[2]
		if start > 0 && masked[start-1] == '.' {
			// Member access, not a reference to the bare identifier.
			continue
		}
		name := masked[start:loc[3]]
		if RecognizedGlobal(name) {
			continue
		}
		watched, ok := watchedCalls[name]
		if !ok {
			continue
		}
		line, col := position(masked, loc[2])
		findings = append(findings, Finding{
			Rule:     watched.rule,
			Message:  watched.message,
			Line:     line,
			Column:   col,
			Severity: SeverityError,
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Line != findings[j].Line {
			return findings[i].Line < findings[j].Line
		}
		return findings[i].Column < findings[j].Column
	})
	return findings
}

// maskLiterals blanks out string literals and comments while preserving the
// length and line structure of the source, so rule matches inside them are
// suppressed and positions stay accurate.
func maskLiterals(code string) string {
	out := []byte(code)
	i := 0
	n := len(out)

	for i < n {
		c := out[i]
		switch {
		case c == '/' && i+1 < n && out[i+1] == '/':
			for i < n && out[i] != '\n' {
				out[i] = ' '
				i++
			}
		case c == '/' && i+1 < n && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			i += 2
			for i < n {
				if out[i] == '*' && i+1 < n && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i += 2
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
		case c == '\'' || c == '"' || c == '`':
			quote := c
			i++
			for i < n {
				if out[i] == '\\' && i+1 < n {
					out[i], out[i+1] = ' ', ' '
					i += 2
					continue
				}
				if out[i] == quote {
					i++
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
		default:
			i++
		}
	}

	return string(out)
}

// position converts a byte offset to a 1-based line and column.
func position(s string, offset int) (line, col int) {
	line = 1 + strings.Count(s[:offset], "\n")
	lastNL := strings.LastIndexByte(s[:offset], '\n')
	col = offset - lastNL
	return line, col
}

// RecognizedGlobal reports whether the identifier is on the allowed globals
// list.
func RecognizedGlobal(name string) bool {
	return recognizedGlobals[name]
}
