package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/appforge/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose CLI mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintExtraction outputs a human-readable summary of extracted requirements.
func (p *Printer) PrintExtraction(ex *types.Extraction) {
	if ex == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("App Name: %s\n", ex.AppName))

	if len(ex.Entities) > 0 {
		entities := strings.Join(ex.Entities, ", ")
		if len(entities) > 45 {
			entities = entities[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("Entities: %s\n", entities))
	}
	if len(ex.Roles) > 0 {
		sb.WriteString(fmt.Sprintf("Roles:    %s\n", strings.Join(ex.Roles, ", ")))
	}
	sb.WriteString("\n")

	if len(ex.Features) > 0 {
		sb.WriteString("Features:\n")
		count := min(len(ex.Features), maxItemsToShow)
		for i := 0; i < count; i++ {
			f := ex.Features[i]
			sb.WriteString(fmt.Sprintf("  • %s", f.Title))
			if f.UserRole != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", f.UserRole))
			}
			sb.WriteString("\n")
		}
		if len(ex.Features) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(ex.Features)-maxItemsToShow))
		}
	}

	if len(ex.BusinessRules) > 0 {
		sb.WriteString("\nBusiness Rules:\n")
		count := min(len(ex.BusinessRules), 3)
		for i := 0; i < count; i++ {
			rule := ex.BusinessRules[i]
			if len(rule) > 50 {
				rule = rule[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", rule))
		}
		if len(ex.BusinessRules) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(ex.BusinessRules)-3))
		}
	}

	p.printBox("EXTRACTED REQUIREMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintApp outputs the outcome of a generation cycle.
func (p *Printer) PrintApp(app *types.App) {
	if app == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:    %s\n", app.Name))
	sb.WriteString(fmt.Sprintf("Status:  %s\n", app.Status))
	sb.WriteString(fmt.Sprintf("Model:   %s\n", app.Metadata.Model))
	sb.WriteString(fmt.Sprintf("Tokens:  %d\n", app.Metadata.TokensUsed))
	sb.WriteString(fmt.Sprintf("Time:    %dms", app.Metadata.ProcessingTimeMS))

	if app.ErrorMessage != "" {
		msg := app.ErrorMessage
		if len(msg) > 50 {
			msg = msg[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("\n\nError: %s", msg))
	} else {
		sb.WriteString(fmt.Sprintf("\nCode:    %d bytes", len(app.Code)))
	}

	p.printBox("GENERATED APP", sb.String())
}

// PrintVerification outputs a verification verdict.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintVerification(valid bool, diagnostic string) {
	if valid {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ VERIFICATION PASSED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString("⚠ verification failed\n\n")
	for _, line := range wrapText(diagnostic, boxWidth-6) {
		sb.WriteString(line + "\n")
	}
	p.printBox("VERIFICATION FAILED", strings.TrimSuffix(sb.String(), "\n"))
}

func wrapText(s string, width int) []string {
	if width < 1 {
		return []string{s}
	}
	var lines []string
	for len(s) > width {
		lines = append(lines, s[:width])
		s = s[width:]
	}
	return append(lines, s)
}
