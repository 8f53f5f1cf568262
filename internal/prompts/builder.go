package prompts

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/appforge/internal/types"
)

const generationFile = "generation.json"

// ExtractionSystemPrompt returns the system prompt for requirements
// extraction.
func ExtractionSystemPrompt() string {
	return MustGet(generationFile, "extraction-system")
}

// BuildGenerationPrompt assembles the full code-generation prompt for a
// requirement. The result is deterministic for identical inputs. When warning
// is non-blank, a correction section describing the previous failure is
// appended; a blank warning produces a prompt with no trace of the section.
func BuildGenerationPrompt(req *types.Requirement, warning string) string {
	appName := req.Extraction.AppName
	if appName == "" {
		appName = req.Title
	}

	colorCode := req.ColorCode
	if colorCode == "" {
		colorCode = types.DefaultColorCode
	}

	extractionJSON, err := json.MarshalIndent(req.Extraction, "", "  ")
	if err != nil {
		// Extraction is a plain struct; marshaling cannot fail in practice.
		extractionJSON = []byte("{}")
	}

	techReqs := strings.Join(req.Extraction.TechnicalRequirements, ", ")
	if techReqs == "" {
		techReqs = "Modern web stack"
	}

	var sb strings.Builder
	sb.WriteString(MustGet(generationFile, "code-system"))
	sb.WriteString("\n\n")
	sb.WriteString(Format(MustGet(generationFile, "code-user"), map[string]string{
		"AppName":               appName,
		"Prompt":                req.Prompt,
		"ColorCode":             colorCode,
		"Extraction":            string(extractionJSON),
		"TechnicalRequirements": techReqs,
	}))

	if strings.TrimSpace(warning) != "" {
		sb.WriteString(Format(MustGet(generationFile, "warning-section"), map[string]string{
			"Warning": warning,
		}))
	}

	return sb.String()
}
