package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/appforge/internal/types"
)

func testRequirement() *types.Requirement {
	return &types.Requirement{
		Title:     "Task Manager",
		Prompt:    "I need an app where team members can create and assign tasks.",
		ColorCode: "#1976d2",
		Extraction: types.Extraction{
			AppName:  "Task Manager",
			Entities: []string{"Task", "Project"},
			Roles:    []string{"admin", "member"},
			Features: []types.Feature{
				{Title: "Create tasks", Description: "Members create tasks", Category: "CRUD", UserRole: "member"},
			},
			TechnicalRequirements: []string{"React", "MaterialUI"},
			BusinessRules:         []string{"Only admins can delete projects"},
		},
	}
}

func TestBuildGenerationPrompt_Deterministic(t *testing.T) {
	req := testRequirement()

	first := BuildGenerationPrompt(req, "")
	second := BuildGenerationPrompt(req, "")

	assert.Equal(t, first, second)
}

func TestBuildGenerationPrompt_ContainsRequirement(t *testing.T) {
	prompt := BuildGenerationPrompt(testRequirement(), "")

	assert.Contains(t, prompt, "Task Manager")
	assert.Contains(t, prompt, "create and assign tasks")
	assert.Contains(t, prompt, "#1976d2")
	assert.Contains(t, prompt, "Only admins can delete projects")
	assert.Contains(t, prompt, "React, MaterialUI")
	// No placeholder should survive formatting.
	assert.NotContains(t, prompt, "{{.")
}

func TestBuildGenerationPrompt_WarningSection(t *testing.T) {
	req := testRequirement()
	diagnostic := "lint error: 'fetch' is not defined at line 12, column 5"

	plain := BuildGenerationPrompt(req, "")
	withWarning := BuildGenerationPrompt(req, diagnostic)

	assert.NotContains(t, plain, "previous attempt")
	assert.Contains(t, withWarning, diagnostic)
	// The warning prompt is the plain prompt plus an appended section.
	assert.True(t, strings.HasPrefix(withWarning, plain))
	assert.Greater(t, len(withWarning), len(plain))
}

func TestBuildGenerationPrompt_BlankWarningIgnored(t *testing.T) {
	req := testRequirement()
	assert.Equal(t, BuildGenerationPrompt(req, ""), BuildGenerationPrompt(req, "   \n"))
}

func TestBuildGenerationPrompt_Defaults(t *testing.T) {
	req := testRequirement()
	req.Extraction.AppName = ""
	req.ColorCode = ""
	req.Extraction.TechnicalRequirements = nil

	prompt := BuildGenerationPrompt(req, "")

	// Falls back to the requirement title and default theme color.
	assert.Contains(t, prompt, "App Name: Task Manager")
	assert.Contains(t, prompt, types.DefaultColorCode)
	assert.Contains(t, prompt, "Modern web stack")
}

func TestExtractionSystemPrompt(t *testing.T) {
	prompt := ExtractionSystemPrompt()
	require.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "appName")
	assert.Contains(t, prompt, "businessRules")
}

func TestGet_UnknownKey(t *testing.T) {
	_, err := Get("generation.json", "no-such-prompt")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
