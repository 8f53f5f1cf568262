package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "JSX fence",
			input:    "```jsx\nconst App = () => <div />;\n```",
			expected: "const App = () => <div />;",
		},
		{
			name:     "JavaScript fence",
			input:    "```javascript\nconst x = 1;\n```",
			expected: "const x = 1;",
		},
		{
			name:     "Generic fence",
			input:    "```\nconst x = 1;\n```",
			expected: "const x = 1;",
		},
		{
			name:     "No fence",
			input:    "const x = 1;",
			expected: "const x = 1;",
		},
		{
			name:     "Surrounding whitespace",
			input:    "  \n```jsx\nconst x = 1;\n```\n  ",
			expected: "const x = 1;",
		},
		{
			name:     "Internal backticks preserved",
			input:    "```jsx\nconst s = `template`;\n```",
			expected: "const s = `template`;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanCodeBlock(tt.input))
		})
	}
}

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "JSON fence",
			input:    "```json\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "Generic fence",
			input:    "```\n{\"a\": 1}\n```",
			expected: `{"a": 1}`,
		},
		{
			name:     "Bare JSON",
			input:    `{"a": 1}`,
			expected: `{"a": 1}`,
		},
		{
			name:     "Fence with brace on first line",
			input:    "```{\"a\": 1}```",
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}
