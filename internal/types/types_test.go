package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBumpVersion(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "No suffix gets V2",
			input:    "Task Manager",
			expected: "Task Manager - V2",
		},
		{
			name:     "V2 increments to V3",
			input:    "Task Manager - V2",
			expected: "Task Manager - V3",
		},
		{
			name:     "V9 increments to V10",
			input:    "Task Manager - V9",
			expected: "Task Manager - V10",
		},
		{
			name:     "V10 increments to V11",
			input:    "Task Manager - V10",
			expected: "Task Manager - V11",
		},
		{
			name:     "Suffix mid-name is not a marker",
			input:    "Foo - V2 Dashboard",
			expected: "Foo - V2 Dashboard - V2",
		},
		{
			name:     "Lowercase v is not a marker",
			input:    "Foo - v2",
			expected: "Foo - v2 - V2",
		},
		{
			name:     "Empty name",
			input:    "",
			expected: " - V2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BumpVersion(tt.input))
		})
	}
}

func TestBumpVersionSequence(t *testing.T) {
	// Repeated bumps must never stack suffixes.
	name := "Foo"
	name = BumpVersion(name)
	assert.Equal(t, "Foo - V2", name)
	name = BumpVersion(name)
	assert.Equal(t, "Foo - V3", name)
	name = BumpVersion(name)
	assert.Equal(t, "Foo - V4", name)
}

func TestValidColorCode(t *testing.T) {
	assert.True(t, ValidColorCode("#1976d2"))
	assert.True(t, ValidColorCode("#FFFFFF"))
	assert.True(t, ValidColorCode("#000000"))
	assert.False(t, ValidColorCode("1976d2"))
	assert.False(t, ValidColorCode("#1976d"))
	assert.False(t, ValidColorCode("#1976d2f"))
	assert.False(t, ValidColorCode("#19Z6d2"))
	assert.False(t, ValidColorCode(""))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, RequirementProcessing.Valid())
	assert.True(t, RequirementDraft.Valid())
	assert.True(t, RequirementCompleted.Valid())
	assert.True(t, RequirementFailed.Valid())
	assert.False(t, RequirementStatus("pending").Valid())

	assert.True(t, AppGenerating.Valid())
	assert.True(t, AppCompleted.Valid())
	assert.True(t, AppFailed.Valid())
	assert.False(t, AppStatus("queued").Valid())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abcde", Truncate("abcdefgh", 5))
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "héll", Truncate("héllo", 4))
}
