package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validExtraction = `{
	"appName": "Task Manager",
	"entities": ["Task", "Project"],
	"roles": ["admin", "member"],
	"features": [
		{
			"title": "Create tasks",
			"description": "Members create and assign tasks",
			"category": "CRUD",
			"userRole": "member",
			"hint": ""
		}
	],
	"technicalRequirements": ["React"],
	"businessRules": ["Only admins can delete projects"]
}`

func TestValidateExtraction_Valid(t *testing.T) {
	assert.NoError(t, ValidateExtraction(validExtraction))
}

func TestValidateExtraction_EmptyArraysAllowed(t *testing.T) {
	blob := `{
		"appName": "",
		"entities": [],
		"roles": [],
		"features": [],
		"technicalRequirements": [],
		"businessRules": []
	}`
	assert.NoError(t, ValidateExtraction(blob))
}

func TestValidateExtraction_MissingField(t *testing.T) {
	blob := `{
		"appName": "Task Manager",
		"entities": [],
		"roles": [],
		"features": [],
		"technicalRequirements": []
	}`

	err := ValidateExtraction(blob)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.NotEmpty(t, ve.Errors)
	assert.Contains(t, err.Error(), "businessRules")
}

func TestValidateExtraction_FeatureWithoutTitle(t *testing.T) {
	blob := `{
		"appName": "Task Manager",
		"entities": [],
		"roles": [],
		"features": [{"description": "orphan feature"}],
		"technicalRequirements": [],
		"businessRules": []
	}`

	err := ValidateExtraction(blob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title")
}

func TestValidateExtraction_WrongType(t *testing.T) {
	blob := `{
		"appName": "Task Manager",
		"entities": "Task",
		"roles": [],
		"features": [],
		"technicalRequirements": [],
		"businessRules": []
	}`

	err := ValidateExtraction(blob)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
}

func TestValidateExtraction_MalformedJSON(t *testing.T) {
	err := ValidateExtraction(`{not json`)
	require.Error(t, err)

	var sle *SchemaLoadError
	assert.True(t, errors.As(err, &sle))
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": "nope"}`, `{}`)
	assert.Error(t, err)
}
