package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempApp(t *testing.T, code string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.jsx")
	require.NoError(t, os.WriteFile(path, []byte(code), 0o644))
	return path
}

func TestRunVerify_ValidFile(t *testing.T) {
	path := writeTempApp(t, "const App = () => React.createElement('div', null, 'hi');")
	assert.NoError(t, runVerify(nil, []string{path}))
}

func TestRunVerify_LintFailure(t *testing.T) {
	path := writeTempApp(t, "fetch('/api/data');")

	err := runVerify(nil, []string{path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lint error")
}

func TestRunVerify_MissingFile(t *testing.T) {
	err := runVerify(nil, []string{filepath.Join(t.TempDir(), "absent.jsx")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
