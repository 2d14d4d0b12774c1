package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:     "simple key-value",
			content:  "IDEACHECK_TOKEN=secret123",
			expected: map[string]string{"IDEACHECK_TOKEN": "secret123"},
		},
		{
			name:    "multiple keys",
			content: "KEY1=value1\nKEY2=value2\nKEY3=value3",
			expected: map[string]string{
				"KEY1": "value1",
				"KEY2": "value2",
				"KEY3": "value3",
			},
		},
		{
			name:     "double quoted value",
			content:  `IDEACHECK_PASSWORD="secret with spaces"`,
			expected: map[string]string{"IDEACHECK_PASSWORD": "secret with spaces"},
		},
		{
			name:     "single quoted value",
			content:  `IDEACHECK_PASSWORD='secret with spaces'`,
			expected: map[string]string{"IDEACHECK_PASSWORD": "secret with spaces"},
		},
		{
			name:     "comments are skipped",
			content:  "# This is a comment\nIDEACHECK_TOKEN=secret",
			expected: map[string]string{"IDEACHECK_TOKEN": "secret"},
		},
		{
			name:    "empty lines are skipped",
			content: "KEY1=value1\n\n\nKEY2=value2",
			expected: map[string]string{
				"KEY1": "value1",
				"KEY2": "value2",
			},
		},
		{
			name:     "value with equals sign",
			content:  "IDEACHECK_BASE_URL=http://localhost:5000/?a=b",
			expected: map[string]string{"IDEACHECK_BASE_URL": "http://localhost:5000/?a=b"},
		},
		{
			name:     "export prefix",
			content:  "export IDEACHECK_EMAIL=qa@example.com",
			expected: map[string]string{"IDEACHECK_EMAIL": "qa@example.com"},
		},
		{
			name:     "empty file",
			content:  "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := LoadDotEnv(writeEnvFile(t, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadDotEnvFileNotFound(t *testing.T) {
	_, err := LoadDotEnv("/nonexistent/path/.env")
	assert.Error(t, err)
}

func TestStripPrefix(t *testing.T) {
	vars := map[string]string{
		"IDEACHECK_TOKEN": "abc",
		"IDEACHECK_":      "ignored",
		"TOKEN":           "other",
	}
	assert.Equal(t, map[string]string{"TOKEN": "abc"}, StripPrefix(vars, "IDEACHECK_"))
}

func TestLoadSystemEnv(t *testing.T) {
	t.Setenv("IDEACHECK_BASE_URL", "http://localhost:5000")
	t.Setenv("IDEACHECK_", "ignored")
	t.Setenv("OTHER_BASE_URL", "http://other")

	vars := LoadSystemEnv("IDEACHECK_")
	assert.Equal(t, "http://localhost:5000", vars["BASE_URL"])
	assert.NotContains(t, vars, "")
	for k := range vars {
		assert.NotContains(t, k, "OTHER")
	}

	all := LoadSystemEnv("")
	assert.Equal(t, "http://other", all["OTHER_BASE_URL"])
}

func TestMergeVariables(t *testing.T) {
	merged := MergeVariables(
		map[string]string{"a": "1", "b": "1"},
		nil,
		map[string]string{"b": "2"},
	)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, merged)
}
