package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetBail())
	assert.Equal(t, []string{"console"}, cfg.Reporters)
	assert.Equal(t, "failure", cfg.Notify.On)
	assert.True(t, cfg.IsDefault())
}

func TestGetBoolDefaults(t *testing.T) {
	cfg := &Config{}
	assert.True(t, cfg.GetFollowRedirects())
	assert.True(t, cfg.GetValidateSSL())
	assert.False(t, cfg.GetVerbose())
	assert.False(t, cfg.GetNoColor())
	assert.False(t, cfg.GetValidateSchemas())

	cfg.ValidateSSL = BoolPtr(false)
	assert.False(t, cfg.GetValidateSSL())
}

func TestLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	content := `baseUrl: http://localhost:5000
email: qa@example.com
password: secret
timeout: 5000
rate: 2.5
bail: true
headers:
  X-Tenant: qa
reporters: [console, junit]
history:
  database: runs.db
notify:
  type: slack
  webhook: https://hooks.example.com/x
`
	path := filepath.Join(dir, "ideacheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.BaseURL)
	assert.Equal(t, "qa@example.com", cfg.Email)
	assert.Equal(t, 5*time.Second, cfg.GetTimeout())
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.True(t, cfg.GetBail())
	assert.True(t, cfg.GetValidateSSL(), "unset fields keep defaults")
	assert.Equal(t, "qa", cfg.Headers["X-Tenant"])
	assert.Equal(t, []string{"console", "junit"}, cfg.Reporters)
	assert.Equal(t, "runs.db", cfg.History.Database)
	assert.Equal(t, "slack", cfg.Notify.Type)
	assert.Equal(t, "failure", cfg.Notify.On)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".ideacheck.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"baseUrl":"http://api","token":"tok","validateSSL":false}`), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://api", cfg.BaseURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.False(t, cfg.GetValidateSSL())
}

func TestFindAndLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ideacheck.config.json"), []byte(`{"baseUrl":"http://json"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ideacheck.yml"), []byte("baseUrl: http://yaml\n"), 0644))

	assert.Equal(t, filepath.Join(dir, "ideacheck.yml"), FindConfigFile(dir))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://yaml", cfg.BaseURL)
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ideacheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte("baseUrl: [unterminated"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.Headers = map[string]string{"A": "1"}

	merged := base.Merge(&Config{
		BaseURL:  "http://other",
		Verbose:  BoolPtr(true),
		Headers:  map[string]string{"B": "2"},
		History:  HistoryConfig{Database: "h.db"},
		Notify:   NotifyConfig{On: "always"},
		Password: "pw",
	})

	assert.Equal(t, "http://other", merged.BaseURL)
	assert.True(t, merged.GetVerbose())
	assert.Equal(t, map[string]string{"A": "1", "B": "2"}, merged.Headers)
	assert.Equal(t, map[string]string{"A": "1"}, base.Headers, "base headers untouched")
	assert.Equal(t, "h.db", merged.History.Database)
	assert.Equal(t, "always", merged.Notify.On)
	assert.Equal(t, 30000, merged.Timeout)
	assert.Same(t, base, base.Merge(nil))
}

func TestApplyEnv(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://from-file"

	err := cfg.ApplyEnv(map[string]string{
		"BASE_URL":   "http://from-env",
		"TOKEN":      "env-token",
		"TIMEOUT":    "2s",
		"RATE":       "4",
		"HISTORY_DB": "env.db",
	})
	require.NoError(t, err)

	assert.Equal(t, "http://from-env", cfg.BaseURL)
	assert.Equal(t, "env-token", cfg.Token)
	assert.Equal(t, 2*time.Second, cfg.GetTimeout())
	assert.Equal(t, 4.0, cfg.RateLimit)
	assert.Equal(t, "env.db", cfg.History.Database)

	assert.Error(t, cfg.ApplyEnv(map[string]string{"TIMEOUT": "soon"}))
	assert.Error(t, cfg.ApplyEnv(map[string]string{"RATE": "fast"}))
}

func TestResolve(t *testing.T) {
	r := env.NewResolver()
	r.SetVariables(map[string]string{"HOST": "qa.example.com", "SECRET": "pw"})

	cfg := &Config{
		BaseURL:  "https://${HOST}",
		Password: "{{SECRET}}",
		Headers:  map[string]string{"X-Host": "{{HOST}}"},
	}
	cfg.Resolve(r)

	assert.Equal(t, "https://qa.example.com", cfg.BaseURL)
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, "qa.example.com", cfg.Headers["X-Host"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"token", Config{BaseURL: "http://a", Token: "t"}, nil},
		{"credentials", Config{BaseURL: "http://a", Email: "e", Password: "p"}, nil},
		{"missing base url", Config{Token: "t"}, ErrMissingBaseURL},
		{"blank token no credentials", Config{BaseURL: "http://a", Token: "  "}, ErrMissingCredentials},
		{"email only", Config{BaseURL: "http://a", Email: "e"}, ErrMissingCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.BaseURL = "http://localhost:5000"
	cfg.Email = "qa@example.com"

	for _, name := range []string{"ideacheck.yaml", "ideacheck.config.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveConfig(path))

		loaded, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, cfg.BaseURL, loaded.BaseURL)
		assert.Equal(t, cfg.Email, loaded.Email)
		assert.Equal(t, cfg.Timeout, loaded.Timeout)
	}
}
