package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/ideacheck/packages/core/env"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by ApplyEnv
const EnvPrefix = "IDEACHECK_"

// Config represents the ideacheck configuration
type Config struct {
	BaseURL         string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	Token           string            `json:"token,omitempty" yaml:"token,omitempty"`
	Email           string            `json:"email,omitempty" yaml:"email,omitempty"`
	Password        string            `json:"password,omitempty" yaml:"password,omitempty"`
	Timeout         int               `json:"timeout,omitempty" yaml:"timeout,omitempty"` // milliseconds
	RateLimit       float64           `json:"rate,omitempty" yaml:"rate,omitempty"`       // requests per second
	FollowRedirects *bool             `json:"followRedirects,omitempty" yaml:"followRedirects,omitempty"`
	ValidateSSL     *bool             `json:"validateSSL,omitempty" yaml:"validateSSL,omitempty"`
	Proxy           string            `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"` // Default headers for all requests
	Reporters       []string          `json:"reporters,omitempty" yaml:"reporters,omitempty"`
	OutputFile      string            `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
	Filter          string            `json:"filter,omitempty" yaml:"filter,omitempty"`
	Bail            *bool             `json:"bail,omitempty" yaml:"bail,omitempty"`
	Verbose         *bool             `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	NoColor         *bool             `json:"noColor,omitempty" yaml:"noColor,omitempty"`
	ValidateSchemas *bool             `json:"validateSchemas,omitempty" yaml:"validateSchemas,omitempty"`
	WaitTimeout     int               `json:"waitTimeout,omitempty" yaml:"waitTimeout,omitempty"` // milliseconds
	History         HistoryConfig     `json:"history,omitempty" yaml:"history,omitempty"`
	Notify          NotifyConfig      `json:"notify,omitempty" yaml:"notify,omitempty"`
}

// HistoryConfig controls the SQLite run history
type HistoryConfig struct {
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
}

// NotifyConfig controls post-run webhook notifications
type NotifyConfig struct {
	Type    string `json:"type,omitempty" yaml:"type,omitempty"` // slack or teams
	Webhook string `json:"webhook,omitempty" yaml:"webhook,omitempty"`
	On      string `json:"on,omitempty" yaml:"on,omitempty"` // always, failure, success, recovery
}

// boolPtr returns a pointer to a bool value
func boolPtr(b bool) *bool {
	return &b
}

// BoolPtr is exported version of boolPtr for external use
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to true
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, true)
}

// GetBail returns the bail setting, defaulting to false
func (c *Config) GetBail() bool {
	return getBool(c.Bail, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// GetValidateSchemas returns the schema validation setting, defaulting to false
func (c *Config) GetValidateSchemas() bool {
	return getBool(c.ValidateSchemas, false)
}

// GetTimeout returns the request timeout as a duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetWaitTimeout returns how long setup waits for the service, zero for not at all
func (c *Config) GetWaitTimeout() time.Duration {
	return time.Duration(c.WaitTimeout) * time.Millisecond
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"ideacheck.yaml",
	"ideacheck.yml",
	".ideacheck.json",
	"ideacheck.config.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindConfigFile returns the first config file present in dir, or "" if none
func FindConfigFile(dir string) string {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}
	return ""
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	if configPath := FindConfigFile(dir); configPath != "" {
		return loadConfigFromFile(configPath)
	}

	// Return defaults if no config file found
	return DefaultConfig(), nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.Token != "" {
		result.Token = other.Token
	}
	if other.Email != "" {
		result.Email = other.Email
	}
	if other.Password != "" {
		result.Password = other.Password
	}
	if other.Timeout > 0 {
		result.Timeout = other.Timeout
	}
	if other.RateLimit > 0 {
		result.RateLimit = other.RateLimit
	}
	if other.Proxy != "" {
		result.Proxy = other.Proxy
	}
	if other.OutputFile != "" {
		result.OutputFile = other.OutputFile
	}
	if other.Filter != "" {
		result.Filter = other.Filter
	}
	if other.WaitTimeout > 0 {
		result.WaitTimeout = other.WaitTimeout
	}
	if other.History.Database != "" {
		result.History.Database = other.History.Database
	}
	if other.Notify.Type != "" {
		result.Notify.Type = other.Notify.Type
	}
	if other.Notify.Webhook != "" {
		result.Notify.Webhook = other.Notify.Webhook
	}
	if other.Notify.On != "" {
		result.Notify.On = other.Notify.On
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.Bail != nil {
		result.Bail = other.Bail
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}
	if other.ValidateSchemas != nil {
		result.ValidateSchemas = other.ValidateSchemas
	}

	// Merge headers
	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(result.Headers)+len(other.Headers))
		for k, v := range result.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	// Merge reporters
	if len(other.Reporters) > 0 {
		result.Reporters = other.Reporters
	}

	return &result
}

// ApplyEnv overlays values read from IDEACHECK_* variables. Keys are given
// without the prefix, as returned by env.LoadSystemEnv.
func (c *Config) ApplyEnv(vars map[string]string) error {
	overlay := &Config{
		BaseURL:  vars["BASE_URL"],
		Token:    vars["TOKEN"],
		Email:    vars["EMAIL"],
		Password: vars["PASSWORD"],
		History:  HistoryConfig{Database: vars["HISTORY_DB"]},
	}

	if v := vars["TIMEOUT"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT %q: %w", EnvPrefix, v, err)
		}
		overlay.Timeout = int(d.Milliseconds())
	}
	if v := vars["RATE"]; v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sRATE %q: %w", EnvPrefix, v, err)
		}
		overlay.RateLimit = rate
	}

	*c = *c.Merge(overlay)
	return nil
}

// Resolve expands {{name}} and ${NAME} placeholders in string settings
func (c *Config) Resolve(r *env.Resolver) {
	c.BaseURL = r.Resolve(c.BaseURL)
	c.Token = r.Resolve(c.Token)
	c.Email = r.Resolve(c.Email)
	c.Password = r.Resolve(c.Password)
	c.Proxy = r.Resolve(c.Proxy)
	c.History.Database = r.Resolve(c.History.Database)
	c.Notify.Webhook = r.Resolve(c.Notify.Webhook)
	c.Headers = r.ResolveMap(c.Headers)
}

var (
	ErrMissingBaseURL     = errors.New("baseUrl is required")
	ErrMissingCredentials = errors.New("either token or email and password are required")
)

// Validate checks that a run can be attempted with this configuration
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, ErrMissingBaseURL)
	}
	if strings.TrimSpace(c.Token) == "" && (c.Email == "" || c.Password == "") {
		errs = append(errs, ErrMissingCredentials)
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %d", c.Timeout))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate must not be negative, got %v", c.RateLimit))
	}
	return errors.Join(errs...)
}

// SaveConfig saves the configuration to a file, as YAML or JSON by extension
func (c *Config) SaveConfig(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
