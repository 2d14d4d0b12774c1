package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Timeout:         30000, // 30 seconds
		FollowRedirects: boolPtr(true),
		ValidateSSL:     boolPtr(true),
		Reporters:       []string{"console"},
		Bail:            boolPtr(false),
		Verbose:         boolPtr(false),
		NoColor:         boolPtr(false),
		ValidateSchemas: boolPtr(false),
		Notify: NotifyConfig{
			On: "failure",
		},
	}
}

// IsDefault returns true if the config matches defaults
func (c *Config) IsDefault() bool {
	defaults := DefaultConfig()
	return c.BaseURL == "" &&
		c.Token == "" &&
		c.Email == "" &&
		c.Password == "" &&
		c.Timeout == defaults.Timeout &&
		c.RateLimit == 0 &&
		c.GetFollowRedirects() == defaults.GetFollowRedirects() &&
		c.GetValidateSSL() == defaults.GetValidateSSL() &&
		c.Proxy == "" &&
		len(c.Headers) == 0 &&
		c.OutputFile == "" &&
		c.Filter == "" &&
		c.GetBail() == defaults.GetBail() &&
		c.GetVerbose() == defaults.GetVerbose() &&
		c.GetNoColor() == defaults.GetNoColor() &&
		c.GetValidateSchemas() == defaults.GetValidateSchemas() &&
		c.WaitTimeout == 0 &&
		c.History == defaults.History &&
		c.Notify == defaults.Notify
}
