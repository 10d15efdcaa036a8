package config

// Settings holds the bot options that chat commands can change at runtime.
// The zero value is not usable; start from Defaults().
type Settings struct {
	CommandsPrefix        string   `yaml:"commands_prefix"`
	RefreshInterval       int      `yaml:"refresh_interval"` // seconds
	IntervalJitterPercent int      `yaml:"interval_jitter_percent"`
	RequestDelayMin       int      `yaml:"request_delay_min"` // seconds
	RequestDelayMax       int      `yaml:"request_delay_max"` // seconds
	MaxRetries            int      `yaml:"max_retries"`
	RetryBaseDelay        int      `yaml:"retry_base_delay"` // seconds
	UserAgents            []string `yaml:"user_agents"`
}

func Defaults() Settings {
	return Settings{
		CommandsPrefix:        "!",
		RefreshInterval:       60,
		IntervalJitterPercent: 10,
		RequestDelayMin:       1,
		RequestDelayMax:       5,
		MaxRetries:            5,
		RetryBaseDelay:        10,
		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:89.0) Gecko/20100101 Firefox/89.0",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Safari/605.1.15",
		},
	}
}
