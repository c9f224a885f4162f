package config

import "time"

const (
	DefaultLrclibURL = "https://lrclib.net"
	DefaultTolerance = 5.0
	DefaultJobs      = 4

	DefaultTimeout      = 10 * time.Second
	DefaultRetryBackoff = time.Second
)

// createDefaultConfig creates a new Config with sensible default values
func createDefaultConfig() *Config {
	return &Config{
		LrclibURL:    DefaultLrclibURL,
		Root:         ".",
		Hidden:       false,
		Force:        false,
		Search:       false,
		Ignore:       []string{},
		Tolerance:    DefaultTolerance,
		Jobs:         DefaultJobs,
		Timeout:      DefaultTimeout,
		Retries:      0,
		RetryBackoff: DefaultRetryBackoff,
		Logger: Logger{
			Level:  "info",
			Format: "text",
		},
		Telegram: Telegram{
			Enabled: false,
			Token:   "", // Can be obtained with https://t.me/BotFather
		},
	}
}
