package config

import "time"

// Config holds the application configuration.
type Config struct {
	LrclibURL    string        `yaml:"lrclibURL" validate:"required,url"`
	Root         string        `yaml:"root" validate:"required,dir"`
	Hidden       bool          `yaml:"hidden"`
	Force        bool          `yaml:"force"`
	Search       bool          `yaml:"search"`
	Ignore       []string      `yaml:"ignore" validate:"dive,oneof=title track track_name artist artist_name album album_name duration"`
	Tolerance    float64       `yaml:"tolerance" validate:"gte=0"`
	Jobs         int           `yaml:"jobs" validate:"min=1,max=64"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	Retries      int           `yaml:"retries" validate:"min=0,max=10"`
	RetryBackoff time.Duration `yaml:"retryBackoff" validate:"gte=0"`
	DryRun       bool          `yaml:"dryRun"`
	Watch        bool          `yaml:"watch"`
	Logger       Logger        `yaml:"logger"`
	Metrics      Metrics       `yaml:"metrics"`
	Telegram     Telegram      `yaml:"telegram"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text logfmt json"`
	File   string `yaml:"file"` // rotated log file, stderr only when empty
}

// Metrics holds where the end of run Prometheus textfile goes
type Metrics struct {
	Textfile string `yaml:"textfile"`
}

// Telegram holds the run summary notification settings
type Telegram struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
	ChatID  int64  `yaml:"chatID" validate:"required_if=Enabled true"`
}
