package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "LRCSYNC_"

// xdgConfigFile is looked up under the XDG config directories when no path is given.
const xdgConfigFile = "lrcsync/config.yaml"

// Load resolves the configuration from the built-in defaults, a YAML file and
// the environment, in that order. An explicit path must exist. Without one the
// XDG config directories are searched and a missing file is not an error.
// Variables from a .env file in the working directory are loaded first but
// never override the real environment. The result is not validated yet, the
// caller applies command line flags and then calls Validate.
func Load(path string) (*Config, error) {
	cfg := createDefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		if found, err := xdg.SearchConfigFile(xdgConfigFile); err == nil {
			path = found
		}
	}
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		slog.Debug("Loaded configuration file", "path", path)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// Validate normalizes the ignore list and checks every field. Any error here
// is fatal and must be reported before a single file is processed.
func Validate(cfg *Config) error {
	cfg.Ignore = normalizeIgnore(cfg.Ignore)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config validation failed: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			msgs = append(msgs, fmt.Sprintf("%s: invalid value %v (%s)", fe.Namespace(), fe.Value(), rule))
		}
		return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// normalizeIgnore splits comma separated entries and drops blanks.
func normalizeIgnore(values []string) []string {
	out := []string{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// applyEnv overrides cfg with LRCSYNC_* variables. Malformed values are
// collected and reported together.
func applyEnv(cfg *Config) error {
	var errs []error
	envString("LRCLIB_URL", &cfg.LrclibURL)
	envString("ROOT", &cfg.Root)
	errs = append(errs,
		envBool("HIDDEN", &cfg.Hidden),
		envBool("FORCE", &cfg.Force),
		envBool("SEARCH", &cfg.Search),
		envFloat("TOLERANCE", &cfg.Tolerance),
		envInt("JOBS", &cfg.Jobs),
		envDuration("TIMEOUT", &cfg.Timeout),
		envInt("RETRIES", &cfg.Retries),
		envDuration("RETRY_BACKOFF", &cfg.RetryBackoff),
		envBool("DRY_RUN", &cfg.DryRun),
		envBool("WATCH", &cfg.Watch),
		envBool("TELEGRAM_ENABLED", &cfg.Telegram.Enabled),
		envInt64("TELEGRAM_CHAT_ID", &cfg.Telegram.ChatID),
	)
	if v, ok := lookup("IGNORE"); ok {
		cfg.Ignore = []string{v}
	}
	envString("LOG_LEVEL", &cfg.Logger.Level)
	envString("LOG_FORMAT", &cfg.Logger.Format)
	envString("LOG_FILE", &cfg.Logger.File)
	envString("METRICS_TEXTFILE", &cfg.Metrics.Textfile)
	envString("TELEGRAM_TOKEN", &cfg.Telegram.Token)
	return errors.Join(errs...)
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
}

func envString(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envBool(name string, dst *bool) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = b
	return nil
}

func envFloat(name string, dst *float64) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = f
	return nil
}

func envInt(name string, dst *int) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = i
	return nil
}

func envInt64(name string, dst *int64) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = i
	return nil
}

func envDuration(name string, dst *time.Duration) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}
