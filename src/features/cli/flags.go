package cli

import (
	"github.com/contre95/lrcsync/src/features/config"
	"github.com/spf13/pflag"
)

func registerFlags(fs *pflag.FlagSet) {
	fs.StringP("lrclib-url", "u", config.DefaultLrclibURL, "LRCLIB instance to query")
	fs.BoolP("hidden", "a", false, "Include hidden files and directories")
	fs.BoolP("force", "f", false, "Overwrite existing .lrc files")
	fs.StringSliceP("ignore", "i", nil, "Fields left out of searches (title, artist, album, duration)")
	fs.BoolP("search", "s", false, "Fall back to a search when the exact lookup finds nothing")
	fs.Float64P("tolerance", "t", config.DefaultTolerance, "Maximum duration difference in seconds for search results")
	fs.BoolP("version", "V", false, "Print version information")

	fs.String("config", "", "Path to the YAML configuration file")
	fs.IntP("jobs", "j", config.DefaultJobs, "Number of files processed concurrently")
	fs.Duration("timeout", config.DefaultTimeout, "Timeout of a single LRCLIB request")
	fs.Int("retries", 0, "Times a failed lookup is retried")
	fs.Duration("retry-backoff", config.DefaultRetryBackoff, "Base wait between lookup retries, grows linearly")
	fs.Bool("dry-run", false, "Resolve lyrics without writing any file")
	fs.BoolP("watch", "w", false, "Keep watching the directory for new audio files")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("log-format", "", "Log format (text, logfmt, json)")
	fs.String("log-file", "", "Also write logs to this rotated file")
	fs.String("metrics-textfile", "", "Write Prometheus metrics to this file when the run ends")
	fs.Bool("print-config", false, "Print the resolved configuration and exit")
}

// applyFlags copies every flag set on the command line over cfg. Flags left
// at their default keep the value from the file or the environment.
func applyFlags(fs *pflag.FlagSet, cfg *config.Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "lrclib-url":
			cfg.LrclibURL, err = fs.GetString(f.Name)
		case "hidden":
			cfg.Hidden, err = fs.GetBool(f.Name)
		case "force":
			cfg.Force, err = fs.GetBool(f.Name)
		case "ignore":
			cfg.Ignore, err = fs.GetStringSlice(f.Name)
		case "search":
			cfg.Search, err = fs.GetBool(f.Name)
		case "tolerance":
			cfg.Tolerance, err = fs.GetFloat64(f.Name)
		case "jobs":
			cfg.Jobs, err = fs.GetInt(f.Name)
		case "timeout":
			cfg.Timeout, err = fs.GetDuration(f.Name)
		case "retries":
			cfg.Retries, err = fs.GetInt(f.Name)
		case "retry-backoff":
			cfg.RetryBackoff, err = fs.GetDuration(f.Name)
		case "dry-run":
			cfg.DryRun, err = fs.GetBool(f.Name)
		case "watch":
			cfg.Watch, err = fs.GetBool(f.Name)
		case "log-level":
			cfg.Logger.Level, err = fs.GetString(f.Name)
		case "log-format":
			cfg.Logger.Format, err = fs.GetString(f.Name)
		case "log-file":
			cfg.Logger.File, err = fs.GetString(f.Name)
		case "metrics-textfile":
			cfg.Metrics.Textfile, err = fs.GetString(f.Name)
		}
	})
	return err
}
