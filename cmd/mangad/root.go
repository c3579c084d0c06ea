package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mangad/internal/config"
)

// options collects persistent flags after PersistentPreRunE has merged the
// config file underneath them.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	cfg        config.Config
	log        zerolog.Logger
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "mangad",
		Short:         "Media prefetch engine for long-strip manga readers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("MANGAD_CONFIG"), "Config file (.yaml|.yml|.toml|.json); defaults MANGAD_CONFIG")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("MANGAD_LOG_LEVEL", "info"), "Log level: debug|info|warn|error (defaults MANGAD_LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "Log format: console|json")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.configPath != "" {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
				opts.logLevel = cfg.LogLevel
			}
			if !cmd.Flags().Changed("log-format") && cfg.LogFormat != "" {
				opts.logFormat = cfg.LogFormat
			}
		}
		l, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
		if err != nil {
			return err
		}
		opts.log = l
		return nil
	}

	root.AddCommand(newScanCmd(opts), newSimulateCmd(opts), newCheckCmd(opts))
	return root
}

// newLogger builds the root zerolog logger for the CLI.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	switch strings.ToLower(format) {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mediaDir picks the directory argument, falling back to the config file.
func mediaDir(opts *options, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if opts.cfg.MediaDir != "" {
		return opts.cfg.MediaDir, nil
	}
	return "", fmt.Errorf("media directory required (argument or media_dir in config)")
}
