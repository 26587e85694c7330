// Package main is the kabbel CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kabbel/internal/cli"
	"github.com/hyperjump/kabbel/internal/config"
	"github.com/hyperjump/kabbel/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kabbel/config.yaml"

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	envFile    string
	format     string
	debug      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "kabbel",
		Short: "Question answering over Swedish parliamentary debates and party programs",
		Long: `kabbel indexes Riksdag debate speeches and party programs and answers
questions about Swedish politics with sources, or with exact per-party
keyword statistics.

Example usage:
  kabbel ingest debates data/anforanden.jsonl
  kabbel ingest programs data/partiprogram
  kabbel ask "Vad tycker V om klimatet sedan 2020?"
  kabbel stats --terms klimat --from 2020 --to 2024
  kabbel server`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with API keys (ignored when missing)")
	root.PersistentFlags().StringVar(&opts.format, "format", "text", "output format: text or json")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServerCmd(opts),
		newIngestCmd(opts),
		newAskCmd(opts),
		newStatsCmd(opts),
		newStatusCmd(opts),
		newInspectCmd(opts),
		newCompareCmd(opts),
		newWordSearchCmd(opts),
		newDeleteCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kabbel version %s\n", version)
		},
	}
}

// loadEnv reads API keys from a dotenv file. Variables already set in the
// environment win over the file.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory is preferred, and a missing default file yields the
// built-in defaults. Returns the config and the path that was loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the environment, config and logger shared by every command.
func (o *rootOptions) setup() (*config.Config, *zap.Logger, error) {
	if err := loadEnv(o.envFile); err != nil {
		return nil, nil, err
	}
	cfg, resolved, err := loadConfig(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || o.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, logger, nil
}

func (o *rootOptions) outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(o.format)
}
