package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kabbel/internal/cli"
	"github.com/hyperjump/kabbel/internal/models"
	"github.com/hyperjump/kabbel/internal/server"
)

// serverFlag is the --server flag shared by commands that can run against a
// live server. Empty means open the index directly.
func serverFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "server", "", "server URL, e.g. http://localhost:8080 (empty = open the index directly)")
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// buildQuestion joins positional args so quoting is optional.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question about Swedish politics",
		Long: `Answer a question with sources from debates and party programs, or with
per-party keyword statistics when the question asks for counts.

Examples:
  kabbel ask Vad tycker Vänsterpartiet om klimatet sedan 2020?
  kabbel ask "Hur ofta pratar partierna om gängvåld 2022-2024?"
  kabbel ask --server http://localhost:8080 --format json "Vad vill M med skolan?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			question := buildQuestion(args)
			if question == "" {
				return fmt.Errorf("question is required")
			}
			ctx, stop := signalContext()
			defer stop()

			var ans *models.Answer
			var colors map[string]string
			if serverURL != "" {
				cfg, _, err := opts.setup()
				if err != nil {
					return err
				}
				colors = cfg.PartyColors()
				ans, err = cli.NewClient(serverURL, nil).Ask(ctx, question)
				if ans == nil {
					return err
				}
				return writeAnswerThen(cmd, ans, format, colors, err)
			}
			comps, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer comps.Close()
			colors = comps.Config.PartyColors()
			ans, err = comps.Engine.Ask(ctx, question)
			if ans == nil {
				return err
			}
			return writeAnswerThen(cmd, ans, format, colors, err)
		},
	}
	serverFlag(cmd, &serverURL)
	return cmd
}

// writeAnswerThen writes ans and returns askErr, so a partial answer is shown
// before a generation failure is reported.
func writeAnswerThen(cmd *cobra.Command, ans *models.Answer, format cli.OutputFormat, colors map[string]string, askErr error) error {
	if err := cli.WriteAnswer(cmd.OutOrStdout(), ans, format, colors); err != nil {
		return err
	}
	return askErr
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var (
		serverURL string
		terms     []string
		from, to  int
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count debate speeches per party that mention any of the terms",
		Example: `  kabbel stats --terms klimat --from 2020 --to 2024
  kabbel stats --terms gängvåld,skjutningar --from 2018 --to 2024 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			if len(terms) == 0 {
				return fmt.Errorf("--terms is required")
			}
			ctx, stop := signalContext()
			defer stop()

			var st *models.Statistics
			var colors map[string]string
			if serverURL != "" {
				cfg, _, err := opts.setup()
				if err != nil {
					return err
				}
				colors = cfg.PartyColors()
				if st, err = cli.NewClient(serverURL, nil).Statistics(ctx, terms, from, to); err != nil {
					return err
				}
			} else {
				comps, err := opts.open(ctx)
				if err != nil {
					return err
				}
				defer comps.Close()
				colors = comps.Config.PartyColors()
				if st, err = comps.Engine.Statistics(ctx, terms, from, to); err != nil {
					return err
				}
			}
			return cli.WriteStatistics(cmd.OutOrStdout(), st, format, colors)
		},
	}
	cmd.Flags().StringSliceVar(&terms, "terms", nil, "search terms (comma separated or repeated)")
	cmd.Flags().IntVar(&from, "from", 2022, "first year")
	cmd.Flags().IntVar(&to, "to", 2026, "last year")
	serverFlag(cmd, &serverURL)
	return cmd
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index counts and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := opts.outputFormat()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			var status *models.Status
			if serverURL != "" {
				if status, err = cli.NewClient(serverURL, nil).Status(ctx); err != nil {
					return err
				}
			} else {
				comps, err := opts.open(ctx)
				if err != nil {
					return err
				}
				defer comps.Close()
				if status, err = server.CollectStatus(ctx, comps.Collection, comps.Config); err != nil {
					return err
				}
			}
			return cli.WriteStatus(cmd.OutOrStdout(), status, format)
		},
	}
	serverFlag(cmd, &serverURL)
	return cmd
}
