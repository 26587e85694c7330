package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hyperjump/kabbel/internal/cli"
	"github.com/hyperjump/kabbel/internal/indexer"
)

func newIngestCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load debates or party programs into the index",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "debates [file.jsonl...]",
			Short: "Ingest debate speeches from JSONL files (default: ingest.debate_files)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIngest(cmd, opts, func(ctx context.Context, comps *Components) (indexer.IngestReport, error) {
					files := args
					if len(files) == 0 {
						files = comps.Config.Ingest.DebateFiles
					}
					if len(files) == 0 {
						return indexer.IngestReport{}, fmt.Errorf("no debate files given and ingest.debate_files is empty")
					}
					return comps.Ingestor.IngestDebates(ctx, files...)
				})
			},
		},
		&cobra.Command{
			Use:   "programs [dir]",
			Short: "Ingest party program files from a directory (default: ingest.program_dir)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runIngest(cmd, opts, func(ctx context.Context, comps *Components) (indexer.IngestReport, error) {
					dir := comps.Config.Ingest.ProgramDir
					if len(args) == 1 {
						dir = args[0]
					}
					if dir == "" {
						return indexer.IngestReport{}, fmt.Errorf("no program directory given and ingest.program_dir is empty")
					}
					return comps.Ingestor.IngestPrograms(ctx, dir)
				})
			},
		},
	)
	return cmd
}

type ingestFunc func(ctx context.Context, comps *Components) (indexer.IngestReport, error)

func runIngest(cmd *cobra.Command, opts *rootOptions, run ingestFunc) error {
	format, err := opts.outputFormat()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	comps, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer comps.Close()

	report, err := run(ctx, comps)
	if writeErr := writeReport(cmd.OutOrStdout(), report, format); writeErr != nil && err == nil {
		err = writeErr
	}
	return err
}

func writeReport(w io.Writer, r indexer.IngestReport, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		return cli.WriteJSON(w, r)
	}
	fmt.Fprintf(w, "files: %d  lines: %d  records: %d  skipped: %d  failed: %d\n",
		r.Files, r.Lines, r.Records, r.Skipped, r.Failed)
	return nil
}
