package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/kabbel/internal/cli"
	"github.com/hyperjump/kabbel/internal/models"
)

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <record-id>",
		Short: "Show one record with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			rec, err := comps.Collection.GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			return cli.WriteRecord(cmd.OutOrStdout(), rec, format)
		},
	}
}

func newCompareCmd(opts *rootOptions) *cobra.Command {
	var (
		party, topic string
		from, to     int
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare what a party said about a topic around two years",
		Example: `  kabbel compare --party S --topic kärnkraft --from 2012 --to 2024`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			res, err := cli.Compare(ctx, comps.Collection, party, topic, from, to)
			if err != nil {
				return err
			}
			return cli.WriteCompare(cmd.OutOrStdout(), res, format)
		},
	}
	cmd.Flags().StringVar(&party, "party", "", "party code (S, M, SD, C, V, KD, L, MP)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic or search words")
	cmd.Flags().IntVar(&from, "from", 0, "early year")
	cmd.Flags().IntVar(&to, "to", 0, "late year")
	for _, name := range []string{"party", "topic", "from", "to"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newWordSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		word, party string
		year        int
	)
	cmd := &cobra.Command{
		Use:   "wordsearch",
		Short: "Find records of one year containing a word",
		Long: `Scan every record of a year for a word in the text or in any metadata
field. At most 20 hits are shown.`,
		Example: `  kabbel wordsearch --word invandring --year 2019 --party SD`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			hits, err := cli.WordSearch(ctx, comps.Collection, word, strconv.Itoa(year), party)
			if err != nil {
				return err
			}
			return cli.WriteHits(cmd.OutOrStdout(), hits, format)
		},
	}
	cmd.Flags().StringVar(&word, "word", "", "word to look for (case-insensitive)")
	cmd.Flags().IntVar(&year, "year", 0, "year to scan")
	cmd.Flags().StringVar(&party, "party", "", "only this party")
	_ = cmd.MarkFlagRequired("word")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var (
		key, value string
		yes        bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every record whose metadata key equals a value",
		Example: `  kabbel delete --key typ --value program --yes
  kabbel delete --key år --value 2019 --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !models.IsMetadataKey(key) {
				return fmt.Errorf("%w: %q", models.ErrUnknownFilterKey, key)
			}
			if !yes {
				return fmt.Errorf("refusing to delete all records with %s=%q without --yes", key, value)
			}
			ctx, stop := signalContext()
			defer stop()
			comps, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer comps.Close()
			n, err := comps.Collection.Delete(ctx, models.Eq{Key: key, Value: value})
			if err != nil {
				return err
			}
			comps.Logger.Info("records deleted", zap.String("key", key), zap.String("value", value), zap.Int("deleted", n))
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d records with %s=%q\n", n, key, value)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "metadata key (typ, parti, år, dok_id, ...)")
	cmd.Flags().StringVar(&value, "value", "", "value to match exactly")
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}
