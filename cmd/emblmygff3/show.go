package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jhh130910/EMBLmyGFF3/pkg/convert"
)

var showIDs []string

var showCmd = &cobra.Command{
	Use:   "show <gff_file> [fasta...] --id <seqid>",
	Short: "Render selected records to stdout",
	Long: `Render only the named sequences and print them to stdout, uncompressed.
Useful for checking a few records before running a full conversion.

Examples:
  emblmygff3 show annotation.gff3 genome.fa --id chr2 --locus_tag ABC`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFrom(settings, args)
		if err != nil {
			return err
		}
		cfg.IDs = showIDs
		cfg.Output = ""

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		batch, err := convert.Load(ctx, cfg)
		if err != nil {
			return err
		}
		_, err = convert.WriteRecords(ctx, cfg, batch, os.Stdout)
		return err
	},
}

func init() {
	showCmd.Flags().StringArrayVar(&showIDs, "id", nil, "Sequence id to render (repeatable)")
	showCmd.MarkFlagRequired("id")
}
