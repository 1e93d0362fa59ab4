package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jhh130910/EMBLmyGFF3/pkg/convert"
)

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(settings, args)
	if err != nil {
		return err
	}
	if settings.GetBool("show-config") {
		cfg.ShowConfig(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting conversion", "gff", cfg.GFF, "workers", cfg.Workers)
	sum, err := convert.Run(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("conversion finished", "summary", sum)
	if cfg.Output != "" {
		printSummary(sum)
	}
	return nil
}
