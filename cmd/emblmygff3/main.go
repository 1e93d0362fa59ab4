package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jhh130910/EMBLmyGFF3/pkg/logging"
)

const version = "0.3.0"

const banner = `
###############################################################################
# EMBLmyGFF3 - GFF3 to EMBL flat file conversion for ENA submission           #
# https://github.com/NBISweden/EMBLmyGFF3                                     #
###############################################################################

`

var rootCmd = &cobra.Command{
	Use:   "emblmygff3 <gff_file> [fasta...]",
	Short: "Convert GFF3 annotation and FASTA sequence to EMBL flat files",
	Long: `emblmygff3 turns GFF3 annotation plus the matching FASTA sequences into
EMBL flat file records ready for submission to ENA.

Each record is rendered concurrently: the header, every top-level feature
and the sequence block are independent tasks on a shared worker pool, and
records are written in input order.

Inputs and the output may be local paths or s3:// URIs. Compressed inputs
(gzip, zstd) are detected automatically.

Header values can also come from a config file (--config, YAML/TOML/JSON)
using the flag names as keys; flags given on the command line win.

Examples:
  # Convert to stdout
  emblmygff3 annotation.gff3 genome.fa --species "Drosophila melanogaster"

  # Gzipped output with 8 render workers
  emblmygff3 annotation.gff3 genome.fa -o submission -z -t 8 \
    --data_class STD --taxonomy INV --locus_tag DMEL

  # Keep going past broken records
  emblmygff3 annotation.gff3 genome.fa -o out --skip-invalid`,
	Args:              cobra.MinimumNArgs(1),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runConvert,
}

var handler *logging.ConciseHandler

func main() {
	err := rootCmd.Execute()
	if handler != nil {
		handler.Flush()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func init() {
	addCommonFlags(rootCmd)
	addOutputFlags(rootCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("emblmygff3 version %s\n", version)
		fmt.Println("GFF3 to EMBL flat file conversion")
	},
}
