package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "srp",
		Short: "Sparse reference panel archive tool",
		Long: `srp builds and queries sparse reference panel archives: chunked,
compressed phased diploid haplotype matrices indexed by genomic position.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	}

	rootCmd.AddCommand(
		newConvertCommand(),
		newStatsCommand(),
		newQueryCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
