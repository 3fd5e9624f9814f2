package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/selphi-project/srp/pkg/srp"
)

func newStatsCommand() *cobra.Command {
	var archivePath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print an archive's summary metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if archivePath == "" {
				return fmt.Errorf("--archive is required")
			}
			panel, err := srp.Open(archivePath)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer panel.Close()

			if panel.Empty() {
				fmt.Println("empty panel")
				return nil
			}

			fmt.Printf("chromosome:   %s\n", panel.Chromosome())
			fmt.Printf("n_variants:   %d\n", panel.NVariants())
			fmt.Printf("n_haps:       %d\n", panel.NHaps())
			fmt.Printf("n_samples:    %d\n", panel.NSamples())
			fmt.Printf("n_chunks:     %d\n", panel.NChunks())
			fmt.Printf("chunk_size:   %d\n", panel.ChunkSize())
			fmt.Printf("max_position: %d\n", panel.MaxPosition())
			fmt.Printf("contig_field: %s\n", panel.ContigField())
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "path to the archive file (required)")
	return cmd
}
