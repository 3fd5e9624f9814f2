package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/selphi-project/srp/internal/upstream"
	"github.com/selphi-project/srp/pkg/srp"
)

func newConvertCommand() *cobra.Command {
	var (
		archivePath string
		sidecarBase string
		bcftoolsBin string
		chunkSize   int
		threads     int
		replaceFile bool
	)

	cmd := &cobra.Command{
		Use:   "convert <input-file>",
		Short: "Ingest a variant file into an archive",
		Long: `Convert queries an upstream variant file (via bcftools) for stats, sites
and genotypes, and writes the result as a sparse reference panel archive.
If --sidecar-base is given, variant sites and sample IDs are read from
"<base>.sites" / "<base>.samples" instead of queried from the input file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			if archivePath == "" {
				return fmt.Errorf("--archive is required")
			}

			panel, err := srp.Open(archivePath)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer panel.Close()

			tool := &upstream.BCFTool{Bin: bcftoolsBin}
			opts := []srp.ConvertOption{srp.WithReplaceFile(replaceFile)}
			if chunkSize > 0 {
				opts = append(opts, srp.WithChunkSize(chunkSize))
			}
			if threads > 0 {
				opts = append(opts, srp.WithThreads(threads))
			}

			ctx := context.Background()
			if sidecarBase != "" {
				err = panel.ConvertFromSidecar(ctx, tool, inputPath, sidecarBase, opts...)
			} else {
				err = panel.ConvertFromUpstream(ctx, tool, inputPath, opts...)
			}
			if err != nil {
				return fmt.Errorf("converting: %w", err)
			}

			fmt.Printf("%s: %d variants, %d haplotypes, %d samples, %d chunks\n",
				archivePath, panel.NVariants(), panel.NHaps(), panel.NSamples(), panel.NChunks())
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "path to the archive file (required)")
	cmd.Flags().StringVar(&sidecarBase, "sidecar-base", "", "shared path prefix for precomputed .sites/.samples files")
	cmd.Flags().StringVar(&bcftoolsBin, "bcftools", "bcftools", "bcftools executable name or path")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "variants per chunk (default 10000)")
	cmd.Flags().IntVar(&threads, "threads", 0, "ingestion worker-pool size (default: NumCPU)")
	cmd.Flags().BoolVar(&replaceFile, "replace-file", false, "re-ingest even if the archive is already populated")

	return cmd
}
