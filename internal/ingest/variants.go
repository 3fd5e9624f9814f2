package ingest

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/selphi-project/srp/internal/upstream"
	"github.com/selphi-project/srp/internal/variant"
)

// ingestVariants queries ranges in parallel (up to threads workers),
// concatenates results in range order, then deduplicates by position
// preserving first occurrence — same-position duplicates can arise at
// range boundaries.
func ingestVariants(ctx context.Context, tool upstream.Tool, path, chrom string, ranges [][2]int64, threads int) ([]variant.Row, error) {
	results := make([][]upstream.VariantRow, len(ranges))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() error {
			rows, err := tool.VariantRows(gctx, path, chrom, r[0], r[1])
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []variant.Row
	seen := make(map[int64]bool)
	for _, chunk := range results {
		for _, r := range chunk {
			if seen[r.Position] {
				continue
			}
			seen[r.Position] = true
			rows = append(rows, variant.Row{
				Chromosome: r.Chromosome,
				Position:   r.Position,
				Ref:        r.Ref,
				Alt:        r.Alt,
				OriginalID: r.ID,
			})
		}
	}
	return rows, nil
}
