package ingest

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/selphi-project/srp/internal/errs"
	"github.com/selphi-project/srp/internal/metadata"
	"github.com/selphi-project/srp/internal/upstream"
	"github.com/selphi-project/srp/internal/variant"
)

// FromSidecar runs the ingestion pipeline against a precomputed ".sites" /
// ".samples" sidecar pair instead of querying the upstream tool for variant
// rows and stats: sourcePath names the indexed variant file the sidecars
// sit next to (tool.GenotypeRows and tool.OriginalIDs still query it), and
// sidecarBase names the shared path prefix the ".sites" and ".samples"
// files hang off — the pbwt/xsi distribution layout.
func FromSidecar(ctx context.Context, tool upstream.Tool, sourcePath, sidecarBase string, opts Options) (Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	if _, err := os.Stat(sourcePath); err != nil {
		return Result{}, errs.FileNotFoundf("missing input file: %s", sourcePath)
	}

	sitesPath := sidecarBase + ".sites"
	samplesPath := sidecarBase + ".samples"

	sites, err := os.ReadFile(sitesPath)
	if err != nil {
		return Result{}, errs.FileNotFoundf("missing sites sidecar: %s", sitesPath)
	}
	samples, err := os.ReadFile(samplesPath)
	if err != nil {
		return Result{}, errs.FileNotFoundf("missing samples sidecar: %s", samplesPath)
	}

	rows, err := parseSitesFile(string(sites))
	if err != nil {
		return Result{}, err
	}
	sampleIDs := splitNonEmptyLines(string(samples))

	originalIDs, err := tool.OriginalIDs(ctx, sourcePath)
	if err != nil {
		return Result{}, err
	}
	if len(originalIDs) != len(rows) {
		return Result{}, errs.InvariantViolationf("original-ID count %d does not match site count %d", len(originalIDs), len(rows))
	}
	for i := range rows {
		rows[i].OriginalID = originalIDs[i]
	}

	table, err := variant.BuildTable(rows)
	if err != nil {
		return Result{}, err
	}
	chunkIndex, err := variant.BuildChunkIndex(table.Positions(), opts.ChunkSize)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{
		"chromosome": table.Chromosome,
		"n_variants": len(table.Variants),
		"n_chunks":   len(chunkIndex),
	}).Info("sidecar variant ingest complete")

	contigField, err := tool.ContigHeader(ctx, sourcePath, table.Chromosome)
	if err != nil {
		return Result{}, err
	}
	if contigField == "" {
		contigField = fmt.Sprintf("##contig=<ID=%s>", table.Chromosome)
	}

	stagedDir, nHaps, err := ingestHaplotypes(ctx, tool, sourcePath, table.Chromosome, table, chunkIndex, opts.ChunkSize, opts.Threads)
	if err != nil {
		return Result{}, err
	}
	log.WithField("n_haps", nHaps).Info("haplotype ingest complete")

	positions := table.Positions()
	now := time.Now().UTC()
	md := metadata.Metadata{
		Chromosome:    table.Chromosome,
		NVariants:     len(table.Variants),
		NHaps:         nHaps,
		NSamples:      len(sampleIDs),
		NChunks:       len(chunkIndex),
		ChunkSize:     opts.ChunkSize,
		MinPosition:   positions[0],
		MaxPosition:   positions[len(positions)-1],
		VariantDtypes: variant.Dtypes(len(table.Chromosome)),
		ContigField:   contigField,
		SourceFile:    sourcePath,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return Result{
		Metadata:   md,
		Table:      table,
		ChunkIndex: chunkIndex,
		SampleIDs:  sampleIDs,
		StagedDir:  stagedDir,
		ChunkFile:  func(chunkID int) string { return StagedChunkPath(stagedDir, chunkID) },
	}, nil
}

// parseSitesFile parses a ".sites" file: one tab-separated
// "chrom\tpos\tref\talt" row per variant, in position order.
func parseSitesFile(data string) ([]variant.Row, error) {
	lines := splitNonEmptyLines(data)
	if len(lines) == 0 {
		return nil, errs.InvariantViolationf("sites file has no rows")
	}
	rows := make([]variant.Row, len(lines))
	for i, line := range lines {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) != 4 {
			return nil, errs.CorruptArchivef("malformed sites row: %q", line)
		}
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ingest: parsing sites position %q: %w", fields[1], err)
		}
		rows[i] = variant.Row{
			Chromosome: fields[0],
			Position:   pos,
			Ref:        fields[2],
			Alt:        fields[3],
		}
	}
	return rows, nil
}
