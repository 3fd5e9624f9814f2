// Package ingest builds an archive from an upstream variant file (or its
// precomputed sidecar files) in eight steps: stats, contig header,
// chunk-range planning, parallel variant ingest, variant-table/chunk-index
// construction, parallel haplotype ingest, n_haps consistency, and
// archive finalize.
//
// Parallel fan-out is built on golang.org/x/sync/errgroup with
// SetLimit(threads): two independent errgroup.Go fan-outs (variants, then
// haplotypes), since each chunk's work is an independent unit with no
// cross-chunk ordering dependency until the final concatenate/deduplicate
// step.
package ingest

import (
	"context"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/selphi-project/srp/internal/archive"
	"github.com/selphi-project/srp/internal/errs"
	"github.com/selphi-project/srp/internal/metadata"
	"github.com/selphi-project/srp/internal/upstream"
	"github.com/selphi-project/srp/internal/variant"
)

// DefaultChunkSize is applied when Options.ChunkSize is zero.
const DefaultChunkSize = 10000

// unboundedUpperBound widens the final chunk range so trailing variants
// past an estimated or unknown chromosome length are never dropped.
const unboundedUpperBound = int64(100000000000)

// Options configures a conversion run.
type Options struct {
	ChunkSize int
	Threads   int
	Logger    *logrus.Logger
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Threads <= 0 {
		o.Threads = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}

// Result is everything a completed ingest needs to write as an archive;
// the caller (pkg/srp) owns the archive.Writer / final file path.
type Result struct {
	Metadata    metadata.Metadata
	Table       variant.Table
	ChunkIndex  variant.ChunkIndex
	SampleIDs   []string
	StagedDir   string // temp directory holding one compressed file per chunk
	ChunkFile   func(chunkID int) string
}

// Cleanup removes the staging directory. Callers must invoke this once the
// staged files have been copied into the final archive, or immediately on
// any ingest failure.
func (r Result) Cleanup() {
	if r.StagedDir != "" {
		os.RemoveAll(r.StagedDir)
	}
}

// FromUpstream runs the full ingestion pipeline against an upstream
// variant file, using tool to answer stats/variant/genotype queries.
func FromUpstream(ctx context.Context, tool upstream.Tool, sourcePath string, opts Options) (Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger

	if _, err := os.Stat(sourcePath); err != nil {
		return Result{}, errs.FileNotFoundf("missing input file: %s", sourcePath)
	}

	// Step 1: stats.
	stats, err := tool.Stats(ctx, sourcePath)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{
		"chromosome":   stats.Chromosome,
		"length":       stats.Length,
		"num_variants": stats.NumVariants,
	}).Info("stats resolved")

	// Step 2: contig header.
	contigField, err := tool.ContigHeader(ctx, sourcePath, stats.Chromosome)
	if err != nil {
		return Result{}, err
	}
	if contigField == "" {
		contigField = fmt.Sprintf("##contig=<ID=%s>", stats.Chromosome)
	}

	// Step 3: chunk-range planning.
	firstPos, err := firstVariantPosition(ctx, tool, sourcePath, stats.Chromosome, stats.Length)
	if err != nil {
		return Result{}, err
	}
	ranges := planRanges(firstPos, stats.Length, stats.NumVariants, opts.ChunkSize)
	log.WithField("ranges", len(ranges)).Info("chunk ranges planned")

	// Step 4: variant ingest (parallel across ranges).
	rows, err := ingestVariants(ctx, tool, sourcePath, stats.Chromosome, ranges, opts.Threads)
	if err != nil {
		return Result{}, err
	}
	log.WithField("n_variants", len(rows)).Info("variant ingest complete")

	// Step 5: variant table & chunk index.
	table, err := variant.BuildTable(rows)
	if err != nil {
		return Result{}, err
	}
	chunkIndex, err := variant.BuildChunkIndex(table.Positions(), opts.ChunkSize)
	if err != nil {
		return Result{}, err
	}

	sampleIDs, err := tool.SampleIDs(ctx, sourcePath)
	if err != nil {
		return Result{}, err
	}

	// Steps 6-7: haplotype ingest (parallel across chunks) + consistency.
	stagedDir, nHaps, err := ingestHaplotypes(ctx, tool, sourcePath, stats.Chromosome, table, chunkIndex, opts.ChunkSize, opts.Threads)
	if err != nil {
		return Result{}, err
	}
	log.WithField("n_haps", nHaps).Info("haplotype ingest complete")

	now := time.Now().UTC()
	md := metadata.Metadata{
		Chromosome:    table.Chromosome,
		NVariants:     len(table.Variants),
		NHaps:         nHaps,
		NSamples:      len(sampleIDs),
		NChunks:       len(chunkIndex),
		ChunkSize:     opts.ChunkSize,
		MinPosition:   table.Positions()[0],
		MaxPosition:   table.Positions()[len(table.Positions())-1],
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

// Finalize writes metadata, variants, IDs, chunk index, sample IDs and
// every staged haplotype blob into w, the final archive — the pipeline's
// last step, run only after every chunk has staged successfully.
func Finalize(w *archive.Writer, r Result) error {
	mdBytes, err := r.Metadata.Encode()
	if err != nil {
		return fmt.Errorf("ingest: encoding metadata: %w", err)
	}
	if err := w.WriteEntry(archive.EntryMetadata, mdBytes); err != nil {
		return err
	}

	fields := variant.Dtypes(len(r.Table.Chromosome))
	variantBytes, err := variant.EncodeTable(r.Table.Variants, fields)
	if err != nil {
		return err
	}
	if err := w.WriteEntry(archive.EntryVariants, variantBytes); err != nil {
		return err
	}

	if err := w.WriteEntry(archive.EntryIDs, []byte(joinLines(r.Table.IDs))); err != nil {
		return err
	}
	if err := w.WriteEntry(archive.EntryOriginalIDs, []byte(joinLines(r.Table.OriginalIDs))); err != nil {
		return err
	}
	if err := w.WriteEntry(archive.EntrySampleIDs, []byte(joinLines(r.SampleIDs))); err != nil {
		return err
	}

	chunkBytes, err := variant.EncodeChunkIndex(r.ChunkIndex)
	if err != nil {
		return err
	}
	if err := w.WriteEntry(archive.EntryChunks, chunkBytes); err != nil {
		return err
	}

	for _, entry := range r.ChunkIndex {
		compressed, err := os.ReadFile(r.ChunkFile(entry.ChunkID))
		if err != nil {
			return fmt.Errorf("ingest: reading staged chunk %d: %w", entry.ChunkID, err)
		}
		if err := w.WriteRawEntry(archive.HaplotypeEntry(entry.ChunkID), compressed); err != nil {
			return err
		}
	}
	return nil
}

func joinLines(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += "\n"
		}
		out += s
	}
	return out
}

// firstVariantPosition asks the upstream tool for the position of the
// first variant on chrom, by querying the whole [0, length] range once and
// taking the first row returned — mirroring the original's
// cyvcf2-iterator-based _determine_start_position without requiring a
// streaming VCF reader.
func firstVariantPosition(ctx context.Context, tool upstream.Tool, path, chrom string, length int64) (int64, error) {
	rows, err := tool.VariantRows(ctx, path, chrom, 0, length)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, errs.InvariantViolationf("no variants found on %s", chrom)
	}
	return rows[0].Position, nil
}

// planRanges computes the inclusive base-pair ranges chunk-range planning
// queries against the upstream tool.
func planRanges(firstPos, chrLength int64, numVariants, chunkSize int) [][2]int64 {
	bpPerVariant := float64(chrLength) / float64(numVariants)
	bpPerChunk := int64(math.Ceil(bpPerVariant * float64(chunkSize)))
	if bpPerChunk < 1 {
		bpPerChunk = 1
	}

	var ranges [][2]int64
	current := firstPos
	for current < chrLength {
		end := current + bpPerChunk
		if end > chrLength {
			end = chrLength
		}
		ranges = append(ranges, [2]int64{current, end})
		current = end + 1
	}
	if len(ranges) == 0 {
		ranges = append(ranges, [2]int64{firstPos, chrLength})
	}
	ranges[len(ranges)-1][1] = unboundedUpperBound
	return ranges
}

