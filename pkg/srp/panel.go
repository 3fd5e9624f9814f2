// Package srp is the public API for the sparse reference panel archive:
// a chromosome's phased diploid haplotype matrix, stored chunked and
// queried without ever materializing the whole matrix in memory.
//
// Panel wraps the internal archive/chunkstore/chunkcache/selector stack
// behind a small surface: Open an archive by path, ConvertFromUpstream or
// ConvertFromSidecar to (re)populate it from a variant file, then query
// by row, slice, base-pair range, or the full extent.
package srp

import (
	"fmt"
	"os"
	"sync"

	"github.com/james-bowman/sparse"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/selphi-project/srp/internal/archive"
	"github.com/selphi-project/srp/internal/chunkcache"
	"github.com/selphi-project/srp/internal/chunkstore"
	"github.com/selphi-project/srp/internal/errs"
	"github.com/selphi-project/srp/internal/metadata"
	"github.com/selphi-project/srp/internal/selector"
	"github.com/selphi-project/srp/internal/sparsematrix"
	"github.com/selphi-project/srp/internal/variant"
)

// panelState is everything Open/convert builds from one archive file.
// Panel swaps this pointer wholesale on a successful convert so in-flight
// readers holding an old snapshot keep working against it until they next
// call into Panel.
type panelState struct {
	reader     *archive.Reader
	store      *chunkstore.Store
	cache      *chunkcache.Cache
	resolver   *selector.Resolver
	meta       metadata.Metadata
	table      variant.Table
	chunkIndex variant.ChunkIndex
	sampleIDs  []string
}

// Panel is a handle onto one archive file.
type Panel struct {
	path          string
	cacheCapacity int

	mu    sync.RWMutex
	state *panelState
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	cacheCapacity int
}

// WithCacheCapacity overrides the number of decoded chunks kept resident;
// the default is chunkcache.DefaultCapacity.
func WithCacheCapacity(n int) Option {
	return func(c *openConfig) { c.cacheCapacity = n }
}

// Open opens the archive at path, auto-creating an empty one if path does
// not exist yet.
func Open(path string, opts ...Option) (*Panel, error) {
	cfg := openConfig{cacheCapacity: chunkcache.DefaultCapacity}
	for _, o := range opts {
		o(&cfg)
	}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("srp: checking archive path %s: %w", path, err)
		}
		if err := createEmptyArchive(path); err != nil {
			return nil, err
		}
	}

	state, err := loadPanelState(path, cfg.cacheCapacity)
	if err != nil {
		return nil, err
	}
	return &Panel{path: path, cacheCapacity: cfg.cacheCapacity, state: state}, nil
}

// createEmptyArchive writes an archive carrying nothing but a zero-value
// metadata entry: Empty() reports true and every count reads 0 until a
// conversion populates it.
func createEmptyArchive(path string) error {
	w, err := archive.Create(path)
	if err != nil {
		return fmt.Errorf("srp: creating empty archive %s: %w", path, err)
	}
	mdBytes, err := metadata.Metadata{}.Encode()
	if err != nil {
		w.Close()
		return fmt.Errorf("srp: encoding empty metadata: %w", err)
	}
	if err := w.WriteEntry(archive.EntryMetadata, mdBytes); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func loadPanelState(path string, cacheCapacity int) (*panelState, error) {
	reader, err := archive.Open(path)
	if err != nil {
		return nil, err
	}

	mdBytes, err := reader.ReadEntry(archive.EntryMetadata)
	if err != nil {
		reader.Close()
		return nil, err
	}
	md, err := metadata.Decode(mdBytes)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("srp: decoding metadata: %w", err)
	}

	store := chunkstore.Open(reader)
	cache, err := chunkcache.New(store, cacheCapacity)
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("srp: building chunk cache: %w", err)
	}

	var table variant.Table
	var chunkIndex variant.ChunkIndex
	var sampleIDs []string

	if !md.Empty() {
		fields := variant.Dtypes(len(md.Chromosome))
		variantBytes, err := reader.ReadEntry(archive.EntryVariants)
		if err != nil {
			reader.Close()
			return nil, err
		}
		variants, err := variant.DecodeTable(variantBytes, fields)
		if err != nil {
			reader.Close()
			return nil, fmt.Errorf("srp: decoding variant table: %w", err)
		}

		chunkBytes, err := reader.ReadEntry(archive.EntryChunks)
		if err != nil {
			reader.Close()
			return nil, err
		}
		chunkIndex, err = variant.DecodeChunkIndex(chunkBytes)
		if err != nil {
			reader.Close()
			return nil, fmt.Errorf("srp: decoding chunk index: %w", err)
		}

		table = variant.Table{
			Chromosome:  md.Chromosome,
			Variants:    variants,
			IDs:         optionalLines(reader, archive.EntryIDs),
			OriginalIDs: optionalLines(reader, archive.EntryOriginalIDs),
		}
		if len(table.IDs) == 0 {
			table.IDs = make([]string, len(variants))
			for i, v := range variants {
				table.IDs[i] = v.ID()
			}
		}
		sampleIDs = optionalLines(reader, archive.EntrySampleIDs)
	}

	resolver := selector.NewResolver(cache, chunkIndex, md.ChunkSize, table.Positions())

	return &panelState{
		reader:     reader,
		store:      store,
		cache:      cache,
		resolver:   resolver,
		meta:       md,
		table:      table,
		chunkIndex: chunkIndex,
		sampleIDs:  sampleIDs,
	}, nil
}

// optionalLines reads a newline-delimited entry that may be absent: a
// missing IDs/original_IDs/sample_ids entry logs a warning and is reported
// empty, not an error (loadPanelState then rebuilds missing IDs from the
// variant table).
func optionalLines(r *archive.Reader, name string) []string {
	if !r.Has(name) {
		logrus.Warnf("srp: archive has no %q entry", name)
		return nil
	}
	data, err := r.ReadEntry(name)
	if err != nil {
		return nil
	}
	return splitNonEmptyLines(string(data))
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

// snapshot returns the current state under a read lock; safe to use after
// the lock is released since convert only ever replaces the pointer, never
// mutates a state in place.
func (p *Panel) snapshot() *panelState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Close releases the archive file handle.
func (p *Panel) Close() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.reader.Close()
}

// Row returns variant row i, narrowed by cols.
func (p *Panel) Row(i int64, cols ColumnSelector) (*sparse.CSC, error) {
	raw, err := p.snapshot().resolver.Resolve(selector.NewSingleRow(i), cols)
	if err != nil {
		return nil, err
	}
	return raw.ToSparseCSC(), nil
}

// Slice resolves an arbitrary row selector against cols.
func (p *Panel) Slice(rows RowSelector, cols ColumnSelector) (*sparse.CSC, error) {
	raw, err := p.snapshot().resolver.Resolve(rows, cols)
	if err != nil {
		return nil, err
	}
	return raw.ToSparseCSC(), nil
}

// Range resolves a base-pair span [minBP, maxBP] (inclusive of maxBP iff
// inclusive is true) against cols.
func (p *Panel) Range(minBP, maxBP int64, inclusive bool, cols ColumnSelector) (*sparse.CSC, error) {
	raw, err := p.snapshot().resolver.ResolveRange(minBP, maxBP, inclusive, cols)
	if err != nil {
		return nil, err
	}
	return raw.ToSparseCSC(), nil
}

// All returns every row, narrowed by cols.
func (p *Panel) All(cols ColumnSelector) (*sparse.CSC, error) {
	raw, err := p.snapshot().resolver.ResolveAll(cols)
	if err != nil {
		return nil, err
	}
	return raw.ToSparseCSC(), nil
}

// Dosage sums adjacent haplotype columns of chunk chunkID into a dense
// (chunk_rows, n_samples) matrix of values in {0,1,2}.
func (p *Panel) Dosage(chunkID int) (*mat.Dense, error) {
	st := p.snapshot()
	csc, err := st.cache.Get(chunkID)
	if err != nil {
		return nil, err
	}
	return dosage(csc.ToCSR())
}

func dosage(m sparsematrix.RawCSR) (*mat.Dense, error) {
	if m.Cols%2 != 0 {
		return nil, errs.InvariantViolationf("dosage requires an even haplotype column count, got %d", m.Cols)
	}
	nSamples := m.Cols / 2
	dense := mat.NewDense(m.Rows, nSamples, nil)
	for row := 0; row < m.Rows; row++ {
		for _, col := range m.Indices[m.Indptr[row]:m.Indptr[row+1]] {
			sample := col / 2
			dense.Set(row, sample, dense.At(row, sample)+1)
		}
	}
	return dense, nil
}

// MAF computes the per-row minor allele frequency of chunk chunkID: the
// row's allele-count divided by n_haps, folded to 1-f when that exceeds
// 0.5.
func (p *Panel) MAF(chunkID int) ([]float64, error) {
	st := p.snapshot()
	csc, err := st.cache.Get(chunkID)
	if err != nil {
		return nil, err
	}
	return maf(csc.ToCSR(), st.meta.NHaps), nil
}

func maf(m sparsematrix.RawCSR, nHaps int) []float64 {
	freqs := make([]float64, m.Rows)
	for row := range freqs {
		count := m.Indptr[row+1] - m.Indptr[row]
		f := float64(count) / float64(nHaps)
		if f > 0.5 {
			f = 1 - f
		}
		freqs[row] = f
	}
	return freqs
}

// Shape reports (n_variants, n_haps).
func (p *Panel) Shape() (int, int) {
	st := p.snapshot()
	return st.meta.NVariants, st.meta.NHaps
}

// NVariants reports the number of ingested sites.
func (p *Panel) NVariants() int { return p.snapshot().meta.NVariants }

// NHaps reports the number of haplotype columns (2 x n_samples).
func (p *Panel) NHaps() int { return p.snapshot().meta.NHaps }

// NSamples reports the number of diploid samples.
func (p *Panel) NSamples() int { return p.snapshot().meta.NSamples }

// NChunks reports the number of haplotype chunks.
func (p *Panel) NChunks() int { return p.snapshot().meta.NChunks }

// ChunkSize reports the configured chunk size (the last chunk may be
// shorter).
func (p *Panel) ChunkSize() int { return p.snapshot().meta.ChunkSize }

// Chromosome reports the panel's chromosome.
func (p *Panel) Chromosome() string { return p.snapshot().meta.Chromosome }

// MaxPosition reports the last ingested variant's position.
func (p *Panel) MaxPosition() int64 { return p.snapshot().meta.MaxPosition }

// Empty reports whether the panel has no ingested variants yet.
func (p *Panel) Empty() bool { return p.snapshot().meta.Empty() }

// ContigField reports the raw contig header line recorded at ingest.
func (p *Panel) ContigField() string { return p.snapshot().meta.ContigField }

// SampleIDs reports the sample names in file order.
func (p *Panel) SampleIDs() []string { return append([]string(nil), p.snapshot().sampleIDs...) }
