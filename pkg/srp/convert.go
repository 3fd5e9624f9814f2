package srp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/selphi-project/srp/internal/archive"
	"github.com/selphi-project/srp/internal/ingest"
	"github.com/selphi-project/srp/internal/upstream"
)

// ConvertOption configures ConvertFromUpstream / ConvertFromSidecar.
type ConvertOption func(*convertConfig)

type convertConfig struct {
	chunkSize   int
	threads     int
	replaceFile bool
	logger      *logrus.Logger
}

func defaultConvertConfig() convertConfig {
	return convertConfig{
		chunkSize: ingest.DefaultChunkSize,
		threads:   runtime.NumCPU(),
		logger:    logrus.StandardLogger(),
	}
}

// WithChunkSize overrides the number of variants per chunk.
func WithChunkSize(n int) ConvertOption { return func(c *convertConfig) { c.chunkSize = n } }

// WithThreads overrides the ingestion worker-pool size.
func WithThreads(n int) ConvertOption { return func(c *convertConfig) { c.threads = n } }

// WithReplaceFile, when true, re-ingests and overwrites a non-empty
// archive. The default is false: converting into an already-populated
// panel is a no-op.
func WithReplaceFile(replace bool) ConvertOption {
	return func(c *convertConfig) { c.replaceFile = replace }
}

// WithConvertLogger overrides the logger the ingestion pipeline reports
// progress to.
func WithConvertLogger(log *logrus.Logger) ConvertOption {
	return func(c *convertConfig) { c.logger = log }
}

// ConvertFromUpstream (re)populates the panel from sourcePath, querying
// tool for stats, variant rows, genotype rows, sample IDs and original
// IDs. A no-op if the panel is already non-empty and WithReplaceFile(true)
// was not given.
func (p *Panel) ConvertFromUpstream(ctx context.Context, tool upstream.Tool, sourcePath string, opts ...ConvertOption) error {
	return p.convert(func(ingestOpts ingest.Options) (ingest.Result, error) {
		return ingest.FromUpstream(ctx, tool, sourcePath, ingestOpts)
	}, opts)
}

// ConvertFromSidecar (re)populates the panel from sourcePath's precomputed
// "<sidecarBase>.sites" / "<sidecarBase>.samples" files, still querying
// tool for genotype rows, original IDs and the contig header. Sample IDs
// come only from the ".samples" file. A no-op under the same
// WithReplaceFile rule as ConvertFromUpstream.
func (p *Panel) ConvertFromSidecar(ctx context.Context, tool upstream.Tool, sourcePath, sidecarBase string, opts ...ConvertOption) error {
	return p.convert(func(ingestOpts ingest.Options) (ingest.Result, error) {
		return ingest.FromSidecar(ctx, tool, sourcePath, sidecarBase, ingestOpts)
	}, opts)
}

// convert runs run, then atomically replaces the panel's backing archive
// file with the result and swaps in a freshly loaded state. A failure
// before the rename leaves the existing archive and in-memory state
// untouched; if reloading the renamed archive fails, the file has already
// been replaced while the in-memory state still describes the old one.
func (p *Panel) convert(run func(ingest.Options) (ingest.Result, error), opts []ConvertOption) error {
	cfg := defaultConvertConfig()
	for _, o := range opts {
		o(&cfg)
	}

	if !cfg.replaceFile && !p.Empty() {
		return nil
	}

	result, err := run(ingest.Options{ChunkSize: cfg.chunkSize, Threads: cfg.threads, Logger: cfg.logger})
	if err != nil {
		return err
	}
	defer result.Cleanup()

	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".srp-convert-*")
	if err != nil {
		return fmt.Errorf("srp: staging replacement archive: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	w, err := archive.Create(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := ingest.Finalize(w, result); err != nil {
		w.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := w.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("srp: replacing archive %s: %w", p.path, err)
	}

	newState, err := loadPanelState(p.path, p.cacheCapacity)
	if err != nil {
		return err
	}

	p.mu.Lock()
	old := p.state
	p.state = newState
	p.mu.Unlock()

	return old.reader.Close()
}
