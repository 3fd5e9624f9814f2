// Package archive implements the on-disk container: a zip-style file
// whose named entries (metadata, variants, IDs, chunks, per-chunk
// haplotype blobs, ...) are each independently Zstandard-compressed.
// The zip layer itself is the stdlib's archive/zip — no
// third-party Go zip writer appears anywhere in the retrieved corpus, and
// the zip container is a thin index-of-named-blobs format, not a
// "concern" the way compression or hashing are; see DESIGN.md.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/selphi-project/srp/internal/errs"
)

// Well-known entry names.
const (
	EntryMetadata    = "metadata"
	EntryVariants    = "variants"
	EntryIDs         = "IDs"
	EntryOriginalIDs = "original_IDs"
	EntrySampleIDs   = "sample_ids"
	EntryChunks      = "chunks"
)

// HaplotypeEntry returns the archive entry name for a chunk's haplotype
// blob.
func HaplotypeEntry(chunkID int) string {
	return "haplotypes/" + strconv.Itoa(chunkID)
}

var encoderPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var decoderPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

// Compress zstd-compresses data using the same pooled encoder WriteEntry
// uses. Exposed so the ingestion pipeline can stage already-compressed
// chunk blobs to temporary files and later copy them into the archive
// verbatim via WriteRawEntry, without compressing twice.
func Compress(data []byte) ([]byte, error) { return compress(data) }

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) { return decompress(data) }

func compress(data []byte) ([]byte, error) {
	enc := encoderPool.Get().(*zstd.Encoder)
	defer encoderPool.Put(enc)

	var buf bytes.Buffer
	enc.Reset(&buf)
	if _, err := enc.Write(data); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	dec := decoderPool.Get().(*zstd.Decoder)
	defer decoderPool.Put(dec)

	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return io.ReadAll(dec)
}

// Writer builds an archive from scratch: every entry is written exactly
// once, in full (the archive has no append/update mode — write-once at
// ingest, then read-only).
type Writer struct {
	f  *os.File
	zw *zip.Writer
}

// Create truncates (or creates) path and opens it for writing named
// entries.
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{f: f, zw: zip.NewWriter(f)}, nil
}

// WriteEntry zstd-compresses data and writes it as a stored (not
// deflated — compression already happened at the zstd layer) zip entry.
func (w *Writer) WriteEntry(name string, data []byte) error {
	compressed, err := compress(data)
	if err != nil {
		return err
	}
	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	entry, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = entry.Write(compressed)
	return err
}

// WriteRawEntry writes compressed bytes directly as a stored zip entry,
// skipping the compression step (the caller already compressed them, e.g.
// via Compress applied during staging).
func (w *Writer) WriteRawEntry(name string, compressed []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	entry, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = entry.Write(compressed)
	return err
}

// Close flushes the zip central directory and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Reader opens an existing archive for reading named entries.
type Reader struct {
	zr *zip.ReadCloser
}

// Open opens path as an archive.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errs.Wrap(errs.CorruptArchive, "opening archive "+path, err)
	}
	return &Reader{zr: zr}, nil
}

// Has reports whether the archive contains an entry with the given name.
func (r *Reader) Has(name string) bool {
	for _, f := range r.zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ReadEntry reads and decompresses a named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	for _, f := range r.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errs.Wrap(errs.CorruptArchive, "opening entry "+name, err)
		}
		defer rc.Close()

		compressed, err := io.ReadAll(rc)
		if err != nil {
			return nil, errs.Wrap(errs.CorruptArchive, "reading entry "+name, err)
		}
		data, err := decompress(compressed)
		if err != nil {
			return nil, errs.Wrap(errs.CorruptArchive, "decompressing entry "+name, err)
		}
		return data, nil
	}
	return nil, errs.New(errs.CorruptArchive, "missing entry "+name)
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.zr.Close()
}
