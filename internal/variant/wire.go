package variant

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DtypeField describes one fixed-width field in the variant table's flat
// binary layout, mirroring the "variant_dtypes" schema recorded in
// metadata.
type DtypeField struct {
	Name  string `json:"name"`
	Width int    `json:"width"`
}

const (
	refHashWidth = 16 // hex chars
	altHashWidth = 16
	positionSize = 8 // int64
)

// Dtypes returns the fixed-width schema for a table whose chromosome
// strings are all exactly chromWidth bytes, matching the original
// per-ingest numpy dtype (chr field width = len(chromosome)).
func Dtypes(chromWidth int) []DtypeField {
	return []DtypeField{
		{Name: "chr", Width: chromWidth},
		{Name: "pos", Width: positionSize},
		{Name: "ref", Width: refHashWidth},
		{Name: "alt", Width: altHashWidth},
	}
}

func recordSize(fields []DtypeField) int {
	n := 0
	for _, f := range fields {
		n += f.Width
	}
	return n
}

// EncodeTable serializes variants to the raw little-endian byte image
// stored in the archive's "variants" entry.
func EncodeTable(variants []Variant, fields []DtypeField) ([]byte, error) {
	if len(fields) != 4 {
		return nil, fmt.Errorf("variant: expected 4 dtype fields (chr,pos,ref,alt), got %d", len(fields))
	}
	chromWidth := fields[0].Width
	buf := bytes.NewBuffer(make([]byte, 0, len(variants)*recordSize(fields)))

	for _, v := range variants {
		if err := writeFixed(buf, v.Chromosome, chromWidth); err != nil {
			return nil, err
		}
		if err := binary.Write(buf, binary.LittleEndian, v.Position); err != nil {
			return nil, fmt.Errorf("variant: writing position: %w", err)
		}
		if err := writeFixed(buf, v.RefHash, refHashWidth); err != nil {
			return nil, err
		}
		if err := writeFixed(buf, v.AltHash, altHashWidth); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeTable parses the raw byte image back into variants.
func DecodeTable(data []byte, fields []DtypeField) ([]Variant, error) {
	if len(fields) != 4 {
		return nil, fmt.Errorf("variant: expected 4 dtype fields (chr,pos,ref,alt), got %d", len(fields))
	}
	size := recordSize(fields)
	if size == 0 {
		return nil, nil
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("variant: variant byte image length %d not a multiple of record size %d", len(data), size)
	}

	chromWidth := fields[0].Width
	n := len(data) / size
	variants := make([]Variant, n)
	for i := 0; i < n; i++ {
		rec := data[i*size : (i+1)*size]
		off := 0

		chrom := readFixed(rec[off : off+chromWidth])
		off += chromWidth

		pos := int64(binary.LittleEndian.Uint64(rec[off : off+positionSize]))
		off += positionSize

		refHash := readFixed(rec[off : off+refHashWidth])
		off += refHashWidth

		altHash := readFixed(rec[off : off+altHashWidth])

		variants[i] = Variant{Chromosome: chrom, Position: pos, RefHash: refHash, AltHash: altHash}
	}
	return variants, nil
}

// EncodeChunkIndex serializes chunk triples to the raw little-endian
// (chunk_id, first_pos, last_pos) int64 array stored in the archive's
// "chunks" entry.
func EncodeChunkIndex(idx ChunkIndex) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, len(idx)*3*8))
	for _, e := range idx {
		for _, v := range [3]int64{int64(e.ChunkID), e.FirstPos, e.LastPos} {
			if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
				return nil, fmt.Errorf("variant: writing chunk index: %w", err)
			}
		}
	}
	return buf.Bytes(), nil
}

// DecodeChunkIndex parses the raw (chunk_id, first_pos, last_pos) triples.
func DecodeChunkIndex(data []byte) (ChunkIndex, error) {
	const tripleSize = 3 * 8
	if len(data)%tripleSize != 0 {
		return nil, fmt.Errorf("variant: chunk index byte length %d not a multiple of %d", len(data), tripleSize)
	}
	n := len(data) / tripleSize
	idx := make(ChunkIndex, n)
	for i := 0; i < n; i++ {
		rec := data[i*tripleSize : (i+1)*tripleSize]
		idx[i] = ChunkEntry{
			ChunkID:  int(int64(binary.LittleEndian.Uint64(rec[0:8]))),
			FirstPos: int64(binary.LittleEndian.Uint64(rec[8:16])),
			LastPos:  int64(binary.LittleEndian.Uint64(rec[16:24])),
		}
	}
	return idx, nil
}

func writeFixed(buf *bytes.Buffer, s string, width int) error {
	b := make([]byte, width)
	copy(b, s) // truncates if s is longer than width, zero-pads if shorter
	_, err := buf.Write(b)
	if err != nil {
		return fmt.Errorf("variant: writing fixed-width field: %w", err)
	}
	return nil
}

func readFixed(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return string(b[:end])
}
