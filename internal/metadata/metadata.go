// Package metadata defines the archive's key-value header and its JSON
// wire encoding, stored as the archive's "metadata" entry.
package metadata

import (
	"encoding/json"
	"time"

	"github.com/selphi-project/srp/internal/variant"
)

// Metadata is the archive's header, built during ingestion and read back
// on every Open.
type Metadata struct {
	Chromosome    string              `json:"chromosome"`
	NVariants     int                 `json:"n_variants"`
	NHaps         int                 `json:"n_haps"`
	NSamples      int                 `json:"n_samples"`
	NChunks       int                 `json:"n_chunks"`
	ChunkSize     int                 `json:"chunk_size"`
	MinPosition   int64               `json:"min_position"`
	MaxPosition   int64               `json:"max_position"`
	VariantDtypes []variant.DtypeField `json:"variant_dtypes"`
	ContigField   string              `json:"contig_field"`
	SourceFile    string              `json:"source_file"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// Encode serializes m to the JSON byte image stored in the archive.
func (m Metadata) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses the archive's metadata entry.
func Decode(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

// Empty reports whether m describes a panel with no ingested variants yet,
// e.g. one just auto-created by opening a missing archive path.
func (m Metadata) Empty() bool {
	return m.NVariants == 0
}
