// Package variant implements the variant table and chunk index: the
// small, fully-in-memory metadata that describes every site in a panel
// and how sites are grouped into chunks.
package variant

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// hashDigestSize is the blake2b digest size, in bytes, used to collapse
// REF/ALT alleles into fixed-width keys (16 hex characters).
const hashDigestSize = 8

// Variant is a single site: chromosome, position, and hashed alleles.
type Variant struct {
	Chromosome string
	Position   int64
	RefHash    string
	AltHash    string
}

// ID formats the variant's canonical identifier.
func (v Variant) ID() string {
	return fmt.Sprintf("%s-%d-%s-%s", v.Chromosome, v.Position, v.RefHash, v.AltHash)
}

// HashAllele collapses an allele string (REF or ALT, possibly a long
// indel) to a fixed-width 16-hex-character blake2b digest.
func HashAllele(allele string) (string, error) {
	h, err := blake2b.New(hashDigestSize, nil)
	if err != nil {
		return "", fmt.Errorf("variant: creating blake2b hash: %w", err)
	}
	if _, err := h.Write([]byte(allele)); err != nil {
		return "", fmt.Errorf("variant: hashing allele: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Row is a single unhashed variant record as read from an upstream source
// (bcftools query output or a sidecar .sites file), prior to hashing.
type Row struct {
	Chromosome string
	Position   int64
	Ref        string
	Alt        string
	OriginalID string
}

// FromRow hashes a Row's alleles into a Variant.
func FromRow(r Row) (Variant, error) {
	refHash, err := HashAllele(r.Ref)
	if err != nil {
		return Variant{}, err
	}
	altHash, err := HashAllele(r.Alt)
	if err != nil {
		return Variant{}, err
	}
	return Variant{
		Chromosome: r.Chromosome,
		Position:   r.Position,
		RefHash:    refHash,
		AltHash:    altHash,
	}, nil
}

// Table is the ordered sequence of variants for one chromosome, plus the
// ID strings derived from or carried alongside it.
type Table struct {
	Chromosome  string
	Variants    []Variant
	IDs         []string
	OriginalIDs []string
}

// BuildTable hashes rows (in order) into a Table, validating the
// single-chromosome and non-decreasing-position invariants.
func BuildTable(rows []Row) (Table, error) {
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("variant: cannot build a table from zero rows")
	}
	chrom := rows[0].Chromosome
	variants := make([]Variant, len(rows))
	ids := make([]string, len(rows))
	originalIDs := make([]string, len(rows))

	lastPos := int64(-1)
	for i, r := range rows {
		if r.Chromosome != chrom {
			return Table{}, fmt.Errorf("variant: multiple chromosomes in input: %s and %s", chrom, r.Chromosome)
		}
		if r.Position < lastPos {
			return Table{}, fmt.Errorf("variant: positions are not non-decreasing at row %d (%d < %d)", i, r.Position, lastPos)
		}
		lastPos = r.Position

		v, err := FromRow(r)
		if err != nil {
			return Table{}, err
		}
		variants[i] = v
		ids[i] = v.ID()
		originalIDs[i] = r.OriginalID
	}

	return Table{Chromosome: chrom, Variants: variants, IDs: ids, OriginalIDs: originalIDs}, nil
}

// Positions returns the dense, ascending array of variant positions used
// to back positional range queries via binary search.
func (t Table) Positions() []int64 {
	positions := make([]int64, len(t.Variants))
	for i, v := range t.Variants {
		positions[i] = v.Position
	}
	return positions
}

// SearchSorted mirrors numpy's searchsorted(side="left"): the index of the
// first position >= target.
func SearchSorted(positions []int64, target int64) int {
	return sort.Search(len(positions), func(i int) bool { return positions[i] >= target })
}
