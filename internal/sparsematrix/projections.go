package sparsematrix

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dosage sums adjacent haplotype columns pairwise, producing a dense
// (Rows, Cols/2) matrix with values in {0,1,2} — one dosage value per
// sample per variant. Cols must be even.
func Dosage(chunk RawCSC) (*mat.Dense, error) {
	if chunk.Cols%2 != 0 {
		return nil, fmt.Errorf("sparsematrix: Dosage requires an even column count, got %d", chunk.Cols)
	}
	samples := chunk.Cols / 2
	data := make([]float64, chunk.Rows*samples)
	for col := 0; col < chunk.Cols; col++ {
		sample := col / 2
		for _, row := range chunk.Indices[chunk.Indptr[col]:chunk.Indptr[col+1]] {
			data[row*samples+sample]++
		}
	}
	return mat.NewDense(chunk.Rows, samples, data), nil
}

// MAF computes the minor allele frequency per row: the fraction of the
// nHaps haplotype columns carrying the alternate allele at that row,
// folded into [0, 0.5] (frequencies above 0.5 are replaced by 1-f).
func MAF(chunk RawCSC, nHaps int) ([]float64, error) {
	if nHaps <= 0 {
		return nil, fmt.Errorf("sparsematrix: MAF requires nHaps > 0, got %d", nHaps)
	}
	counts := make([]float64, chunk.Rows)
	for _, row := range chunk.Indices {
		counts[row]++
	}
	freqs := make([]float64, chunk.Rows)
	for i, c := range counts {
		f := c / float64(nHaps)
		if f > 0.5 {
			f = 1 - f
		}
		freqs[i] = f
	}
	return freqs, nil
}
