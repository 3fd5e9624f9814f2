// Package upstream wraps the external variant-file query tool (bcftools)
// the ingestion pipeline depends on. It only defines the Tool contract and
// the stdlib os/exec-based implementation that shells out to it.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/selphi-project/srp/internal/errs"
)

// Stats is the per-chromosome summary the tool reports before ingestion
// begins.
type Stats struct {
	Chromosome  string
	Length      int64 // 10^11 if the tool reported unknown length (".")
	NumVariants int
}

// VariantRow is one row of the tool's variant-metadata query.
type VariantRow struct {
	Chromosome string
	Position   int64
	Ref        string
	Alt        string
	ID         string
}

// Tool answers every upstream query the ingestion pipeline needs:
// per-chromosome stats, variant and genotype rows for a genomic range,
// original IDs, sample IDs, and the raw contig header line. Implemented by
// BCFTool.
type Tool interface {
	// Stats reports (chromosome, length, num_variants) for path. length is
	// assumed 10^11 if the tool can't determine it.
	Stats(ctx context.Context, path string) (Stats, error)

	// VariantRows returns every variant in [start,end] on chrom, in
	// position order.
	VariantRows(ctx context.Context, path, chrom string, start, end int64) ([]VariantRow, error)

	// GenotypeRows returns the phased genotype matrix text for
	// [start,end] on chrom: one newline-terminated "|h0|h1|..." line per
	// variant, columns constant across all ranges.
	GenotypeRows(ctx context.Context, path, chrom string, start, end int64) ([]string, error)

	// OriginalIDs returns the ID column for every variant in path, in
	// file order — used on the sidecar ingest path, where variant rows
	// come from a .sites file but IDs still need the tool.
	OriginalIDs(ctx context.Context, path string) ([]string, error)

	// ContigHeader returns the tool's raw "##contig=<ID=chrom,...>" header
	// line for chrom, or "" if the header carries no such line.
	ContigHeader(ctx context.Context, path, chrom string) (string, error)

	// SampleIDs returns the sample names carried in path, in file order.
	SampleIDs(ctx context.Context, path string) ([]string, error)
}

// BCFTool invokes bcftools as an external process.
type BCFTool struct {
	// Bin overrides the executable name/path; defaults to "bcftools".
	Bin string
}

func (t *BCFTool) bin() string {
	if t.Bin != "" {
		return t.Bin
	}
	return "bcftools"
}

func (t *BCFTool) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, t.bin(), args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errs.UpstreamErrorf(err, "`%s %s`: %s", t.bin(), strings.Join(args, " "), stderr.String())
	}
	return stdout.String(), nil
}

// Stats implements Tool.
func (t *BCFTool) Stats(ctx context.Context, path string) (Stats, error) {
	out, err := t.run(ctx, "index", "--stats", path)
	if err != nil {
		return Stats{}, err
	}
	return parseStats(out)
}

// unknownLength is substituted when bcftools reports "." for a
// chromosome's length.
const unknownLength = int64(100000000000)

func parseStats(out string) (Stats, error) {
	lines := splitNonEmptyLines(out)
	if len(lines) != 1 {
		return Stats{}, errs.InvariantViolationf("only one chromosome per file is supported, got %d", len(lines))
	}
	fields := strings.Split(lines[0], "\t")
	if len(fields) != 3 {
		return Stats{}, errs.CorruptArchivef("malformed stats row: %q", lines[0])
	}
	length := unknownLength
	var err error
	if fields[1] != "." {
		length, err = strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return Stats{}, fmt.Errorf("upstream: parsing chromosome length %q: %w", fields[1], err)
		}
	}
	numVariants, err := strconv.Atoi(fields[2])
	if err != nil {
		return Stats{}, fmt.Errorf("upstream: parsing variant count %q: %w", fields[2], err)
	}
	return Stats{Chromosome: fields[0], Length: length, NumVariants: numVariants}, nil
}

// VariantRows implements Tool.
func (t *BCFTool) VariantRows(ctx context.Context, path, chrom string, start, end int64) ([]VariantRow, error) {
	region := fmt.Sprintf("%s:%d-%d", chrom, start, end)
	out, err := t.run(ctx, "query", "-r", region, "-f", "%CHROM\t%POS\t%REF\t%ALT\t%ID\n", path)
	if err != nil {
		return nil, err
	}
	return parseVariantRows(out)
}

func parseVariantRows(out string) ([]VariantRow, error) {
	var rows []VariantRow
	for _, line := range splitNonEmptyLines(out) {
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return nil, errs.CorruptArchivef("malformed variant row: %q", line)
		}
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("upstream: parsing position %q: %w", fields[1], err)
		}
		rows = append(rows, VariantRow{
			Chromosome: fields[0],
			Position:   pos,
			Ref:        fields[2],
			Alt:        fields[3],
			ID:         fields[4],
		})
	}
	return rows, nil
}

// GenotypeRows implements Tool. It pipes `bcftools view -r ... | bcftools
// query -f '[|%GT]\n'` the way the original shelled out to a single
// combined command string; here the pipe is built with os/exec directly
// instead of a shell, so no `sed s'/|//'` step is needed — the leading
// "|" each line carries is stripped by the caller (ingest).
func (t *BCFTool) GenotypeRows(ctx context.Context, path, chrom string, start, end int64) ([]string, error) {
	region := fmt.Sprintf("%s:%d-%d", chrom, start, end)

	view := exec.CommandContext(ctx, t.bin(), "view", "-r", region, path)
	query := exec.CommandContext(ctx, t.bin(), "query", "-t", region, "-f", "[|%GT]\n")

	pipe, err := view.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("upstream: wiring view|query pipe: %w", err)
	}
	query.Stdin = pipe

	var stdout, viewStderr, queryStderr bytes.Buffer
	query.Stdout = &stdout
	view.Stderr = &viewStderr
	query.Stderr = &queryStderr

	if err := view.Start(); err != nil {
		return nil, errs.UpstreamErrorf(err, "starting `%s view`", t.bin())
	}
	if err := query.Start(); err != nil {
		return nil, errs.UpstreamErrorf(err, "starting `%s query`", t.bin())
	}
	viewErr := view.Wait()
	queryErr := query.Wait()
	if viewErr != nil {
		return nil, errs.UpstreamErrorf(viewErr, "`%s view -r %s`: %s", t.bin(), region, viewStderr.String())
	}
	if queryErr != nil {
		return nil, errs.UpstreamErrorf(queryErr, "`%s query -t %s`: %s", t.bin(), region, queryStderr.String())
	}

	lines := splitNonEmptyLines(stdout.String())
	if len(lines) == 0 {
		return nil, errs.UpstreamErrorf(nil, "no genotypes returned for %s", region)
	}
	return lines, nil
}

// OriginalIDs implements Tool.
func (t *BCFTool) OriginalIDs(ctx context.Context, path string) ([]string, error) {
	out, err := t.run(ctx, "query", "-f", "%ID\n", path)
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// SampleIDs implements Tool.
func (t *BCFTool) SampleIDs(ctx context.Context, path string) ([]string, error) {
	out, err := t.run(ctx, "query", "-l", path)
	if err != nil {
		return nil, err
	}
	return splitNonEmptyLines(out), nil
}

// ContigHeader implements Tool.
func (t *BCFTool) ContigHeader(ctx context.Context, path, chrom string) (string, error) {
	out, err := t.run(ctx, "view", "-h", path)
	if err != nil {
		return "", err
	}
	prefix := fmt.Sprintf("##contig=<ID=%s,", chrom)
	for _, line := range splitNonEmptyLines(out) {
		if strings.HasPrefix(line, prefix) {
			return line, nil
		}
	}
	return "", nil
}

func splitNonEmptyLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
