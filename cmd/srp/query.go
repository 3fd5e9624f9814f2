package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gonum.org/v1/gonum/mat"

	"github.com/selphi-project/srp/pkg/srp"
)

func newQueryCommand() *cobra.Command {
	var (
		archivePath string
		row         int64
		rangeArgs   []string
		inclusive   bool
		all         bool
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a haplotype matrix out of an archive",
		Long: `Query resolves exactly one of --row, --range min,max, or --all against
the archive and prints the resulting matrix, one row per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if archivePath == "" {
				return fmt.Errorf("--archive is required")
			}
			panel, err := srp.Open(archivePath)
			if err != nil {
				return fmt.Errorf("opening archive: %w", err)
			}
			defer panel.Close()

			rowSelected := cmd.Flags().Changed("row")
			rangeSelected := len(rangeArgs) > 0
			switch {
			case rowSelected && rangeSelected, rowSelected && all, rangeSelected && all:
				return fmt.Errorf("specify exactly one of --row, --range, --all")
			case !rowSelected && !rangeSelected && !all:
				return fmt.Errorf("specify one of --row, --range, --all")
			}

			var m mat.Matrix
			switch {
			case rowSelected:
				m, err = panel.Row(row, srp.AllColumns())
			case rangeSelected:
				if len(rangeArgs) != 2 {
					return fmt.Errorf("--range requires exactly two values: min,max")
				}
				minBP, err1 := strconv.ParseInt(rangeArgs[0], 10, 64)
				maxBP, err2 := strconv.ParseInt(rangeArgs[1], 10, 64)
				if err1 != nil || err2 != nil {
					return fmt.Errorf("--range values must be integers")
				}
				m, err = panel.Range(minBP, maxBP, inclusive, srp.AllColumns())
			default:
				m, err = panel.All(srp.AllColumns())
			}
			if err != nil {
				return fmt.Errorf("querying: %w", err)
			}

			printMatrix(m)
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "path to the archive file (required)")
	cmd.Flags().Int64Var(&row, "row", 0, "query a single variant row by index")
	cmd.Flags().StringSliceVar(&rangeArgs, "range", nil, "query a base-pair span: --range min,max")
	cmd.Flags().BoolVar(&inclusive, "inclusive", true, "include the upper bound of --range")
	cmd.Flags().BoolVar(&all, "all", false, "query every row")

	return cmd
}

func printMatrix(m mat.Matrix) {
	rows, cols := m.Dims()
	var b strings.Builder
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteByte('\t')
			}
			if m.At(i, j) != 0 {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
		b.WriteByte('\n')
	}
	fmt.Print(b.String())
}
