package cmd

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/hcpdash/internal/normalize"
)

var (
	normFlags  pipelineFlags
	normOutput string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <files...>",
	Short: "Resolve headers and unify Excel/CSV files into one canonical CSV",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := normFlags.resolveSchema()
		if err != nil {
			return err
		}
		m, err := normFlags.mapping(s)
		if err != nil {
			return err
		}
		raws, err := readInputs(args, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		universe := normalize.ColumnUniverse(raws)
		t, err := normalize.Normalize(raws, s, m)
		// required columns are reported before the no-usable-data error
		if verr := normalize.Validate(t, s, universe); verr != nil {
			return verr
		}
		if errors.Is(err, normalize.ErrNoUsableData) {
			return fmt.Errorf("%w (columns found: %v)", err, universe)
		}
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := t.WriteCSV(&buf); err != nil {
			return err
		}
		if err := writeOutput(normOutput, buf.Bytes(), cmd.OutOrStdout()); err != nil {
			return err
		}
		if normOutput != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows (%d sheet(s)) to %s\n", t.Len(), len(raws), normOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	normFlags.register(normalizeCmd)
	normalizeCmd.Flags().StringVarP(&normOutput, "output", "o", "", "write the unified CSV to this path instead of stdout")
}
