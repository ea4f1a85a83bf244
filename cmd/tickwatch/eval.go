package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"tickwatch/internal/tickrange"
)

func runEval(cmd *cobra.Command, _ []string) error {
	previous, _ := cmd.Flags().GetInt64("previous")
	current, _ := cmd.Flags().GetInt64("current")
	spacing, _ := cmd.Flags().GetInt64("spacing")
	threshold, _ := cmd.Flags().GetInt64("threshold")

	if !cmd.Flags().Changed("previous") {
		previous = current
	}
	return writeEvaluation(cmd.OutOrStdout(), previous, current, spacing, threshold)
}

func writeEvaluation(out io.Writer, previous, current, spacing, threshold int64) error {
	eval, err := tickrange.Evaluate(previous, current, spacing, threshold)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(eval)
}
