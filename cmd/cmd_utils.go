// cmd_utils.go - Hilfsfunktionen fuer Commands
// Hauptfunktionen: loaderArgs, newTable
package cmd

import (
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/EchoCog/aphroditecho/ml"
	"github.com/EchoCog/aphroditecho/model"
)

// loaderArgs - Liest die Voreinstellungen aus der Umgebung und
// ueberschreibt sie mit gesetzten Flags
func loaderArgs(cmd *cobra.Command, modelID string) (model.LoaderArgs, error) {
	args, err := model.DefaultLoaderArgs(modelID)
	if err != nil {
		return args, err
	}

	flags := cmd.Flags()
	if flags.Changed("revision") {
		args.Revision, _ = flags.GetString("revision")
	}
	if flags.Changed("dtype") {
		s, _ := flags.GetString("dtype")
		if args.DType, err = ml.ParseDType(s); err != nil {
			return args, err
		}
	}
	if flags.Changed("device") {
		args.Device, _ = flags.GetString("device")
	}
	if flags.Changed("block-size") {
		args.BlockSize, _ = flags.GetInt("block-size")
	}
	if flags.Changed("gpu-memory-utilization") {
		args.GPUMemoryUtilization, _ = flags.GetFloat64("gpu-memory-utilization")
	}
	if flags.Changed("max-num-batched-tokens") {
		args.MaxBatchedTokens, _ = flags.GetInt("max-num-batched-tokens")
	}
	if flags.Changed("max-num-seqs") {
		args.MaxSequences, _ = flags.GetInt("max-num-seqs")
	}
	if flags.Changed("profile-step") {
		args.ProfileStepNo, _ = flags.GetInt("profile-step")
	}

	return args, args.Validate()
}

// newTable - Tabelle im Stil der uebrigen Ausgaben
func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.SetAutoWrapText(false)
	return table
}
