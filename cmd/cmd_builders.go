// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newLoadCmd, newConfigCmd, newManifestCmd, newEnvCmd
package cmd

import (
	"github.com/spf13/cobra"
)

// addLoaderFlags - Flags, die LoaderArgs ueberschreiben
func addLoaderFlags(cmd *cobra.Command) {
	cmd.Flags().String("revision", "", "Revision of a cached model (default: main)")
	cmd.Flags().String("dtype", "", "Numeric type of the parameters (f16, bf16, f32, f64)")
	cmd.Flags().String("device", "", "Device to load the model on (cpu, cuda, cuda:N, gpu, metal)")
	cmd.Flags().Int("block-size", 0, "Tokens per KV cache block")
	cmd.Flags().Float64("gpu-memory-utilization", 0, "Fraction of device memory for model and KV cache")
	cmd.Flags().Int("max-num-batched-tokens", 0, "Tokens in the profiling batch")
	cmd.Flags().Int("max-num-seqs", 0, "Sequences in the profiling batch")
	cmd.Flags().Int("profile-step", -1, "Profiling step number")
}

// newLoadCmd - Erstellt den load Command
func newLoadCmd() *cobra.Command {
	loadCmd := &cobra.Command{
		Use:   "load MODEL",
		Short: "Load a model and report its KV cache capacity",
		Long:  "Load a model from a local directory or the Hugging Face cache, profile its memory and report the number of KV cache blocks.",
		Args:  cobra.ExactArgs(1),
		RunE:  LoadHandler,
	}

	addLoaderFlags(loadCmd)
	loadCmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this textfile")

	return loadCmd
}

// newConfigCmd - Erstellt den config Command
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config MODEL",
		Short: "Show the reconciled model configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  ConfigHandler,
	}

	addLoaderFlags(configCmd)

	return configCmd
}

// newManifestCmd - Erstellt den manifest Command
func newManifestCmd() *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest MODEL",
		Short: "List the weight shards of a model",
		Args:  cobra.ExactArgs(1),
		RunE:  ManifestHandler,
	}

	manifestCmd.Flags().String("revision", "", "Revision of a cached model (default: main)")

	return manifestCmd
}

// newEnvCmd - Erstellt den env Command
func newEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Show the environment configuration",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}
}
