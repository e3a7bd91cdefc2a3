// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs, setupLogging
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/EchoCog/aphroditecho/envconfig"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-34s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// setupLogging - Installiert den Text-Logger auf stderr
func setupLogging(w io.Writer) {
	level := envconfig.LogLevel()
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level < slog.LevelInfo,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.SourceKey {
				source := attr.Value.Any().(*slog.Source)
				source.File = filepath.Base(source.File)
			}
			return attr
		},
	})
	slog.SetDefault(slog.New(handler))
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "aphrodite",
		Short:         "Load sharded safetensors models and size their KV cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				if err := envconfig.LoadFile(path); err != nil {
					return err
				}
			}
			setupLogging(cmd.ErrOrStderr())
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.PersistentFlags().String("config", "", "YAML or TOML file with environment defaults")

	loadCmd := newLoadCmd()
	configCmd := newConfigCmd()
	manifestCmd := newManifestCmd()
	envCmd := newEnvCmd()

	envVars := envconfig.AsMap()
	hub := []envconfig.EnvVar{envVars["HF_HUB_CACHE"], envVars["HF_HOME"]}

	for _, cmd := range []*cobra.Command{loadCmd, configCmd, manifestCmd} {
		switch cmd {
		case loadCmd:
			appendEnvDocs(cmd, append([]envconfig.EnvVar{
				envVars["APHRODITE_DEBUG"],
				envVars["APHRODITE_DTYPE"],
				envVars["APHRODITE_DEVICE"],
				envVars["APHRODITE_DEVICE_MEMORY"],
				envVars["APHRODITE_GPU_MEMORY_UTILIZATION"],
				envVars["APHRODITE_BLOCK_SIZE"],
				envVars["APHRODITE_MAX_NUM_BATCHED_TOKENS"],
				envVars["APHRODITE_MAX_NUM_SEQS"],
				envVars["APHRODITE_NOPROGRESS"],
			}, hub...))
		default:
			appendEnvDocs(cmd, hub)
		}
	}

	rootCmd.AddCommand(
		loadCmd,
		configCmd,
		manifestCmd,
		envCmd,
	)

	return rootCmd
}

// Execute - Fuehrt das CLI aus und beendet den Prozess bei Fehlern
func Execute() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
