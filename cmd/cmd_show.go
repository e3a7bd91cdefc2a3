// cmd_show.go - Config- und Manifest-Commands
// Hauptfunktionen: ConfigHandler, ManifestHandler
package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/EchoCog/aphroditecho/format"
	"github.com/EchoCog/aphroditecho/huggingface"
	"github.com/EchoCog/aphroditecho/kvcache"
	"github.com/EchoCog/aphroditecho/llm"
	"github.com/EchoCog/aphroditecho/manifest"
)

// ConfigHandler - Zeigt die abgeglichene Modellkonfiguration an
func ConfigHandler(cmd *cobra.Command, args []string) error {
	largs, err := loaderArgs(cmd, args[0])
	if err != nil {
		return err
	}

	_, cfg, err := llm.LoadConfig(largs)
	if err != nil {
		return err
	}

	arch := cfg.Arch
	data := [][]string{
		{"model", cfg.ID},
		{"architecture", cfg.Schema},
		{"dtype", cfg.DType.String()},
		{"device", cfg.Device},
		{"layers", strconv.Itoa(arch.NumLayers())},
		{"kv heads", strconv.Itoa(arch.NumKVHeads())},
		{"head dim", strconv.Itoa(arch.HeadDim())},
		{"vocab size", strconv.Itoa(cfg.VocabSize)},
		{"tokenizer vocab size", strconv.Itoa(cfg.TokVocabSize)},
		{"max sequence length", strconv.Itoa(cfg.MaxSequenceLength)},
		{"block size", strconv.Itoa(cfg.Cache.BlockSize)},
		{"kv bytes per token", fmt.Sprintf("%.0f", kvcache.TokenBytes(cfg, kvcache.BlockBytes))},
	}

	table := newTable(cmd.OutOrStdout(), "KEY", "VALUE")
	table.AppendBulk(data)
	table.Render()
	return nil
}

// ManifestHandler - Listet die Gewichts-Shards eines Modells auf
func ManifestHandler(cmd *cobra.Command, args []string) error {
	revision, _ := cmd.Flags().GetString("revision")
	repo, err := huggingface.Open(args[0], revision)
	if err != nil {
		return err
	}

	names, err := manifest.ShardNames(repo)
	if err != nil {
		return err
	}

	files, err := manifest.ShardFiles(repo)
	if err != nil {
		return err
	}

	data := make([][]string, len(names))
	for i, name := range names {
		info, err := os.Stat(files[i])
		if err != nil {
			return err
		}
		data[i] = []string{name, format.HumanBytes(info.Size()), files[i]}
	}

	table := newTable(cmd.OutOrStdout(), "SHARD", "SIZE", "PATH")
	table.AppendBulk(data)
	table.Render()
	return nil
}
