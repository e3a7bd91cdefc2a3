// cmd_load.go - Load Command und Kapazitaetsbericht
// Hauptfunktionen: LoadHandler, showCapacity
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/EchoCog/aphroditecho/format"
	"github.com/EchoCog/aphroditecho/llm"
)

// LoadHandler - Laedt ein Modell und zeigt die Cache-Kapazitaet an
func LoadHandler(cmd *cobra.Command, args []string) error {
	largs, err := loaderArgs(cmd, args[0])
	if err != nil {
		return err
	}

	opts := llm.EngineOptions{Progress: cmd.ErrOrStderr()}

	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	var reg *prometheus.Registry
	if metricsFile != "" {
		reg = prometheus.NewRegistry()
		opts.Registry = reg
	}

	e, err := llm.LoadEngine(largs, opts)
	if err != nil {
		return err
	}

	showCapacity(cmd.OutOrStdout(), e)

	if reg != nil {
		if err := llm.WriteMetrics(metricsFile, reg); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func showCapacity(w io.Writer, e *llm.Engine) {
	c := e.Capacity
	blockSize := e.Config.Cache.BlockSize
	info := e.Device.Info()

	device := info.Name
	if info.Accelerator() {
		device += " (" + format.HumanBytes2(info.TotalMemory) + ")"
	}

	table := newTable(w, "", "DEVICE", "HOST")
	table.Append([]string{"budget", format.HumanBytes2(uint64(c.DeviceBudget)), format.HumanBytes2(uint64(c.HostBudget))})
	table.Append([]string{"blocks", strconv.Itoa(c.Blocks.Device), strconv.Itoa(c.Blocks.Host)})
	table.Append([]string{"tokens", strconv.Itoa(c.Blocks.Device * blockSize), strconv.Itoa(c.Blocks.Host * blockSize)})

	fmt.Fprintf(w, "%-14s%s\n", "engine", e.ID)
	fmt.Fprintf(w, "%-14s%s\n", "model", e.Config.ID)
	fmt.Fprintf(w, "%-14s%s\n", "architecture", e.Config.Schema)
	fmt.Fprintf(w, "%-14s%s\n", "dtype", e.Config.DType)
	fmt.Fprintf(w, "%-14s%s\n", "device", device)
	fmt.Fprintf(w, "%-14s%s\n", "peak", format.HumanBytes2(c.Peak))
	fmt.Fprintf(w, "%-14s%s\n", "block", format.HumanBytes2(uint64(c.BlockBytes)))
	fmt.Fprintln(w)
	table.Render()
}
