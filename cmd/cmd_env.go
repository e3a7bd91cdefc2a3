// cmd_env.go - Env Command
// Hauptfunktionen: EnvHandler
package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/EchoCog/aphroditecho/envconfig"
)

// EnvHandler - Zeigt alle Umgebungsvariablen mit aktuellem Wert an
func EnvHandler(cmd *cobra.Command, _ []string) error {
	vars := envconfig.AsMap()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	slices.Sort(names)

	table := newTable(cmd.OutOrStdout(), "NAME", "VALUE", "DESCRIPTION")
	for _, name := range names {
		v := vars[name]
		table.Append([]string{v.Name, fmt.Sprintf("%v", v.Value), v.Description})
	}
	table.Render()
	return nil
}
