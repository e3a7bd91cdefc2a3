// file.go - Defaults aus einer Konfigurationsdatei
//
// Eine Datei bildet Variablennamen auf Werte ab, z.B.:
//
//	APHRODITE_DTYPE: bf16
//	APHRODITE_BLOCK_SIZE: 32
//
// Bereits gesetzte Environment-Variablen haben Vorrang.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadFile liest YAML (.yaml, .yml) oder TOML (.toml) und exportiert
// alle Eintraege, die noch nicht in der Umgebung gesetzt sind
func LoadFile(path string) error {
	bts, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var values map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bts, &values)
	case ".toml":
		err = toml.Unmarshal(bts, &values)
	default:
		return fmt.Errorf("unsupported config file type %q", ext)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for k, v := range values {
		if _, ok := os.LookupEnv(k); ok {
			slog.Debug("config file value shadowed by environment", "key", k)
			continue
		}

		switch v.(type) {
		case map[string]any, []any:
			return fmt.Errorf("%s: value for %s must be a scalar", path, k)
		}

		if err := os.Setenv(k, fmt.Sprint(v)); err != nil {
			return err
		}
	}

	return nil
}
