// Package models enthaelt die unterstuetzten Architekturen.
package models

import (
	"github.com/EchoCog/aphroditecho/model"
	"github.com/EchoCog/aphroditecho/model/models/llama"
	"github.com/EchoCog/aphroditecho/model/models/phi"
)

// Schemas returns the architecture schemas in the order they are tried.
// A new architecture whose required fields overlap an existing one must be
// placed before the more general schema.
func Schemas() []model.Schema {
	return []model.Schema{
		llama.Schema,
		phi.Schema,
	}
}

// Names returns the names of Schemas in order.
func Names() []string {
	schemas := Schemas()
	names := make([]string, len(schemas))
	for i, s := range schemas {
		names[i] = s.Name
	}
	return names
}
