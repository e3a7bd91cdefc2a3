// Package model - Reflection-basierte Parameter-Erfassung
//
// Dieses Modul enthaelt die Reflection-Logik, die die Parameter einer
// Modell-Struktur anhand ihrer weight-Tags einsammelt.
//
// Hauptkomponenten:
// - collectFields: Durchlaeuft Strukturfelder rekursiv
// - Tag: weight-Tag-Struktur fuer Parameter-Namen
// - parseTag: Parst weight-Tags aus Struct-Tags
//
// Beispiel:
//
//	type Layer struct {
//		Attention *Attention `weight:"self_attn"`
//		Norm      *nn.RMSNorm `weight:"input_layernorm"`
//	}
//
// Slices haengen den Index an den Namen an ("model.layers.0...").

package model

import (
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/EchoCog/aphroditecho/ml"
)

// Tag repraesentiert einen geparsten weight-Tag
type Tag struct {
	name,
	// prefix und suffix werden auf Kind-Tags angewendet
	prefix,
	suffix string
}

// parseTag parst einen weight-Tag-String in eine Tag-Struktur
func parseTag(s string) (tag Tag) {
	parts := strings.Split(s, ",")
	if len(parts) > 0 {
		tag.name = parts[0]

		for _, part := range parts[1:] {
			if value, ok := strings.CutPrefix(part, "pre:"); ok {
				tag.prefix = value
			}
			if value, ok := strings.CutPrefix(part, "suf:"); ok {
				tag.suffix = value
			}
		}
	}

	return
}

var tensorType = reflect.TypeOf((*ml.Tensor)(nil))

// Collect returns the parameters of the model struct m, in field order.
// Nil tensors and nil pointers are skipped.
func Collect(m any) *ParameterTable {
	table := NewParameterTable()
	collectFields(table, reflect.ValueOf(m))
	return table
}

// collectFields sammelt rekursiv alle Tensoren eines Wertes ein
func collectFields(table *ParameterTable, v reflect.Value, tags ...Tag) {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return
		}
		if v.Type() == tensorType {
			name := buildTensorName(tags)
			if name == "" {
				slog.Warn("tensor without weight tag skipped")
				return
			}
			table.Set(name, v.Interface().(*ml.Tensor))
			return
		}
		collectFields(table, v.Elem(), tags...)
	case reflect.Struct:
		t := v.Type()
		for i := range t.NumField() {
			if !t.Field(i).IsExported() {
				continue
			}

			// Kopie erstellen
			tagsCopy := tags
			tag, ok := t.Field(i).Tag.Lookup("weight")
			if !ok {
				continue
			}
			if tag == "-" {
				continue
			}
			if tag != "" {
				tagsCopy = append(tagsCopy[:len(tagsCopy):len(tagsCopy)], parseTag(tag))
			}
			collectFields(table, v.Field(i), tagsCopy...)
		}
	case reflect.Slice, reflect.Array:
		for i := range v.Len() {
			collectFields(table, v.Index(i), append(tags[:len(tags):len(tags)], Tag{name: strconv.Itoa(i)})...)
		}
	}
}

// buildTensorName baut den vollstaendigen Parameter-Namen aus Tags.
// prefix und suffix eines Tags gelten fuer den Namen des naechsten Tags.
func buildTensorName(tags []Tag) string {
	var parts []string
	var prefix, suffix string
	for _, tag := range tags {
		if tag.name != "" {
			parts = append(parts, prefix+tag.name+suffix)
		}
		prefix, suffix = tag.prefix, tag.suffix
	}
	return strings.Join(parts, ".")
}
