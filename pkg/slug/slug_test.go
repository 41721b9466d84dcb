// Copyright (c) 2026 Civilex. All rights reserved.

package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civilex/portal/pkg/slug"
)

/*
TestFrom verifies the slug pipeline on Spanish legal titles.
*/
func TestFrom(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"accents_stripped", "Ley de Protección de Datos", "ley-de-proteccion-de-datos"},
		{"enye", "Ley del Año Fiscal", "ley-del-ano-fiscal"},
		{"punctuation", "Reforma (2026): Artículo 14", "reforma-2026-articulo-14"},
		{"multiple_spaces", "Código   Civil", "codigo-civil"},
		{"leading_trailing", "  Ley Orgánica  ", "ley-organica"},
		{"already_clean", "codigo-penal", "codigo-penal"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, slug.From(tt.input))
		})
	}
}
