// Copyright (c) 2026 Civilex. All rights reserved.

/*
Package laws implements the read-mostly legal catalogue.

It models published laws grouped into categories. Citizens browse and read;
only administrators publish. Full-text content and document parsing are out of
scope — the catalogue carries titles, summaries, and navigation metadata.
*/
package laws

import "time"

// Category groups related laws for navigation.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"nombre"`
	Slug string `json:"slug"`
}

// Law is one published catalogue entry.
type Law struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"categoria_id"`
	Title       string    `json:"titulo"`
	Slug        string    `json:"slug"`
	Summary     string    `json:"resumen,omitempty"`
	PublishedAt time.Time `json:"publicada_en"`
}

// Wire field names for validation in the laws domain.
const (
	FieldTitle    = "titulo"
	FieldSummary  = "resumen"
	FieldCategory = "categoria_id"
)
