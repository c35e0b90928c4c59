// Package backupimport applies exported documents to a library store.
package backupimport

import (
	"fmt"
	"strings"
)

// Mode defines how an import treats existing data.
type Mode string

const (
	// ModeMerge keeps existing rows and fills their gaps from the document.
	ModeMerge Mode = "merge"
	// ModeReplace wipes books, memberships and custom lists before loading.
	ModeReplace Mode = "replace"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeMerge, ModeReplace:
		return true
	default:
		return false
	}
}

// ParseMode parses a mode name. An empty name means merge.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if m == "" {
		return ModeMerge, nil
	}
	if !m.Valid() {
		return "", fmt.Errorf("unknown import mode %q (want merge or replace)", s)
	}
	return m, nil
}

// Result reports how many rows an import created or updated.
type Result struct {
	ListsImported     int `json:"lists_imported"`
	BooksImported     int `json:"books_imported"`
	ListBooksImported int `json:"list_books_imported"`
}
