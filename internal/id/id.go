// Package id generates prefixed row identifiers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Row id prefixes.
const (
	PrefixList     = "list"
	PrefixBook     = "book"
	PrefixListBook = "lb"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "book-V1StGXR8_Z5jdHi6B-myT").
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewList returns a fresh reading list id.
func NewList() (string, error) { return Generate(PrefixList) }

// NewBook returns a fresh saved book id.
func NewBook() (string, error) { return Generate(PrefixBook) }

// NewListBook returns a fresh membership row id.
func NewListBook() (string, error) { return Generate(PrefixListBook) }
