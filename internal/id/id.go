// Package id generates the unique identifiers used for documents, files,
// accounts and sessions.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for each kind of resource.
const (
	User    = "usr"
	Post    = "pst"
	Save    = "sav"
	File    = "fil"
	Account = "acc"
	Session = "ses"
)

// Generate creates a prefixed NanoID, e.g. "pst-V1StGXR8_Z5jdHi6B-myT".
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
