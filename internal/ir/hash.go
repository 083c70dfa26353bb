package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for a future algorithm change.
const (
	DomainStatement = "stanza/statement/v1"
	DomainSource    = "stanza/source/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// StatementID computes the content-addressed ID of a statement in a language.
// The same statement text always gets the same ID, wherever it appears.
func StatementID(lang Language, st Statement) (string, error) {
	obj := Object{
		"language":  String(lang),
		"statement": st.Canonical(),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("StatementID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainStatement, canonical), nil
}

// MustStatementID is like StatementID but panics on error.
func MustStatementID(lang Language, st Statement) string {
	id, err := StatementID(lang, st)
	if err != nil {
		panic(err)
	}
	return id
}

// SourceDigest identifies an input by its bytes.
func SourceDigest(content []byte) string {
	return hashWithDomain(DomainSource, content)
}
