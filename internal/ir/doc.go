// Package ir holds the statement representation shared by the parsers, the
// processing stages and the run journal.
//
// ir imports nothing internal except report (for source locations), so every
// other package can depend on it without cycles.
//
// Statements have a content-addressed identity: the SHA-256 of their
// canonical JSON form under a domain prefix. Canonical JSON sorts object keys
// by UTF-16 code units, never escapes HTML characters and NFC-normalizes
// every string, so the same statement text yields the same ID regardless of
// how the input file was encoded.
package ir
