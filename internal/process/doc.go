// Package process holds the stages of the bundled stanza pipeline:
//
//	Rec(self => Fix(expand-includes,
//		Branch(include?, self, Cont(check-symbols, Map(respond, Map(done, End))))))
//
// expand-includes replaces an include statement by the statements of the
// included file. A nested include goes back through the whole pipeline;
// everything else runs through check-symbols.
// check-symbols maintains the symbol table, reports shadowing, unknown
// logics, unbound identifiers and out-of-range literals, and stops
// statements that need no response. respond writes one response line per
// remaining statement.
package process
