// Package logic reads input files: it detects their language, parses them
// into ir.Statement values and hands them out one at a time through a
// pipeline.Producer.
//
// Two languages are supported:
//
//   - stanza: one command per line (set-logic, declare, assert, include,
//     check), with ";" starting a comment
//   - dimacs: the DIMACS CNF format, a "p cnf V C" header followed by
//     clauses terminated by 0, with "c" comment lines
//
// Parsing is lazy. A producer scans forward to the next statement on each
// pull, so a parse error is reported when the bad statement is reached and
// a resumed run continues after it.
package logic
