// Package queryir provides a small query intermediate representation (IR)
// for reading the run journal.
//
// Callers describe which rows they want as a Select over one journal
// table with a filter built from predicates. A backend compiles the IR to
// its own query language; querysql compiles it to parameterized SQLite.
//
//	[trace flags] → [Query IR] → [SQL backend] → store rows
//
// TABLES:
//
// Only the journal tables are queryable, with the columns listed in
// Tables. Validate rejects any other table or column, so backends can
// interpolate table and column names without quoting.
//
// PREDICATES:
//
//   - Equals: column = value
//   - In: column IN (values...)
//   - And: conjunction, empty means always true
//
// There is no OR and no NULL: journal columns are NOT NULL and every
// filter the tools need is a conjunction.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // Handle select
//	default:
//	    // Unreachable for queries built in this package
//	}
//
// Values are ir.Value scalars (String, Int, Bool); floats cannot be
// expressed, which keeps comparisons exact.
package queryir
