package queryir

import "github.com/roach88/stanza/internal/ir"

// Query represents an abstract journal query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Journal tables.
const (
	TableRuns  = "runs"
	TableItems = "items"
)

// Tables lists the queryable columns of each journal table, in storage
// order.
var Tables = map[string][]string{
	TableRuns: {"id", "source", "digest", "language", "started_seq"},
	TableItems: {
		"run_id", "seq", "statement_id", "kind", "text", "statement",
		"status", "stage", "error", "duration_ns",
	},
}

// Select represents a filtered read of one table.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter>
//
// Example:
//
//	Select{
//	  From: TableItems,
//	  Filter: And{Predicates: []Predicate{
//	    Equals{Field: "run_id", Value: ir.String("0192...")},
//	    Equals{Field: "status", Value: ir.String("failed")},
//	  }},
//	}
//
// Rows always come back in the table's stable order; see querysql.
type Select struct {
	From    string    // Table name (TableRuns or TableItems)
	Filter  Predicate // WHERE conditions (nil = no filter)
	Columns []string  // Columns to return (empty = all, in storage order)
}

func (Select) queryNode() {}

// Equals represents a column-equals-literal predicate.
//
//	<field> = <value>
type Equals struct {
	Field string   // Column name
	Value ir.Value // Literal value (String, Int or Bool)
}

func (Equals) predicateNode() {}

// In represents a column-in-set predicate.
//
//	<field> IN (<values>...)
//
// Values must not be empty.
type In struct {
	Field  string
	Values []ir.Value
}

func (In) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is always true.
type And struct {
	Predicates []Predicate // All must be true (empty = always true)
}

func (And) predicateNode() {}

// Where conjoins the non-nil predicates. It returns nil when none is left.
func Where(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		if p != nil {
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return And{Predicates: out}
	}
}

// Strings converts ss to a value list for In.
func Strings(ss []string) []ir.Value {
	out := make([]ir.Value, len(ss))
	for i, s := range ss {
		out[i] = ir.String(s)
	}
	return out
}
