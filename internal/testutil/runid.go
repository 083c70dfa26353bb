package testutil

// FixedRunIDs generates the same run ID every time.
//
// This enables deterministic test execution and golden transcript
// comparison: the same scenario with the same FixedRunIDs produces
// byte-identical journals.
//
// Unlike engine.FixedGenerator, which hands out a list of IDs in order and
// panics when it runs out, FixedRunIDs never runs out.
//
// Thread-safety: FixedRunIDs is stateless and safe for concurrent use.
type FixedRunIDs struct {
	id string
}

// NewFixedRunIDs creates a fixed run ID generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDs(id string) *FixedRunIDs {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDs{id: id}
}

// Generate returns the fixed run ID.
//
// Implements engine.RunIDGenerator.
func (g *FixedRunIDs) Generate() string {
	return g.id
}
