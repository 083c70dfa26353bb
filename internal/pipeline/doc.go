// Package pipeline composes named stages into typed pipelines and evaluates
// them against a state.State.
//
// A stage (Op) is a single transformation (state, A) -> (state, B). Pipelines
// are immutable values built once from five shapes:
//
//   - End: identity.
//   - Map(op, rest): apply op, then rest on its output.
//   - Cont(op, rest): apply op; Done(v) stops with v, Continue(v) runs rest on v.
//   - Concat(p1, p2): run p1, then p2 on its output.
//   - Fix(op, rest): apply op; NoExpansion runs rest once on the original
//     input, Expand(merge, gen) runs rest once per item pulled from gen,
//     folding the state, then merges the pre-fix state with the folded one.
//
// Branch picks one of two pipelines by a predicate on the input. Rec ties a
// knot so that a Fix can hand its items back to the pipeline it belongs to:
//
//	Rec(func(self Pipeline[S, Unit]) Pipeline[S, Unit] {
//		return Fix(expand, Branch(isNested, self, handle))
//	})
//
// Input and output types are type parameters, so a pipeline whose stages do
// not line up does not compile.
//
// # Failures
//
// Every stage application goes through the same wrapper. A returned error or
// a panic becomes a *Failure carrying the stage name and a stack trace, at
// any nesting depth, including inside fixpoint folds. The one exception is
// reading an unbound state key: that panic is re-raised untouched.
//
// # Fixpoint quota
//
// Fix folds are explicit loops, not recursion per item. Nesting (an expansion
// whose items expand again) is bounded by a depth quota, DefaultMaxFixDepth
// unless overridden with WithMaxFixDepth.
package pipeline
