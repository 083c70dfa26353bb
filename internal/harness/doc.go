// Package harness runs end-to-end scenarios against the bundled pipeline.
//
// A scenario describes a small file tree, the command-line flags of one
// `stanza run`, and what the run must produce. The harness writes the files
// to a fresh directory, runs the input with a fixed run ID and a
// deterministic sequence clock, and checks the exit code and output.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: unbound-identifier
//	description: "An assert over an undeclared symbol stops the run"
//	files:
//	  main.stz: |
//	    declare x
//	    assert (and x q)
//	entry: main.stz
//	args: ["--style", "minimal"]
//	expect:
//	  exit_code: 4
//	  stdout: "ok\n"
//	  stderr_contains: ["E:unbound-identifier"]
//
// entry names the input file among files, or "-" to read stdin from the
// stdin field. Relative paths in args (--config, -I, --db, --metrics-file)
// resolve inside the scenario directory.
//
// # Transcripts
//
// Every run also records a journal in the scenario directory. The
// transcript of a run lists the command, exit code, both output streams and
// the journal rows, with the scenario directory stripped from paths, so it
// can be compared against a golden file:
//
//	go test ./internal/harness -update
//
// regenerates the golden files under testdata/golden.
package harness
