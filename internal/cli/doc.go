// Package cli wires together the Cobra command tree for the relnote binary.
//
// Each pipeline stage is one command that reads its upstream artifacts,
// runs to completion, and writes its own artifact: collect-facts,
// curate-facts, decide-bump, compute-tag, generate-notes, validate-notes
// and render-markdown. The doctor, config, cache and version commands
// support operators. Configuration is loaded once per command and passed
// down; any failure ends the process with a single "relnote: ..." line on
// stderr and exit code 1.
package cli
