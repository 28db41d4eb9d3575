// Relnote turns a range of git history into validated, localized release
// notes with the help of an OpenAI-compatible language model.
//
// Usage:
//
//	relnote collect-facts --output dist/facts.json
//	relnote decide-bump --facts dist/facts.json --output dist/decision.json
//	relnote compute-tag --facts dist/facts.json --decision dist/decision.json --output dist/tag.json
//	relnote generate-notes --facts dist/facts.json --tag v1.3.0 --output-dir dist/notes
//	relnote validate-notes --facts dist/facts.json --tag v1.3.0 --notes-dir dist/notes
//	relnote render-markdown --tag v1.3.0 --notes-dir dist/notes --facts dist/facts.json --output dist/RELEASE.md
//
// Every stage reads and writes JSON artifacts, so stages can be re-run and
// checked independently. Run "relnote doctor" to verify LLM connectivity.
package main
