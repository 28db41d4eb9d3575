// Package output renders relnote results for people and machines.
//
// Three formats are supported:
//   - markdown: the release page assembled from per-locale notes
//   - text: aligned "label: value" reports for terminal commands
//   - json: indented JSON of any value
//
// Use [GetWriter] for the text and json formats. [WriteTo] picks the
// destination (a file, created with its parent directories, or stdout).
package output
