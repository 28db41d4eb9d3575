// Package logging writes leveled progress lines for the relnote CLI.
//
// Progress lines look like "relnote: wrote facts -> facts.json"; warnings and
// errors carry their level, as in "relnote: warn: ...". Output goes to stderr
// by default, which keeps stdout free for rendered output. A quiet logger
// drops progress lines only.
package logging
