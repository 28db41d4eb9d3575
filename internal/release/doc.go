// Package release turns version-control history into classified Facts and
// the decisions derived from them.
//
// The pipeline stages live here in order: [Collector] harvests changes for a
// compare range, [Classify] and [IsUserFacing] apply the deterministic
// heuristics, [Oracle.Curate] and [Oracle.DecideBump] consult the language
// model, and [ComputeTag] derives the next tag. Oracle answers are decoded
// into typed records and rejected, never repaired, when they break the
// closed-world or release rules.
package release
