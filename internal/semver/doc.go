// Package semver parses, compares and bumps release tags of the form
// vMAJOR.MINOR.PATCH.
//
// Only the strict three-component form is accepted: no pre-release or build
// suffixes and no leading zeros. [Parse] never fails loudly; it reports
// whether the tag parsed. [Bump] panics on an unknown kind because every
// caller validates untrusted input with [IsValidBump] first.
package semver
