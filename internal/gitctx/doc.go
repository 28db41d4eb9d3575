// Package gitctx queries repository history by shelling out to git.
//
// A [Repo] resolves refs, lists commits in a range (oldest first, with
// subject and body split on ASCII unit and record separators), lists tags
// merged into a ref and reads remote URLs. Each subprocess runs under a
// fixed timeout.
package gitctx
