// Package failure classifies fatal pipeline errors.
//
// Four kinds exist. [Input] marks a bad invocation and [Contract] marks model
// output that breaks the JSON contract. [Rule] is well-formed output that
// breaks release policy, and [Integrity] is a published artifact that no
// longer matches its manifest.
//
// Use [Wrap] to classify an error from another layer and [Is] to test the
// kind. The outermost classification wins.
package failure
