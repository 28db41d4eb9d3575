// Package github is a small read-only client for the GitHub REST API.
//
// It fetches pull request metadata and lists releases with pagination.
// Tokens are attached through golang.org/x/oauth2. [ParseRemoteURL] infers
// the repository slug from an origin remote.
package github
