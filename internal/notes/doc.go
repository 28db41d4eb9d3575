// Package notes builds, writes and validates localized release notes and
// their manifest.
package notes
