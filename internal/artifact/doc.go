// Package artifact reads and writes the schema-versioned JSON files that
// carry state between pipeline stages.
//
// Every artifact is indented JSON ending in a newline. [Write] creates parent
// directories and returns the exact bytes written so callers can pin them by
// digest with [SHA256]. [Read] rejects files whose schema_version differs from
// [SchemaVersion]; files without the field are accepted.
package artifact
