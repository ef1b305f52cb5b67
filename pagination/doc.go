// Package pagination pages in-memory collections of n8n records by offset
// or by opaque cursor.
//
// Cursors are base64 encoded JSON of the cursor field's value. A cursor that
// cannot be decoded, or whose row has since disappeared, restarts paging
// from the first row instead of failing.
package pagination
