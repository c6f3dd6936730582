// Package migrations carries the SQL schema files applied by the SQLite
// store on startup.
package migrations

import "embed"

// FS holds the numbered migration scripts, embedded at build time.
//
//go:embed *.sql
var FS embed.FS
