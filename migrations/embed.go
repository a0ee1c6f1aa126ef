// Package migrations exposes the embedded SQL schema migrations.
package migrations

import "embed"

// Files contains the embedded SQL migrations bundled into the binaries.
//
//go:embed *.sql
var Files embed.FS
