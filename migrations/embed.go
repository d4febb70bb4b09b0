// Package migrations ships the numbered SQL schema files with the binary
package migrations

import "embed"

// FS holds every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
