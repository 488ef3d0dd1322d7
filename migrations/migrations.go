// Package migrations embeds the SQL schema files so the binary can apply
// them without a working directory dependency.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
