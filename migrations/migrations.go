// Package migrations embeds the SQL schema migrations. Files are applied in
// lexical order; each NNN_name.up.sql has a matching NNN_name.down.sql.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
