// Package migrations embeds the SQL schema files applied by cmd/migrate and
// the integration tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
