// Package schema embeds the goose migrations of the core module.
package schema

import "embed"

//go:embed *.sql
var Migrations embed.FS
