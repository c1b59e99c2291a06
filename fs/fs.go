package appfs

import "embed"

// FS embeds the SQL migrations and email templates shipped with the binaries.
//go:embed migrations all:templates
var FS embed.FS
