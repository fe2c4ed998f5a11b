// Package appfs embeds the static files shipped with the binaries:
// SQL migrations, e-mail templates and model prompts.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* templates/prompts/*.tmpl
var FS embed.FS
