// Package appfs embeds the static files shipped with the binaries.
package appfs

import "embed"

// Files starting with "_" are skipped when embedding a directory, so the base templates are listed.
//go:embed migrations assets assets/templates/email/_base.gohtml assets/templates/email/_base.txt
var FS embed.FS
