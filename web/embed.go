// Package web carries the HTML templates and static assets compiled into
// release builds.
package web

import "embed"

// EmbeddedFS holds templates/ and static/.
//
//go:embed templates static
var EmbeddedFS embed.FS
