package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// GetStaticFS returns the embedded static assets rooted at static/, so the
// file server can be mounted without the prefix.
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
