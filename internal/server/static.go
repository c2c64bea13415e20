package server

import (
	"embed"
	"io/fs"
)

//go:embed static
var assets embed.FS

var (
	// staticFS serves /static/ from the embedded static directory.
	staticFS = mustSub(assets, "static")
	// dashboardHTML is the single dashboard page served at "/".
	dashboardHTML = mustRead(assets, "static/index.html")
)

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("server: embedded " + dir + ": " + err.Error())
	}
	return sub
}

func mustRead(fsys fs.FS, name string) []byte {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		panic("server: embedded " + name + ": " + err.Error())
	}
	return b
}
