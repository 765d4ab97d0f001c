package shell

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var embedded embed.FS

// Files returns the embedded shell rooted at the "static" directory.
func Files() fs.FS {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		// static is embedded at compile time
		panic("failed to get embedded shell directory: " + err.Error())
	}
	return sub
}
