package assets

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
)

// DirSource serves files from a local directory.
type DirSource struct {
	root  string
	files http.Handler
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root, files: http.FileServer(http.Dir(root))}
}

func (d *DirSource) Kind() string { return "dir" }

func (d *DirSource) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := objectKey(r.URL.Path)
	_, err := os.Stat(filepath.Join(d.root, filepath.FromSlash(key)))
	if errors.Is(err, fs.ErrNotExist) && isRoute(key) {
		http.ServeFile(w, r, filepath.Join(d.root, indexFile))
		return
	}
	d.files.ServeHTTP(w, r)
}
