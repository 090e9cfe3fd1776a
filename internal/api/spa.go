package api

import (
	"net/http"
	"os"
	"path"
)

// spaFileSystem serves the built browser client and falls back to index.html
// for client-side routes such as /demo/venue1/search.
type spaFileSystem struct {
	root http.FileSystem
}

// Open opens the named file. Missing files without an extension resolve to index.html.
func (s *spaFileSystem) Open(name string) (http.File, error) {
	f, err := s.root.Open(name)
	if os.IsNotExist(err) && path.Ext(name) == "" {
		return s.root.Open("/index.html")
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}
