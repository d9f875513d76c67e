// Package assets serves the marketing site's static files for every path
// the edge's route table does not claim.
package assets

import (
	"net/http"
	"path"
	"strings"
)

// Source is a static file backend.
type Source interface {
	http.Handler
	// Kind is "dir" or "s3", for startup logs.
	Kind() string
}

const indexFile = "index.html"

// objectKey maps a URL path to a storage key. Directory paths resolve to
// their index.html.
func objectKey(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	key := strings.TrimPrefix(clean, "/")
	if key == "" {
		return indexFile
	}
	if strings.HasSuffix(urlPath, "/") {
		return key + "/" + indexFile
	}
	return key
}

// isRoute reports whether a missing key looks like a client-side route
// rather than a missing file. Routes fall back to the root index.html.
func isRoute(key string) bool {
	return path.Ext(key) == ""
}
