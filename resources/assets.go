// Package resources embeds the tray icons and the web client.
package resources

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"sync"

	"fyne.io/fyne/v2"
)

const iconDir = "icons/"

// Icon file names.
const (
	IconWork  = "tomato.svg"
	IconBreak = "tomato-break.svg"
)

//go:embed icons/*.svg
var iconFS embed.FS

//go:embed web
var webFS embed.FS

var iconCache sync.Map

// Icon returns a Fyne resource for the given icon file.
func Icon(fileName string) (fyne.Resource, error) {
	return loadResource(iconFS, iconDir+fileName, &iconCache)
}

// MustIcon returns a Fyne resource or panics on error.
func MustIcon(fileName string) fyne.Resource {
	resource, err := Icon(fileName)
	if err != nil {
		panic(err)
	}
	return resource
}

// Web returns the web client files rooted at "/".
func Web() fs.FS {
	sub, err := fs.Sub(webFS, "web")
	if err != nil {
		panic(err)
	}
	return sub
}

// WebHandler serves the web client. /index.html is answered directly instead of
// http.FileServer's redirect so that it can be cached like any other asset.
func WebHandler() http.Handler {
	files := http.FileServer(http.FS(Web()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/index.html" {
			root := r.Clone(r.Context())
			root.URL.Path = "/"
			files.ServeHTTP(w, root)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func loadResource(fs embed.FS, path string, cache *sync.Map) (fyne.Resource, error) {
	if cached, ok := cache.Load(path); ok {
		return cached.(fyne.Resource), nil
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load resource %s: %w", path, err)
	}

	resource := fyne.NewStaticResource(path, data)
	cache.Store(path, resource)
	return resource, nil
}
