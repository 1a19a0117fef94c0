// Package webcache keeps a versioned, cache-first copy of the web client's
// static assets so the timer page still loads when the origin is failing.
package webcache

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// NamePrefix prefixes every cache name; the version tag follows it.
const NamePrefix = "tomatoclock-"

// Manifest is the fixed list of assets fetched by Install.
var Manifest = []string{"/", "/index.html", "/app.js", "/manifest.json", "/icon.svg"}

type entry struct {
	status int
	header http.Header
	body   []byte
}

// Storage holds named caches. Caches from older versions stay here until a newer
// Cache is activated.
type Storage struct {
	mu     sync.RWMutex
	caches map[string]map[string]entry
}

// NewStorage returns empty storage.
func NewStorage() *Storage {
	return &Storage{caches: make(map[string]map[string]entry)}
}

// Names returns the cache names, sorted.
func (storage *Storage) Names() []string {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	names := make([]string, 0, len(storage.caches))
	for name := range storage.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (storage *Storage) get(name, path string) (entry, bool) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	cached, ok := storage.caches[name][path]
	return cached, ok
}

func (storage *Storage) put(name, path string, cached entry) {
	storage.mu.Lock()
	defer storage.mu.Unlock()
	bucket, ok := storage.caches[name]
	if !ok {
		bucket = make(map[string]entry)
		storage.caches[name] = bucket
	}
	bucket[path] = cached
}

func (storage *Storage) ensure(name string) {
	storage.mu.Lock()
	defer storage.mu.Unlock()
	if _, ok := storage.caches[name]; !ok {
		storage.caches[name] = make(map[string]entry)
	}
}

// Cache is one version of the asset cache in front of an origin handler.
type Cache struct {
	storage *Storage
	name    string
	origin  http.Handler
	logger  *slog.Logger
}

// New creates the cache for version on top of origin.
func New(storage *Storage, version string, origin http.Handler, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		storage: storage,
		name:    NamePrefix + version,
		origin:  origin,
		logger:  logger,
	}
}

// Name returns the versioned cache name.
func (cache *Cache) Name() string {
	return cache.name
}

// Install prefetches the manifest. An asset the origin cannot serve is logged
// and skipped; install itself only fails when ctx is done.
func (cache *Cache) Install(ctx context.Context) error {
	cache.storage.ensure(cache.name)
	for _, path := range Manifest {
		if err := ctx.Err(); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		response := fetch(cache.origin, req)
		if response.status != http.StatusOK {
			cache.logger.Warn("webcache: asset not cached", "path", path, "status", response.status)
			continue
		}
		cache.storage.put(cache.name, path, response)
	}
	return nil
}

// Activate deletes caches of every other version and returns their names.
func (cache *Cache) Activate() []string {
	cache.storage.mu.Lock()
	defer cache.storage.mu.Unlock()
	var removed []string
	for name := range cache.storage.caches {
		if name != cache.name && strings.HasPrefix(name, NamePrefix) {
			delete(cache.storage.caches, name)
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	if len(removed) > 0 {
		cache.logger.Info("webcache: purged old caches", "removed", removed)
	}
	return removed
}

// ServeHTTP answers GET requests from the cache first, then from the origin,
// caching fresh 200 responses. When the origin fails a page navigation the
// cached root document is served instead.
func (cache *Cache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cache.origin.ServeHTTP(w, r)
		return
	}

	path := r.URL.Path
	if cached, ok := cache.storage.get(cache.name, path); ok {
		write(w, cached)
		return
	}

	response := fetch(cache.origin, r)
	switch {
	case response.status == http.StatusOK:
		cache.storage.put(cache.name, path, response)
	case response.status >= http.StatusInternalServerError && isNavigation(r):
		if root, ok := cache.storage.get(cache.name, "/"); ok {
			cache.logger.Warn("webcache: origin failed, serving cached page", "path", path, "status", response.status)
			write(w, root)
			return
		}
	}
	write(w, response)
}

func isNavigation(r *http.Request) bool {
	if r.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func fetch(origin http.Handler, r *http.Request) entry {
	recorder := &recorder{header: make(http.Header)}
	origin.ServeHTTP(recorder, r)
	if recorder.status == 0 {
		recorder.status = http.StatusOK
	}
	return entry{status: recorder.status, header: recorder.header, body: recorder.body.Bytes()}
}

func write(w http.ResponseWriter, response entry) {
	for key, values := range response.header {
		w.Header()[key] = append([]string(nil), values...)
	}
	w.WriteHeader(response.status)
	_, _ = w.Write(response.body)
}

// recorder buffers an origin response.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (rec *recorder) Header() http.Header {
	return rec.header
}

func (rec *recorder) WriteHeader(status int) {
	if rec.status == 0 {
		rec.status = status
	}
}

func (rec *recorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.body.Write(p)
}
