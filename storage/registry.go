package storage

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Dirs carries the directories a file-based backend falls back on when the
// DSN does not name them.
type Dirs struct {
	Pages    string
	Recycler string
}

// Factory builds a Backend from a DSN.
type Factory func(dsn string, dirs Dirs) (Backend, error)

var factoryRegistry = struct {
	mu        sync.RWMutex
	factories map[string]Factory
}{
	factories: map[string]Factory{},
}

// Register installs a factory for scheme, replacing any built-in handling.
func Register(scheme string, factory Factory) {
	scheme = normalizeScheme(scheme)
	if scheme == "" || factory == nil {
		return
	}
	factoryRegistry.mu.Lock()
	defer factoryRegistry.mu.Unlock()
	factoryRegistry.factories[scheme] = factory
}

func lookupFactory(scheme string) (Factory, bool) {
	factoryRegistry.mu.RLock()
	defer factoryRegistry.mu.RUnlock()
	f, ok := factoryRegistry.factories[normalizeScheme(scheme)]
	return f, ok
}

// Open builds the backend described by dsn.
//
//	""                          file backend on dirs
//	file:///srv/wiki/pages      file backend; recycler from ?recycler= or dirs
//	memory:                     in-memory backend
//	sqlite:///srv/wiki/wiki.db  SQLite database (sqlite:data/wiki.db for a relative path)
//	postgres://user@host/db     PostgreSQL database
func Open(dsn string, dirs Dirs) (Backend, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return NewFile(dirs.Pages, dirs.Recycler)
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	scheme := normalizeScheme(parsed.Scheme)
	if factory, ok := lookupFactory(scheme); ok {
		return factory(dsn, dirs)
	}
	switch scheme {
	case "", "file":
		pagesDir, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		recyclerDir := dirs.Recycler
		if r := strings.TrimSpace(parsed.Query().Get("recycler")); r != "" {
			recyclerDir = r
		}
		return NewFile(pagesDir, recyclerDir)
	case "memory", "mem", "inmem":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		path, err := dsnPath(parsed, dsn)
		if err != nil {
			return nil, err
		}
		return NewSQLite(path)
	case "postgres", "postgresql":
		return NewPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage scheme: %s", scheme)
	}
}

func dsnPath(parsed *url.URL, raw string) (string, error) {
	if strings.TrimSpace(parsed.Scheme) == "" {
		return strings.TrimSpace(raw), nil
	}
	path := strings.TrimSpace(parsed.Path)
	if path == "" {
		path = strings.TrimSpace(parsed.Opaque)
	}
	if path == "" {
		path = strings.TrimSpace(parsed.Host)
	}
	if path == "" {
		return "", fmt.Errorf("storage: no path in dsn %q", raw)
	}
	return path, nil
}

func normalizeScheme(scheme string) string {
	return strings.ToLower(strings.TrimSpace(scheme))
}
