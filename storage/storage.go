// Package storage maps logical page keys onto the places pages are kept.
//
// A key is either a plain slug such as "welcome-visitors", which lives in the
// primary root, or a slug carrying the "recycler/" prefix, which lives in the
// recycle root under the remainder of the key. Every backend applies the same
// resolution so callers never deal with physical paths.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// RecyclerPrefix marks keys that address the recycle root.
const RecyclerPrefix = "recycler/"

var (
	// ErrNotFound is returned when a key has no stored document.
	ErrNotFound = errors.New("storage: key not found")
	// ErrInvalidKey is returned for empty, absolute or escaping keys.
	ErrInvalidKey = errors.New("storage: invalid key")
	// ErrReadOnly is returned by mutating calls on a read-only source.
	ErrReadOnly = errors.New("storage: read-only source")
)

// Root identifies one of the two areas a backend manages.
type Root int

const (
	RootPages Root = iota
	RootRecycle
)

func (r Root) String() string {
	switch r {
	case RootPages:
		return "pages"
	case RootRecycle:
		return "recycle"
	default:
		return fmt.Sprintf("root(%d)", int(r))
	}
}

// Location is a resolved key: the root it belongs to and its key inside it.
type Location struct {
	Root Root
	Key  string
}

// Source is the read side of a backend. Default content and plugin page
// directories only implement this half.
type Source interface {
	Exists(key string) bool
	Read(key string) ([]byte, error)
}

// Backend stores page documents under logical keys.
//
// Write, Rename and Copy create whatever parent structure the destination
// needs and overwrite an existing destination. List returns the keys of the
// primary root only.
type Backend interface {
	Source
	Write(key string, data []byte) error
	Rename(src, dst string) error
	Copy(src, dst string) error
	Remove(key string) error
	List() ([]string, error)
	Close() error
}

// Resolve splits key into its root and local key.
func Resolve(key string) (Location, error) {
	loc := Location{Root: RootPages, Key: key}
	if strings.HasPrefix(key, RecyclerPrefix) {
		loc = Location{Root: RootRecycle, Key: strings.TrimPrefix(key, RecyclerPrefix)}
	}
	if err := validateKey(loc.Key); err != nil {
		return Location{}, fmt.Errorf("%w: %q", err, key)
	}
	return loc, nil
}

// RecycleKey returns the key addressing slug inside the recycle root.
func RecycleKey(slug string) string {
	return RecyclerPrefix + slug
}

// IsRecycled reports whether key addresses the recycle root.
func IsRecycled(key string) bool {
	return strings.HasPrefix(key, RecyclerPrefix)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}
