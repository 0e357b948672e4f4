package wikiengine

import (
	"net/url"
	"path"
	"time"

	"github.com/eringen/wikiengine/markup"
)

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// ViewURL is the absolute URL of a page's HTML view.
func ViewURL(base, slug string) string {
	return BuildURL(base, markup.ViewPath, slug)
}

// EpochMillis converts a journal date to UTC time.
func EpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
