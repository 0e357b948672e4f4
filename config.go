package wikiengine

import (
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// SiteConfig holds all configuration for a wiki site.
type SiteConfig struct {
	Name string // Site name (default "Wiki")
	URL  string // Canonical URL (default "http://localhost:3000")
	Addr string // Listen address (default ":3000")

	DataDir     string // Base for the page directories (default "data")
	PagesDir    string // Primary page directory (default DataDir/pages)
	RecyclerDir string // Recycled page directory (default DataDir/recycle)
	StorageDSN  string // Storage backend; empty keeps pages as files in PagesDir
	DefaultsDir string // Bundled default pages (default "default-data/pages")
	PackageDir  string // Directory holding wiki-plugin-*/pages (default "plugins")
	NoPlugins   bool   // Skip the plugin fallback entirely

	OwnerPassword string // Required: owner login password
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	SitemapCacheTTL time.Duration // Sitemap cache TTL (default 5min)
	WatchPages      bool          // Invalidate the sitemap cache on page directory changes
	LogLevel        string        // logrus level name (default "info")
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Wiki"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.PagesDir == "" {
		c.PagesDir = filepath.Join(c.DataDir, "pages")
	}
	if c.RecyclerDir == "" {
		c.RecyclerDir = filepath.Join(c.DataDir, "recycle")
	}
	if c.DefaultsDir == "" {
		c.DefaultsDir = filepath.Join("default-data", "pages")
	}
	if c.PackageDir == "" {
		c.PackageDir = "plugins"
	}
	if c.SitemapCacheTTL == 0 {
		c.SitemapCacheTTL = 5 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithLogger replaces the logger built from SiteConfig.LogLevel.
func WithLogger(l *logrus.Entry) Option {
	return func(a *App) {
		a.Log = l
	}
}
