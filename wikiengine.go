// Package wikiengine serves a federated wiki's pages over HTTP with Go, Echo,
// and templ. Page storage, fallback lookup, recycling and the sitemap live in
// the pages and storage packages; this package wires them to routes, owner
// sessions, caching and feeds.
package wikiengine

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/eringen/wikiengine/pages"
	"github.com/eringen/wikiengine/storage"
	"github.com/eringen/wikiengine/synopsis"
)

// App is the central wiki application. It wires together the page handler,
// sitemap cache, routes and middleware.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Pages  *pages.Handler
	Cache  *SitemapCache
	Log    *logrus.Entry

	loginLimiter *LoginLimiter
	watcher      *Watcher
	customRoutes []func(*App)
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
	}

	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = NewLogger(cfg.LogLevel)
	}
	a.Log = a.Log.WithField("component", "wikiengine")

	return a
}

// NewLogger returns a text logger at the named level, falling back to info
// for an unknown name.
func NewLogger(level string) *logrus.Entry {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return logrus.NewEntry(l)
}

// Init opens storage and sets up the cache, middleware and routes without
// listening. Start calls it.
func (a *App) Init() error {
	if a.Config.OwnerPassword == "" {
		return fmt.Errorf("wikiengine: OwnerPassword is required")
	}
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("wikiengine: SessionSecret is required")
	}

	handler, err := OpenPages(a.Config, a.Log)
	if err != nil {
		return fmt.Errorf("wikiengine: init pages: %w", err)
	}
	a.Pages = handler
	a.Cache = NewSitemapCache(a.Pages, a.Config.SitemapCacheTTL)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.Config.WatchPages {
		w, err := WatchDir(a.Config.PagesDir, a.Log, func(string) { a.Cache.Invalidate() })
		if err != nil {
			return fmt.Errorf("wikiengine: watch pages: %w", err)
		}
		a.watcher = w
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	a.Log.WithField("addr", a.Config.Addr).Info("starting wiki server")
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// OpenPages builds the page handler cfg describes: the storage backend named
// by StorageDSN, falling back to DefaultsDir and then PackageDir plugins
// unless NoPlugins is set. Queue busy and idle transitions are logged at
// debug level.
func OpenPages(cfg SiteConfig, log *logrus.Entry) (*pages.Handler, error) {
	cfg.setDefaults()
	backend, err := storage.Open(cfg.StorageDSN, storage.Dirs{Pages: cfg.PagesDir, Recycler: cfg.RecyclerDir})
	if err != nil {
		return nil, err
	}
	packageDir := cfg.PackageDir
	if cfg.NoPlugins {
		packageDir = ""
	}
	resolver := pages.NewResolver(backend,
		pages.WithDefaults(storage.NewReadOnlyDir(cfg.DefaultsDir)),
		pages.WithPackageDir(packageDir),
		pages.WithResolverLogger(log.WithField("component", "resolver")),
	)
	h := pages.NewHandler(backend,
		pages.WithResolver(resolver),
		pages.WithLogger(log),
		pages.WithSummarizer(synopsis.Summarize),
	)
	queueLog := log.WithField("component", "queue")
	h.Subscribe(func(s pages.State) {
		queueLog.WithField("state", s.String()).Debug("page queue state changed")
	})
	return h, nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/page/:slug", a.handleGetPage)
	e.GET("/recycler/:slug", a.handleGetRecycled)
	e.GET("/view/:slug", a.handleView)
	e.GET("/system/slugs.json", a.handleSlugs)
	e.GET("/system/sitemap.json", a.handleSitemapJSON)
	e.GET("/system/status.json", a.handleStatus)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	e.POST("/login/", a.handleLogin)
	e.POST("/logout/", handleLogout)

	e.PUT("/page/:slug", a.handlePutPage, requireOwner)
	e.DELETE("/page/:slug", a.handleDeletePage, requireOwner)
	e.POST("/page/:slug/recycle", a.handleRecyclePage, requireOwner)
	e.DELETE("/recycler/:slug", a.handleDeleteRecycled, requireOwner)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.Pages != nil {
		errs = append(errs, a.Pages.Close())
	}
	return errors.Join(errs...)
}
