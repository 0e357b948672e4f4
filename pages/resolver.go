package pages

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eringen/wikiengine/storage"
)

const (
	pluginDirPrefix = "wiki-plugin-"
	pluginPagesDir  = "pages"
)

// Resolver finds a page by key, falling back from the primary store to the
// bundled default content and then to the pages shipped by plugins.
type Resolver struct {
	primary    storage.Backend
	defaults   storage.Source
	packageDir string
	log        *logrus.Entry
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithDefaults sets the read-only source of bundled default pages.
func WithDefaults(src storage.Source) ResolverOption {
	return func(r *Resolver) {
		r.defaults = src
	}
}

// WithPackageDir sets the directory searched for wiki-plugin-*/pages.
func WithPackageDir(dir string) ResolverOption {
	return func(r *Resolver) {
		r.packageDir = dir
	}
}

// WithResolverLogger sets the logger used for recovery and probe messages.
func WithResolverLogger(l *logrus.Entry) ResolverOption {
	return func(r *Resolver) {
		r.log = l
	}
}

func NewResolver(primary storage.Backend, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		primary: primary,
		log:     logrus.NewEntry(logrus.New()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the page stored under key.
//
// A hit in the primary store or in the default content carries no plugin
// annotation; a hit in a plugin's pages carries that plugin's name. Keys in
// the recycle root never fall back. ErrNotFound is returned only after every
// source has missed.
func (r *Resolver) Resolve(key string) (*Page, error) {
	if r.primary.Exists(key) {
		return r.loadPrimary(key)
	}
	if storage.IsRecycled(key) {
		return nil, ErrNotFound
	}
	if r.defaults != nil && r.defaults.Exists(key) {
		return r.load(r.defaults, key, "")
	}
	return r.probePlugins(key)
}

func (r *Resolver) loadPrimary(key string) (*Page, error) {
	data, err := r.primary.Read(key)
	if err != nil {
		return nil, fmt.Errorf("pages: read %s: %w", key, err)
	}
	page, err := ParsePage(data)
	if err != nil {
		r.quarantine(key, err)
		return nil, ErrParse
	}
	page.Plugin = ""
	return page, nil
}

// quarantine moves a malformed primary document into the recycle root so the
// key reads as missing from then on. Failures are logged and swallowed.
func (r *Resolver) quarantine(key string, parseErr error) {
	log := r.log.WithField("key", key).WithField("parse_error", parseErr.Error())
	if storage.IsRecycled(key) {
		log.Error("problem page in recycler left in place")
		return
	}
	if err := r.primary.Rename(key, storage.RecycleKey(key)); err != nil {
		log.WithError(err).Error("moving problem page to recycler")
		return
	}
	log.Warn("problem page moved to recycler")
}

func (r *Resolver) load(src storage.Source, key, plugin string) (*Page, error) {
	data, err := src.Read(key)
	if err != nil {
		return nil, fmt.Errorf("pages: read %s: %w", key, err)
	}
	page, err := ParsePage(data)
	if err != nil {
		r.log.WithField("key", key).WithField("plugin", plugin).WithError(err).Error("problem page in read-only source")
		return nil, ErrParse
	}
	if plugin != "" {
		page.Plugin = plugin
	}
	return page, nil
}

type pluginHit struct {
	src  storage.Source
	name string
}

// probePlugins checks every plugin's pages directory concurrently. The first
// hit wins; the channel is closed only once every probe has finished, so a
// closed channel with nothing in it means every plugin missed.
func (r *Resolver) probePlugins(key string) (*Page, error) {
	if r.packageDir == "" {
		return nil, ErrNotFound
	}
	dirs, err := filepath.Glob(filepath.Join(r.packageDir, pluginDirPrefix+"*", pluginPagesDir))
	if err != nil {
		return nil, fmt.Errorf("pages: find plugins: %w", err)
	}
	if len(dirs) == 0 {
		return nil, ErrNotFound
	}

	hits := make(chan pluginHit, len(dirs))
	var wg sync.WaitGroup
	for _, dir := range dirs {
		wg.Add(1)
		go func(dir string) {
			defer wg.Done()
			src := storage.NewReadOnlyDir(dir)
			if src.Exists(key) {
				hits <- pluginHit{src: src, name: PluginName(dir)}
			}
		}(dir)
	}
	go func() {
		wg.Wait()
		close(hits)
	}()

	hit, ok := <-hits
	if !ok {
		return nil, ErrNotFound
	}
	return r.load(hit.src, key, hit.name)
}

// PluginName derives a plugin's display name from its pages directory,
// e.g. ".../wiki-plugin-paragraph/pages" is "paragraph".
func PluginName(pagesDir string) string {
	return strings.TrimPrefix(filepath.Base(filepath.Dir(pagesDir)), pluginDirPrefix)
}
