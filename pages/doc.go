// Package pages is the persistence core of the wiki: it resolves pages through
// the local store, bundled default content and plugin-provided pages,
// serializes every storage action of a store through a single queue, keeps
// deleted pages in a recycle area and derives the sitewide index.
package pages
