package pages

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SitemapEntry summarizes one page for the sitewide index.
type SitemapEntry struct {
	Slug     string            `json:"slug"`
	Title    string            `json:"title"`
	Date     *int64            `json:"date,omitempty"`
	Synopsis string            `json:"synopsis"`
	Links    map[string]string `json:"links,omitempty"`
}

var reLink = regexp.MustCompile(`\[\[([^\]]+)\]\]`)

// Pages builds the sitemap: one entry per readable page in the primary
// store, in slug order. Pages that are hidden, missing or malformed are left
// out; only a failure to list the store is returned as an error.
func (h *Handler) Pages(ctx context.Context) ([]SitemapEntry, error) {
	slugs, err := h.Slugs(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*SitemapEntry, len(slugs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.sitemapConcurrency)
	for i, slug := range slugs {
		if strings.HasPrefix(slug, ".") {
			continue
		}
		g.Go(func() error {
			page, err := h.Get(gctx, slug)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				h.log.WithField("slug", slug).WithError(err).Warn("skipping page in sitemap")
				return nil
			}
			entries[i] = h.sitemapEntry(slug, page)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]SitemapEntry, 0, len(entries))
	for _, e := range entries {
		if e != nil {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (h *Handler) sitemapEntry(slug string, page *Page) *SitemapEntry {
	if page.Story == nil {
		if _, ok := page.Extra["story"]; ok {
			h.log.WithField("slug", slug).Debug("story is not a list, no links extracted")
		}
	}
	return &SitemapEntry{
		Slug:     slug,
		Title:    page.Title,
		Date:     EditDate(page.Journal),
		Synopsis: h.summarize(page),
		Links:    ExtractLinks(page.Story),
	}
}

// ExtractLinks maps the slug of every [[Name]] reference in story to the id
// of the first item that mentions it. It returns nil when there are none.
func ExtractLinks(story []Item) map[string]string {
	var links map[string]string
	for _, item := range story {
		for _, m := range reLink.FindAllStringSubmatch(item.Text, -1) {
			slug := AsSlug(m[1])
			if links == nil {
				links = map[string]string{}
			}
			if _, ok := links[slug]; !ok {
				links[slug] = item.ID
			}
		}
	}
	return links
}

// EditDate returns the date of the newest journal action that is not a fork,
// or nil when there is none.
func EditDate(journal []Action) *int64 {
	for i := len(journal) - 1; i >= 0; i-- {
		a := journal[i]
		if a.Date == nil || *a.Date == 0 || a.Type == "fork" {
			continue
		}
		d := *a.Date
		return &d
	}
	return nil
}
