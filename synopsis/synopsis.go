// Package synopsis derives the one-line summary shown for a page in the
// sitemap.
package synopsis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eringen/wikiengine/pages"
)

// MaxLength is the longest synopsis Summarize returns, in characters.
const MaxLength = 560

// Summarize returns the page's own synopsis field when it has one. Otherwise
// it prefers the text of the first or second paragraph item, then the text of
// the first or second item of any type, then a description of the story's
// size. Only the first line is kept.
func Summarize(p *pages.Page) string {
	s := explicit(p)
	if s == "" {
		s = fromStory(p.Story)
	}
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	if r := []rune(s); len(r) > MaxLength {
		s = string(r[:MaxLength])
	}
	return s
}

func explicit(p *pages.Page) string {
	raw, ok := p.Extra["synopsis"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func fromStory(story []pages.Item) string {
	if story == nil {
		return "A page with no story."
	}
	first := itemAt(story, 0)
	second := itemAt(story, 1)
	for _, candidate := range []struct {
		item      *pages.Item
		paragraph bool
	}{
		{first, true},
		{second, true},
		{first, false},
		{second, false},
	} {
		it := candidate.item
		if it == nil || it.Text == "" {
			continue
		}
		if candidate.paragraph && it.Type != "paragraph" {
			continue
		}
		return it.Text
	}
	return fmt.Sprintf("A page with %d items.", len(story))
}

func itemAt(story []pages.Item, i int) *pages.Item {
	if i < len(story) {
		return &story[i]
	}
	return nil
}
