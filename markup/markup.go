// Package markup renders wiki text to HTML: [[Internal Links]], bracketed
// external links, a small subset of Markdown, and whole page stories as templ
// components.
package markup

import (
	"bytes"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/eringen/wikiengine/pages"
)

var (
	reWikiLink         = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	reExternalLink     = regexp.MustCompile(`\[((?:https?|mailto):[^\s\]]+)\s+([^\]]+)\]`)
	reMarkdownLink     = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`_([^_]+)_`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reOrderedList      = regexp.MustCompile(`^(\d+)\.\s`)
)

// ViewPath is the URL prefix internal links point at.
const ViewPath = "/view/"

type block int

const (
	blockNone block = iota
	blockPara
	blockList
	blockOrdered
	blockQuote
	blockCode
)

var closeTags = map[block]string{
	blockPara:    "</p>",
	blockList:    "</ul>",
	blockOrdered: "</ol>",
	blockQuote:   "</blockquote>",
	blockCode:    "</code></pre>",
}

type renderer struct {
	buf      *bytes.Buffer
	open     block
	codeLang bool
}

func (r *renderer) closeBlock() {
	r.buf.WriteString(closeTags[r.open])
	if r.codeLang {
		r.buf.WriteString("</div>")
		r.codeLang = false
	}
	r.open = blockNone
}

// enter opens b with tag unless b is already open. It reports whether a new
// block was started.
func (r *renderer) enter(b block, tag string) bool {
	if r.open == b {
		return false
	}
	r.closeBlock()
	r.buf.WriteString(tag)
	r.open = b
	return true
}

func (r *renderer) startCode(lang string) {
	r.closeBlock()
	if lang != "" {
		lang = html.EscapeString(lang)
		r.codeLang = true
		r.buf.WriteString(`<div class="code-block-wrapper"><span class="code-lang code-lang-` + lang + `">` + lang + `</span>`)
		r.buf.WriteString(`<pre class="code-block"><code class="language-` + lang + `">`)
	} else {
		r.buf.WriteString(`<pre class="code-block"><code>`)
	}
	r.open = blockCode
}

// RenderMarkdown writes the HTML form of md to buf. Inline text goes
// through Inline, so wiki links work inside Markdown too.
func RenderMarkdown(buf *bytes.Buffer, md string) {
	r := &renderer{buf: buf}
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, "\r")
		if strings.HasPrefix(line, "```") {
			if r.open == blockCode {
				r.closeBlock()
			} else {
				r.startCode(strings.TrimSpace(line[3:]))
			}
			continue
		}
		if r.open == blockCode {
			buf.WriteString(html.EscapeString(line))
			buf.WriteString("\n")
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			r.closeBlock()
		case strings.HasPrefix(line, "---"):
			r.closeBlock()
			buf.WriteString("<hr/>")
		case headingLevel(line) > 0:
			r.closeBlock()
			n := headingLevel(line)
			tag := "h" + strconv.Itoa(n)
			buf.WriteString("<" + tag + ">")
			buf.WriteString(Inline(strings.TrimSpace(line[n+1:])))
			buf.WriteString("</" + tag + ">")
		case strings.HasPrefix(line, "- "):
			r.enter(blockList, "<ul>")
			buf.WriteString("<li>" + Inline(strings.TrimSpace(line[2:])) + "</li>")
		case reOrderedList.MatchString(line):
			r.enter(blockOrdered, "<ol>")
			buf.WriteString("<li>" + Inline(strings.TrimSpace(reOrderedList.ReplaceAllString(line, ""))) + "</li>")
		case strings.HasPrefix(line, "> "):
			r.enter(blockQuote, "<blockquote>")
			buf.WriteString(Inline(strings.TrimSpace(line[2:])))
		default:
			if !r.enter(blockPara, "<p>") {
				buf.WriteString(" ")
			}
			buf.WriteString(Inline(trimmed) + "\n")
		}
	}
	r.closeBlock()
}

// headingLevel returns 1 to 3 for "# ", "## " and "### " lines, else 0.
func headingLevel(line string) int {
	for n := 3; n >= 1; n-- {
		if strings.HasPrefix(line, strings.Repeat("#", n)+" ") {
			return n
		}
	}
	return 0
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags, so
// that formatting never reaches into attributes such as href.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

// Inline escapes s and applies inline markup: [[Page Name]] internal links,
// [https://host label] external links, [label](url) links, `code`, bold and
// italics.
func Inline(s string) string {
	escaped := html.EscapeString(s)
	escaped = reWikiLink.ReplaceAllStringFunc(escaped, func(m string) string {
		name := reWikiLink.FindStringSubmatch(m)[1]
		slug := pages.AsSlug(html.UnescapeString(name))
		if slug == "" {
			return name
		}
		return `<a class="internal" href="` + ViewPath + slug + `" data-page-name="` + slug + `">` + name + `</a>`
	})
	escaped = reExternalLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reExternalLink.FindStringSubmatch(m)
		href := SafeURL(match[1])
		if href == "" {
			return match[2]
		}
		return `<a class="external" href="` + href + `" target="_blank" rel="nofollow noopener noreferrer">` + match[2] + `</a>`
	})
	escaped = reMarkdownLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reMarkdownLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		return `<a href="` + href + `">` + match[1] + `</a>`
	})

	// Code spans are swapped for placeholders so emphasis does not reach them.
	var spans []string
	escaped = reInlineCode.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reInlineCode.FindStringSubmatch(m)
		spans = append(spans, "<code>"+match[1]+"</code>")
		return "\x00IC" + strconv.Itoa(len(spans)-1) + "\x00"
	})
	escaped = ApplyOutsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnderscore.ReplaceAllString(seg, "<em>$1</em>")
		return seg
	})
	for i, code := range spans {
		escaped = strings.Replace(escaped, "\x00IC"+strconv.Itoa(i)+"\x00", code, 1)
	}
	return escaped
}

// SafeURL returns raw escaped for use in an attribute, or "" when it is not a
// relative path, fragment or http(s), mailto or tel URL.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
