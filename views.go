package wikiengine

import (
	"context"
	"html"
	"io"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/wikiengine/markup"
	"github.com/eringen/wikiengine/pages"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// layout wraps body in the site's HTML document.
func layout(cfg SiteConfig, title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		head := `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">` +
			`<meta name="viewport" content="width=device-width, initial-scale=1">` +
			`<title>` + html.EscapeString(title) + ` - ` + html.EscapeString(cfg.Name) + `</title>` +
			`<link rel="alternate" type="application/rss+xml" href="/feed.xml">` +
			`</head><body><main class="page">`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

// PageView renders a page's title and story.
func PageView(cfg SiteConfig, slug string, page *pages.Page) templ.Component {
	title := page.Title
	if title == "" {
		title = slug
	}
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		header := `<h1 class="title">` + html.EscapeString(title) + `</h1>`
		if page.Plugin != "" {
			header += `<p class="plugin">from plugin ` + html.EscapeString(page.Plugin) + `</p>`
		}
		if _, err := io.WriteString(w, header); err != nil {
			return err
		}
		if err := markup.Story(page.Story).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<footer><a href="/page/`+html.EscapeString(slug)+`">JSON</a></footer>`)
		return err
	})
	return layout(cfg, title, body)
}

// NotFoundView renders the page shown for a missing or unreadable slug.
func NotFoundView(cfg SiteConfig, slug, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<h1 class="title">`+html.EscapeString(message)+`</h1>`+
			`<p class="missing">`+html.EscapeString(slug)+`</p>`)
		return err
	})
	return layout(cfg, message, body)
}
