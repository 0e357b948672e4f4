package wikiengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/wikiengine/pages"
	"github.com/eringen/wikiengine/storage"
)

// maxPageBytes bounds the body of a page PUT.
const maxPageBytes = 4 << 20

func (a *App) handleGetPage(c echo.Context) error {
	return a.servePage(c, c.Param("slug"))
}

func (a *App) handleGetRecycled(c echo.Context) error {
	return a.servePage(c, storage.RecycleKey(c.Param("slug")))
}

func (a *App) servePage(c echo.Context, key string) error {
	page, err := a.Pages.Get(c.Request().Context(), key)
	if err != nil {
		return pageError(err)
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handlePutPage(c echo.Context) error {
	slug := pages.AsSlug(c.Param("slug"))
	if slug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "slug is required")
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPageBytes+1))
	if err != nil {
		return err
	}
	if len(body) > maxPageBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "page too large")
	}
	page, err := pages.ParsePage(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid page: %v", err))
	}
	if err := a.Pages.Put(c.Request().Context(), slug, page); err != nil {
		return pageError(err)
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "slug": slug})
}

func (a *App) handleDeletePage(c echo.Context) error {
	return a.mutate(c, a.Pages.Delete, c.Param("slug"))
}

func (a *App) handleDeleteRecycled(c echo.Context) error {
	return a.mutate(c, a.Pages.Delete, storage.RecycleKey(c.Param("slug")))
}

func (a *App) handleRecyclePage(c echo.Context) error {
	return a.mutate(c, a.Pages.Recycle, c.Param("slug"))
}

func (a *App) mutate(c echo.Context, fn func(ctx context.Context, key string) error, key string) error {
	if err := fn(c.Request().Context(), key); err != nil {
		return pageError(err)
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleView(c echo.Context) error {
	slug := c.Param("slug")
	page, err := a.Pages.Get(c.Request().Context(), slug)
	if err != nil {
		code := pages.StatusCode(err)
		if code >= http.StatusInternalServerError {
			return err
		}
		return RenderStatus(c, code, NotFoundView(a.Config, slug, err.Error()))
	}
	return Render(c, PageView(a.Config, slug, page))
}

func (a *App) handleSlugs(c echo.Context) error {
	slugs, err := a.Pages.Slugs(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slugs)
}

func (a *App) handleSitemapJSON(c echo.Context) error {
	entries, err := a.Cache.Entries(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

type statusResponse struct {
	Busy  bool `json:"busy"`
	Depth int  `json:"depth"`
}

func (a *App) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{Busy: a.Pages.Busy(), Depth: a.Pages.Depth()})
}

func (a *App) handleSitemap(c echo.Context) error {
	entries, err := a.Cache.Entries(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, entries)
}

func (a *App) handleFeed(c echo.Context) error {
	entries, err := a.Cache.Recent(c.Request().Context(), feedSize)
	if err != nil {
		return err
	}
	return a.renderRSS(c, entries)
}

// pageError turns a pages error into an HTTP error carrying the lookup
// message. Storage faults pass through to the error handler untouched.
func pageError(err error) error {
	code := pages.StatusCode(err)
	if code >= http.StatusInternalServerError {
		return err
	}
	return echo.NewHTTPError(code, err.Error())
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	code := http.StatusInternalServerError
	if errors.As(err, &he) {
		code = he.Code
	}
	if code == http.StatusNotFound && strings.HasPrefix(c.Request().URL.Path, "/view/") {
		_ = RenderStatus(c, http.StatusNotFound, NotFoundView(a.Config, c.Param("slug"), "Page not found"))
		return
	}
	if code >= http.StatusInternalServerError {
		a.Log.WithField("path", c.Request().URL.Path).WithError(err).Error("server error")
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
