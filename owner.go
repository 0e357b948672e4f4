package wikiengine

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

const (
	sessionName = "wiki_session"
	ownerKey    = "owner"
)

type ownerResponse struct {
	Owner bool `json:"owner"`
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Try again later.")
	}
	pass := c.FormValue("password")
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.Config.OwnerPassword)) != 1 {
		a.loginLimiter.Record(ip)
		a.Log.WithField("ip", ip).Warn("failed owner login")
		return echo.NewHTTPError(http.StatusUnauthorized, "wrong password")
	}
	if err := setOwnerSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ownerResponse{Owner: true})
}

func handleLogout(c echo.Context) error {
	if err := clearOwnerSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ownerResponse{Owner: false})
}

// requireOwner rejects requests that do not carry an owner session.
func requireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !IsOwner(c) {
			return echo.NewHTTPError(http.StatusForbidden, "must be owner")
		}
		return next(c)
	}
}

// IsOwner checks if the current session belongs to the site owner.
func IsOwner(c echo.Context) bool {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return false
	}
	owner, ok := sess.Values[ownerKey].(bool)
	return ok && owner
}

func setOwnerSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values[ownerKey] = true
	return sess.Save(c.Request(), c.Response())
}

func clearOwnerSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}
