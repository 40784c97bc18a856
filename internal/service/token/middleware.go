package token

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fcfmotors/marketplace/internal/roles"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"

	ctxUserID = "auth.userID"
	ctxRoles  = "auth.roles"
)

// SetAuthCookies writes the token pair as http-only cookies.
func SetAuthCookies(c echo.Context, access, refresh string) {
	c.SetCookie(&http.Cookie{
		Name:     AccessCookie,
		Value:    access,
		Path:     "/",
		Expires:  time.Now().Add(AccessTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    refresh,
		Path:     "/",
		Expires:  time.Now().Add(RefreshTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookies expires both cookies.
func ClearAuthCookies(c echo.Context) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Authenticate verifies the access cookie and stores the caller's identity
// on the request context. An expired access token is refreshed transparently
// when a usable refresh cookie rides along.
func (s *Service) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(AccessCookie); err == nil {
				if userID, set, err := s.ParseAccess(cookie.Value); err == nil {
					c.Set(ctxUserID, userID)
					c.Set(ctxRoles, set)
					return next(c)
				}
			}

			cookie, err := c.Cookie(RefreshCookie)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			access, refresh, err := s.Rotate(c.Request().Context(), cookie.Value)
			if err != nil {
				ClearAuthCookies(c)
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			SetAuthCookies(c, access, refresh)

			userID, set, err := s.ParseAccess(access)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			c.Set(ctxUserID, userID)
			c.Set(ctxRoles, set)
			return next(c)
		}
	}
}

// AuthenticateOptional resolves the caller's identity when a valid access
// cookie is present and lets the request through anonymously otherwise.
func (s *Service) AuthenticateOptional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(AccessCookie); err == nil {
				if userID, set, err := s.ParseAccess(cookie.Value); err == nil {
					c.Set(ctxUserID, userID)
					c.Set(ctxRoles, set)
				}
			}
			return next(c)
		}
	}
}

// RequireRoles allows the request through when the caller holds at least one
// of the given roles. Must run after Authenticate.
func RequireRoles(allowed ...roles.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			set := CurrentRoles(c)
			for _, r := range allowed {
				if set.Has(r) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

func CurrentUserID(c echo.Context) uint {
	if id, ok := c.Get(ctxUserID).(uint); ok {
		return id
	}
	return 0
}

func CurrentRoles(c echo.Context) roles.Set {
	if set, ok := c.Get(ctxRoles).(roles.Set); ok {
		return set
	}
	return roles.Set{}
}
