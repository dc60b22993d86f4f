package httpapi

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/indexdothtml/yt-backend/internal/common"
	"github.com/indexdothtml/yt-backend/internal/server/auth"
)

// userIDContextKey is the echo context key the auth middleware stores the
// verified user id under. Handlers read it once and pass the id explicitly
// into the service.
const userIDContextKey = "userID"

// requireAuth extracts the access token from the accessToken cookie or an
// Authorization bearer header, verifies it, and exposes the user id to the
// handler. Requests without a valid token get the 401 envelope.
func (a *App) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := ""
		if cookie, err := c.Cookie(common.AccessTokenCookieName); err == nil {
			token = cookie.Value
		}
		if token == "" {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if parts := strings.SplitN(header, " ", 2); len(parts) == 2 &&
				strings.EqualFold(parts[0], "Bearer") {
				token = strings.TrimSpace(parts[1])
			}
		}
		if token == "" {
			return a.fail(c, common.ErrorUnauthorized)
		}

		userID, err := auth.GetUserIDFromToken(token, []byte(a.cfg.AccessTokenSecret))
		if err != nil {
			a.logger.Debug(c.Request().Context(), "rejected access token", "reason", err)
			return a.fail(c, err)
		}

		c.Set(userIDContextKey, userID)
		return next(c)
	}
}

// authenticatedUserID returns the id the auth middleware stored.
func authenticatedUserID(c echo.Context) string {
	id, _ := c.Get(userIDContextKey).(string)
	return id
}

// fail renders err into the error envelope.
func (a *App) fail(c echo.Context, err error) error {
	status, code, msg := errorStatus(err)
	detail := ""
	if !a.cfg.Production {
		detail = err.Error()
	}
	return respondError(c, status, code, msg, detail)
}
