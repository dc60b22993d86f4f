// Package httpapi is the HTTP boundary of the videotube server. It parses
// requests (including multipart image uploads staged into the temp dir),
// calls the session service, and renders results into the response
// envelope. Tokens travel as httpOnly cookies; the auth middleware also
// accepts a bearer header.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/indexdothtml/yt-backend/internal/logging"
	"github.com/indexdothtml/yt-backend/internal/server/config"
	"github.com/indexdothtml/yt-backend/internal/server/models"
	"github.com/indexdothtml/yt-backend/internal/server/services"
)

// SessionManager is the service surface the handlers call. *services.UserService
// implements it; tests substitute a fake.
type SessionManager interface {
	Register(ctx context.Context, in *services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, in *services.LoginInput) (*models.User, *services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	UpdateFullName(ctx context.Context, userID, fullName string) (*models.User, error)
	UpdateAvatarImage(ctx context.Context, userID, avatarLocalPath string) (*models.User, error)
}

// App holds the handler dependencies.
type App struct {
	logger  logging.Logger
	service SessionManager
	cfg     *config.Config
	tempDir string
}

// NewApp constructs the handler app. tempDir is the resolved staging
// directory for multipart uploads.
func NewApp(logger logging.Logger, service SessionManager, cfg *config.Config, tempDir string) *App {
	return &App{
		logger:  logger.With("module", "httpapi"),
		service: service,
		cfg:     cfg,
		tempDir: tempDir,
	}
}

// NewEcho builds the echo instance with middleware, routes, and the
// top-level error handler.
func (a *App) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = a.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(a.cfg.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{a.cfg.CORSOrigin},
		AllowCredentials: true,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			a.logger.Info(c.Request().Context(), "request",
				"method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	e.Static("/public", "public")

	a.RegisterRoutes(e)
	return e
}

// RegisterRoutes binds the user routes under /api/v1/user.
func (a *App) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/user")

	g.POST("/register", a.register)
	g.POST("/login", a.login)
	g.POST("/refreshAccessToken", a.refreshAccessToken)

	g.GET("/logout", a.logout, a.requireAuth)
	g.POST("/updatePassword", a.updatePassword, a.requireAuth)
	g.POST("/updateFullName", a.updateFullName, a.requireAuth)
	g.POST("/updateAvatarImage", a.updateAvatarImage, a.requireAuth)
}

// httpErrorHandler renders anything no handler dealt with (body-limit
// rejections, panics from Recover, bad routes) into the error envelope.
// Diagnostic detail is included only outside production.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	code := "INTERNAL ERROR"
	msg := "Something went wrong."

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		code = http.StatusText(status)
		if m, isStr := he.Message.(string); isStr {
			msg = m
		}
	}

	detail := ""
	if !a.cfg.Production {
		detail = err.Error()
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error(c.Request().Context(), "unhandled error", "error", err)
	}

	if err := respondError(c, status, code, msg, detail); err != nil {
		a.logger.Error(c.Request().Context(), "failed to write error response", "error", err)
	}
}
