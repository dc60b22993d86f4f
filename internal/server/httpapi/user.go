package httpapi

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/indexdothtml/yt-backend/internal/common"
	"github.com/indexdothtml/yt-backend/internal/filex"
	"github.com/indexdothtml/yt-backend/internal/server/services"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

type updateFullNameRequest struct {
	FullName string `json:"fullname" form:"fullname"`
}

// stageUpload writes a multipart file into the staging directory and
// returns the local path. The caller (ultimately the service) owns the
// staged file from here on.
func (a *App) stageUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%w: opening upload: %v", common.ErrorUpload, err)
	}
	defer src.Close()

	path, err := filex.SaveToDir(src, a.tempDir, fh.Filename)
	if err != nil {
		return "", fmt.Errorf("%w: staging upload: %v", common.ErrorUpload, err)
	}
	return path, nil
}

func (a *App) setTokenCookie(c echo.Context, name, value string, validity time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(validity.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *App) clearTokenCookie(c echo.Context, name string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// register handles POST /api/v1/user/register: multipart form with the
// account fields, a required avatar file, and an optional coverImage file.
func (a *App) register(c echo.Context) error {
	in := &services.RegisterInput{
		Username: c.FormValue("username"),
		Email:    c.FormValue("email"),
		FullName: c.FormValue("fullname"),
		Password: c.FormValue("password"),
	}

	if fh, err := c.FormFile("avatar"); err == nil {
		path, err := a.stageUpload(fh)
		if err != nil {
			return a.fail(c, err)
		}
		in.AvatarLocalPath = path
	}
	if fh, err := c.FormFile("coverImage"); err == nil {
		path, err := a.stageUpload(fh)
		if err != nil {
			// The avatar is already staged; the service never sees this
			// request, so release it here.
			if rmErr := filex.RemoveIfExists(in.AvatarLocalPath); rmErr != nil {
				a.logger.Warn(c.Request().Context(), "failed to remove staged upload", "error", rmErr)
			}
			return a.fail(c, err)
		}
		in.CoverImageLocalPath = path
	}

	user, err := a.service.Register(c.Request().Context(), in)
	if err != nil {
		return a.fail(c, err)
	}

	return respond(c, http.StatusCreated, "NEW USER CREATED", user)
}

// login handles POST /api/v1/user/login and sets the token cookies.
func (a *App) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return a.fail(c, common.ErrRequiredInput)
	}

	user, pair, err := a.service.Login(c.Request().Context(), &services.LoginInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return a.fail(c, err)
	}

	a.setTokenCookie(c, common.AccessTokenCookieName, pair.AccessToken, a.cfg.AccessTokenValidityDuration)
	a.setTokenCookie(c, common.RefreshTokenCookieName, pair.RefreshToken, a.cfg.RefreshTokenValidityDuration)

	return respond(c, http.StatusOK, "OK", echo.Map{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

// logout handles GET /api/v1/user/logout: invalidates the stored refresh
// token and clears both cookies.
func (a *App) logout(c echo.Context) error {
	if err := a.service.Logout(c.Request().Context(), authenticatedUserID(c)); err != nil {
		return a.fail(c, err)
	}

	a.clearTokenCookie(c, common.AccessTokenCookieName)
	a.clearTokenCookie(c, common.RefreshTokenCookieName)

	return respond(c, http.StatusOK, "OK", echo.Map{"message": "User logout success!"})
}

// refreshAccessToken handles POST /api/v1/user/refreshAccessToken. The
// refresh token comes from the cookie or, for non-browser clients, the
// request body.
func (a *App) refreshAccessToken(c echo.Context) error {
	token := ""
	if cookie, err := c.Cookie(common.RefreshTokenCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := c.Bind(&req); err == nil {
			token = req.RefreshToken
		}
	}

	accessToken, err := a.service.RefreshAccessToken(c.Request().Context(), token)
	if err != nil {
		return a.fail(c, err)
	}

	a.setTokenCookie(c, common.AccessTokenCookieName, accessToken, a.cfg.AccessTokenValidityDuration)

	return respond(c, http.StatusCreated, "CREATED", echo.Map{"accessToken": accessToken})
}

// updatePassword handles POST /api/v1/user/updatePassword for the
// authenticated user.
func (a *App) updatePassword(c echo.Context) error {
	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return a.fail(c, common.ErrRequiredInput)
	}

	err := a.service.ChangePassword(c.Request().Context(), authenticatedUserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		return a.fail(c, err)
	}

	return respond(c, http.StatusOK, "OK", echo.Map{"message": "Password is updated."})
}

// updateFullName handles POST /api/v1/user/updateFullName.
func (a *App) updateFullName(c echo.Context) error {
	var req updateFullNameRequest
	if err := c.Bind(&req); err != nil {
		return a.fail(c, common.ErrRequiredInput)
	}

	user, err := a.service.UpdateFullName(c.Request().Context(), authenticatedUserID(c), req.FullName)
	if err != nil {
		return a.fail(c, err)
	}

	return respond(c, http.StatusOK, "OK", user)
}

// updateAvatarImage handles POST /api/v1/user/updateAvatarImage: multipart
// form with a single avatarImage file replacing the current avatar.
func (a *App) updateAvatarImage(c echo.Context) error {
	fh, err := c.FormFile("avatarImage")
	if err != nil {
		return a.fail(c, fmt.Errorf("%w: avatar image is required", common.ErrorValidation))
	}

	path, err := a.stageUpload(fh)
	if err != nil {
		return a.fail(c, err)
	}

	user, err := a.service.UpdateAvatarImage(c.Request().Context(), authenticatedUserID(c), path)
	if err != nil {
		return a.fail(c, err)
	}

	return respond(c, http.StatusOK, "OK", user)
}
