package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/indexdothtml/yt-backend/internal/common"
)

// APIResponse is the success envelope. Code is a stable string clients can
// branch on; Status repeats the HTTP status inside the body.
type APIResponse struct {
	Code    string `json:"code"`
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Success bool   `json:"success"`
}

// APIError is the error envelope. Msg is human-readable; Err carries
// diagnostic detail and is populated only outside production.
type APIError struct {
	Code    string `json:"code"`
	Msg     string `json:"msg"`
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Err     string `json:"error"`
}

func respond(c echo.Context, status int, code string, data any) error {
	return c.JSON(status, &APIResponse{
		Code:    code,
		Data:    data,
		Status:  status,
		Success: true,
	})
}

func respondError(c echo.Context, status int, code, msg, detail string) error {
	return c.JSON(status, &APIError{
		Code:    code,
		Msg:     msg,
		Status:  status,
		Success: false,
		Err:     detail,
	})
}

// errorStatus translates a service error into the HTTP status, the stable
// code string, and the client-facing message. Specific validation sentinels
// are matched before the generic one so they keep their own codes.
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, common.ErrRequiredInput):
		return http.StatusBadRequest, "REQUIRED INPUT", "All fields are required."
	case errors.Is(err, common.ErrInvalidEmail):
		return http.StatusBadRequest, "INVALID EMAIL", "Please enter valid email address."
	case errors.Is(err, common.ErrInvalidPassword):
		return http.StatusBadRequest, "INVALID PASSWORD", "Please enter a valid password."
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "INVALID INPUT", "Invalid input."
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, "RESOURCE CONFLICT", "User with given username or email already exists."
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "NOT FOUND", "Requested user document not found."
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenMalformed),
		errors.Is(err, common.ErrRefreshMismatch),
		errors.Is(err, common.ErrInvalidCredential):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Authentication failed."
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, "TOO MANY REQUESTS", "Too many attempts, try again later."
	case errors.Is(err, common.ErrorUpload):
		return http.StatusInternalServerError, "ERROR WHILE UPLOADING", "Error while uploading image."
	default:
		return http.StatusInternalServerError, "INTERNAL ERROR", "Something went wrong."
	}
}
