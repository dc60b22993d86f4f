// Package common contains shared constants and sentinel errors used across
// videotube components.
package common

// Cookie names used to transport tokens between the API and clients.
const (
	AccessTokenCookieName  = "accessToken"
	RefreshTokenCookieName = "refreshToken"
)
