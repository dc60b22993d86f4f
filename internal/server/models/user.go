package models

import "time"

// User is the identity record persisted in the users table.
//
// Username is stored lowercase and is unique together with Email.
// RefreshToken holds the single currently-valid refresh token for the user;
// nil means no active session (last-issued-wins, no multi-device list).
type User struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullname"`
	PasswordHash  string    `json:"-"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage"`
	RefreshToken  *string   `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitized returns a copy with credential material stripped, safe for
// inclusion in API responses.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	c.RefreshToken = nil
	return &c
}
