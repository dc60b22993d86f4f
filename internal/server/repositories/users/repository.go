// Package users provides persistence for user identity records, including
// the single stored refresh token and credential hash updates.
package users

import (
	"context"

	"github.com/indexdothtml/yt-backend/internal/server/models"
)

// Repository is the credential-store contract used by the session flows.
//
// Implementations return common.ErrorNotFound when no record matches,
// common.ErrorConflict when a unique constraint on username or email is
// violated, and wrap any other storage failure.
type Repository interface {
	// Create inserts a new user. The caller supplies an already-hashed
	// password; plaintext never reaches this layer.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByUsernameOrEmail matches on whichever identifiers are non-empty.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)

	// FindByID resolves a user by its id.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// UpdateRefreshToken atomically overwrites the stored refresh token.
	// A nil token clears it (logout).
	UpdateRefreshToken(ctx context.Context, id string, token *string) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// UpdateFullName changes the display name.
	UpdateFullName(ctx context.Context, id, fullName string) error

	// UpdateAvatarURL points the avatar at a new stored object.
	UpdateAvatarURL(ctx context.Context, id, avatarURL string) error
}
