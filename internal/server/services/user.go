// Package services contains server-side business logic. This file implements
// UserService, which handles registration with profile image uploads, login,
// logout, access-token refresh, and credential/profile updates.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/indexdothtml/yt-backend/internal/common"
	"github.com/indexdothtml/yt-backend/internal/filex"
	"github.com/indexdothtml/yt-backend/internal/logging"
	"github.com/indexdothtml/yt-backend/internal/server/auth"
	"github.com/indexdothtml/yt-backend/internal/server/config"
	"github.com/indexdothtml/yt-backend/internal/server/models"
	"github.com/indexdothtml/yt-backend/internal/server/password"
	"github.com/indexdothtml/yt-backend/internal/server/ratelimit"
	"github.com/indexdothtml/yt-backend/internal/server/repositories/repomanager"
	"github.com/indexdothtml/yt-backend/internal/server/storage"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries the registration form fields plus the staged local
// paths of the uploaded images. CoverImageLocalPath may be empty; the cover
// image is optional. UserService owns the staged files from here on and
// removes them on every outcome.
type RegisterInput struct {
	Username            string
	Email               string
	FullName            string
	Password            string
	AvatarLocalPath     string
	CoverImageLocalPath string
}

// LoginInput identifies the account by username or email (at least one must
// be set) together with the password candidate.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// UserService provides the session-related operations:
//   - Register: validate, store profile images, create the account
//   - Login: verify credentials, mint and persist tokens
//   - Logout: invalidate the stored refresh token
//   - RefreshAccessToken: verify a refresh token and mint a new access token
//   - ChangePassword / UpdateFullName / UpdateAvatarImage: account updates
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	store                        storage.Gateway
	limiter                      ratelimit.Limiter
	logger                       logging.Logger
	bucket                       string
	accessTokenSecret            []byte
	refreshTokenSecret           []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories, the asset
// store, the login throttle, and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, store storage.Gateway,
	limiter ratelimit.Limiter, logger logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		store:                        store,
		limiter:                      limiter,
		logger:                       logger.With("module", "services"),
		bucket:                       cfg.S3Bucket,
		accessTokenSecret:            []byte(cfg.AccessTokenSecret),
		refreshTokenSecret:           []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// releaseStaged removes staged upload files that will not reach the asset
// store. Empty paths are skipped; removal failures are logged, not returned.
func (s *UserService) releaseStaged(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := filex.RemoveIfExists(p); err != nil {
			s.logger.Warn(ctx, "failed to remove staged upload", "path", p, "error", err)
		}
	}
}

// removeStored deletes an uploaded object that ended up orphaned. Best
// effort: a failure leaves an unreferenced object behind, which is logged.
func (s *UserService) removeStored(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Remove(ctx, key); err != nil {
		s.logger.Warn(ctx, "failed to remove orphaned object", "key", key, "error", err)
	}
}

// Register validates the submitted fields, uploads the avatar (and cover
// image when present) to the asset store, and creates the account with a
// hashed password. Validation failures, conflicts, and upload errors all
// release the staged files before returning.
func (s *UserService) Register(ctx context.Context, in *RegisterInput) (*models.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)

	if anyBlank(in.Username, in.Email, in.FullName, in.Password) {
		s.releaseStaged(ctx, in.AvatarLocalPath, in.CoverImageLocalPath)
		return nil, common.ErrRequiredInput
	}
	if !ValidEmail(email) {
		s.releaseStaged(ctx, in.AvatarLocalPath, in.CoverImageLocalPath)
		return nil, common.ErrInvalidEmail
	}
	if err := password.ValidatePolicy(in.Password); err != nil {
		s.releaseStaged(ctx, in.AvatarLocalPath, in.CoverImageLocalPath)
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidPassword, err)
	}

	if err := s.limiter.Allow(ctx, "register:"+email); err != nil {
		s.releaseStaged(ctx, in.AvatarLocalPath, in.CoverImageLocalPath)
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if _, err := repo.FindByUsernameOrEmail(ctx, username, email); err == nil {
		s.releaseStaged(ctx, in.AvatarLocalPath, in.CoverImageLocalPath)
		return nil, common.ErrorConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		s.releaseStaged(ctx, in.AvatarLocalPath, in.CoverImageLocalPath)
		return nil, fmt.Errorf("%w: checking existing user: %v", common.ErrorPersistence, err)
	}

	if in.AvatarLocalPath == "" {
		s.releaseStaged(ctx, in.CoverImageLocalPath)
		return nil, fmt.Errorf("%w: avatar image is required", common.ErrorValidation)
	}

	// Upload consumes the staged file whether it succeeds or not.
	avatar, err := s.store.Upload(ctx, in.AvatarLocalPath)
	if err != nil {
		s.releaseStaged(ctx, in.CoverImageLocalPath)
		return nil, err
	}

	var coverURL string
	if in.CoverImageLocalPath != "" {
		cover, err := s.store.Upload(ctx, in.CoverImageLocalPath)
		if err != nil {
			s.removeStored(ctx, avatar.Key)
			return nil, err
		}
		coverURL = cover.URL
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		s.removeStored(ctx, avatar.Key)
		if coverURL != "" {
			s.removeStored(ctx, storage.KeyFromURL(coverURL, s.bucket))
		}
		return nil, fmt.Errorf("%w: hashing password: %v", common.ErrorInternal, err)
	}

	user := &models.User{
		Username:      username,
		Email:         email,
		FullName:      fullName,
		PasswordHash:  hash,
		AvatarURL:     avatar.URL,
		CoverImageURL: coverURL,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		s.removeStored(ctx, avatar.Key)
		if coverURL != "" {
			s.removeStored(ctx, storage.KeyFromURL(coverURL, s.bucket))
		}
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("%w: creating user: %v", common.ErrorPersistence, err)
	}

	return created.Sanitized(), nil
}

// Login verifies the credentials, mints an access/refresh token pair, and
// persists the refresh token on the user record, displacing any previously
// issued one. Attempts are throttled per identifier.
func (s *UserService) Login(ctx context.Context, in *LoginInput) (*models.User, *TokenPair, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	email := strings.TrimSpace(in.Email)

	if (username == "" && email == "") || strings.TrimSpace(in.Password) == "" {
		return nil, nil, common.ErrRequiredInput
	}
	if email != "" && !ValidEmail(email) {
		return nil, nil, common.ErrInvalidEmail
	}

	identifier := username
	if identifier == "" {
		identifier = email
	}
	if err := s.limiter.Allow(ctx, "login:"+identifier); err != nil {
		return nil, nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("%w: finding user: %v", common.ErrorPersistence, err)
	}

	if !password.Check(user.PasswordHash, in.Password) {
		return nil, nil, common.ErrInvalidCredential
	}

	pair, err := s.generateTokenPair(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: generating tokens: %v", common.ErrorInternal, err)
	}

	if err := repo.UpdateRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, nil, fmt.Errorf("%w: storing refresh token: %v", common.ErrorPersistence, err)
	}

	return user.Sanitized(), pair, nil
}

// Logout clears the stored refresh token for the user, invalidating the
// session's refresh capability. The access token stays valid until expiry.
// A blank userID is an invariant violation: the transport authenticates
// before calling, so the id cannot legitimately be missing.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	if userID == "" {
		return common.ErrorInternal
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateRefreshToken(ctx, userID, nil); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: clearing refresh token: %v", common.ErrorPersistence, err)
	}
	return nil
}

// RefreshAccessToken verifies the presented refresh token against both its
// signature/expiry and the copy stored for the user, then mints a new access
// token. The refresh token itself is not rotated; it stays valid until its
// own expiry, a newer login, or logout.
func (s *UserService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return "", common.ErrorUnauthorized
	}

	userID, err := auth.GetUserIDFromToken(refreshToken, s.refreshTokenSecret)
	if err != nil {
		return "", err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("%w: finding user: %v", common.ErrorPersistence, err)
	}

	if user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		return "", common.ErrRefreshMismatch
	}

	accessToken, err := auth.GenerateToken(userID, s.accessTokenSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", fmt.Errorf("%w: generating access token: %v", common.ErrorInternal, err)
	}
	return accessToken, nil
}

// ChangePassword verifies the old password and replaces the stored hash with
// one derived from the new password, which must satisfy the complexity
// policy and differ from the old one.
func (s *UserService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if userID == "" {
		return common.ErrorInternal
	}
	if anyBlank(oldPassword, newPassword) {
		return common.ErrRequiredInput
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("%w: finding user: %v", common.ErrorPersistence, err)
	}

	if !password.Check(user.PasswordHash, oldPassword) {
		return common.ErrInvalidCredential
	}
	if err := password.ValidatePolicy(newPassword); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidPassword, err)
	}
	if oldPassword == newPassword {
		return fmt.Errorf("%w: new password must differ from the old one", common.ErrInvalidPassword)
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("%w: hashing password: %v", common.ErrorInternal, err)
	}

	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("%w: updating password: %v", common.ErrorPersistence, err)
	}
	return nil
}

// UpdateFullName changes the user's display name and returns the updated
// record.
func (s *UserService) UpdateFullName(ctx context.Context, userID, fullName string) (*models.User, error) {
	if userID == "" {
		return nil, common.ErrorInternal
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateFullName(ctx, userID, fullName); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: updating full name: %v", common.ErrorPersistence, err)
	}

	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: reloading user: %v", common.ErrorPersistence, err)
	}
	return user.Sanitized(), nil
}

// UpdateAvatarImage uploads the staged replacement avatar, points the user
// record at it, and removes the previous avatar object from the asset store.
// The old object removal is best effort; the record update is what counts.
func (s *UserService) UpdateAvatarImage(ctx context.Context, userID, avatarLocalPath string) (*models.User, error) {
	if userID == "" {
		s.releaseStaged(ctx, avatarLocalPath)
		return nil, common.ErrorInternal
	}
	if avatarLocalPath == "" {
		return nil, fmt.Errorf("%w: avatar image is required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByID(ctx, userID)
	if err != nil {
		s.releaseStaged(ctx, avatarLocalPath)
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: finding user: %v", common.ErrorPersistence, err)
	}
	oldURL := user.AvatarURL

	avatar, err := s.store.Upload(ctx, avatarLocalPath)
	if err != nil {
		return nil, err
	}

	if err := repo.UpdateAvatarURL(ctx, userID, avatar.URL); err != nil {
		s.removeStored(ctx, avatar.Key)
		return nil, fmt.Errorf("%w: updating avatar: %v", common.ErrorPersistence, err)
	}

	s.removeStored(ctx, storage.KeyFromURL(oldURL, s.bucket))

	updated, err := repo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: reloading user: %v", common.ErrorPersistence, err)
	}
	return updated.Sanitized(), nil
}

// generateTokenPair mints the access and refresh JWTs for userID.
func (s *UserService) generateTokenPair(userID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(userID, s.accessTokenSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refreshToken, err := auth.GenerateToken(userID, s.refreshTokenSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
