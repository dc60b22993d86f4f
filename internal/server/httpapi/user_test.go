package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indexdothtml/yt-backend/internal/common"
	"github.com/indexdothtml/yt-backend/internal/logging"
	"github.com/indexdothtml/yt-backend/internal/server/auth"
	"github.com/indexdothtml/yt-backend/internal/server/config"
	"github.com/indexdothtml/yt-backend/internal/server/models"
	"github.com/indexdothtml/yt-backend/internal/server/services"
)

// fakeSession records calls and returns configured results.
type fakeSession struct {
	registerOut *models.User
	registerErr error

	loginOut  *models.User
	loginPair *services.TokenPair
	loginErr  error

	logoutErr error

	refreshOut string
	refreshErr error

	changePasswordErr error

	fullNameOut *models.User
	fullNameErr error

	avatarOut *models.User
	avatarErr error

	gotRegister   *services.RegisterInput
	gotLogin      *services.LoginInput
	gotUserID     string
	gotRefresh    string
	gotOldPass    string
	gotNewPass    string
	gotFullName   string
	gotAvatarPath string
}

func (f *fakeSession) Register(ctx context.Context, in *services.RegisterInput) (*models.User, error) {
	f.gotRegister = in
	return f.registerOut, f.registerErr
}

func (f *fakeSession) Login(ctx context.Context, in *services.LoginInput) (*models.User, *services.TokenPair, error) {
	f.gotLogin = in
	return f.loginOut, f.loginPair, f.loginErr
}

func (f *fakeSession) Logout(ctx context.Context, userID string) error {
	f.gotUserID = userID
	return f.logoutErr
}

func (f *fakeSession) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	f.gotRefresh = refreshToken
	return f.refreshOut, f.refreshErr
}

func (f *fakeSession) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	f.gotUserID = userID
	f.gotOldPass = oldPassword
	f.gotNewPass = newPassword
	return f.changePasswordErr
}

func (f *fakeSession) UpdateFullName(ctx context.Context, userID, fullName string) (*models.User, error) {
	f.gotUserID = userID
	f.gotFullName = fullName
	return f.fullNameOut, f.fullNameErr
}

func (f *fakeSession) UpdateAvatarImage(ctx context.Context, userID, avatarLocalPath string) (*models.User, error) {
	f.gotUserID = userID
	f.gotAvatarPath = avatarLocalPath
	return f.avatarOut, f.avatarErr
}

func newTestApp(t *testing.T, svc SessionManager) (*App, *echo.Echo) {
	t.Helper()
	cfg := &config.Config{
		AccessTokenSecret:            "access-secret",
		RefreshTokenSecret:           "refresh-secret",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 240 * time.Hour,
		CORSOrigin:                   "http://localhost:3000",
		BodyLimit:                    "16K",
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	app := NewApp(logger, svc, cfg, t.TempDir())
	return app, app.NewEcho()
}

func testUser() *models.User {
	return &models.User{
		ID:        "u-1",
		Username:  "alice",
		Email:     "alice@example.com",
		FullName:  "Alice Example",
		AvatarURL: "http://assets.local/videotube/users/images/a.png",
	}
}

func accessCookie(t *testing.T) *http.Cookie {
	t.Helper()
	token, err := auth.GenerateToken("u-1", []byte("access-secret"), time.Hour)
	require.NoError(t, err)
	return &http.Cookie{Name: common.AccessTokenCookieName, Value: token}
}

// decodeEnvelope unpacks the common envelope fields from a recorded body.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "decoding response %q", rec.Body.String())
	return body
}

func requireEnvelope(t *testing.T, rec *httptest.ResponseRecorder, status int, code string, success bool) map[string]any {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	body := decodeEnvelope(t, rec)
	assert.Equal(t, code, body["code"])
	assert.Equal(t, success, body["success"])
	assert.Equal(t, float64(status), body["status"], "body status must repeat the HTTP status")
	return body
}

// multipartBody builds a multipart form with the given fields and files
// (name -> filename).
func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, filename := range files {
		fw, err := w.CreateFormFile(name, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("img-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- register ---

func TestRegisterEndpoint(t *testing.T) {
	svc := &fakeSession{registerOut: testUser()}
	_, e := newTestApp(t, svc)

	body, contentType := multipartBody(t,
		map[string]string{
			"username": "alice",
			"email":    "alice@example.com",
			"fullname": "Alice Example",
			"password": "Str0ng!pass",
		},
		map[string]string{"avatar": "a.png", "coverImage": "c.jpg"},
	)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/register", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	resp := requireEnvelope(t, rec, http.StatusCreated, "NEW USER CREATED", true)

	require.NotNil(t, svc.gotRegister, "service must be called")
	assert.Equal(t, "alice", svc.gotRegister.Username)
	assert.Equal(t, "Str0ng!pass", svc.gotRegister.Password)
	require.NotEmpty(t, svc.gotRegister.AvatarLocalPath, "avatar must be staged")
	require.NotEmpty(t, svc.gotRegister.CoverImageLocalPath, "cover must be staged")

	_, err := os.Stat(svc.gotRegister.AvatarLocalPath)
	require.NoError(t, err, "staged avatar must be readable")

	assert.NotContains(t, rec.Body.String(), "passwordHash")
	assert.NotContains(t, rec.Body.String(), "refreshToken")

	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "data payload: %v", resp["data"])
	assert.Equal(t, "alice", data["username"])
}

func TestRegisterEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"required", common.ErrRequiredInput, http.StatusBadRequest, "REQUIRED INPUT"},
		{"email", common.ErrInvalidEmail, http.StatusBadRequest, "INVALID EMAIL"},
		{"password", common.ErrInvalidPassword, http.StatusBadRequest, "INVALID PASSWORD"},
		{"conflict", common.ErrorConflict, http.StatusConflict, "RESOURCE CONFLICT"},
		{"upload", common.ErrorUpload, http.StatusInternalServerError, "ERROR WHILE UPLOADING"},
		{"throttled", common.ErrRateLimited, http.StatusTooManyRequests, "TOO MANY REQUESTS"},
		{"persistence", common.ErrorPersistence, http.StatusInternalServerError, "INTERNAL ERROR"},
		{"internal", common.ErrorInternal, http.StatusInternalServerError, "INTERNAL ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSession{registerErr: tt.err}
			_, e := newTestApp(t, svc)

			body, contentType := multipartBody(t, map[string]string{"username": "alice"}, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/user/register", body)
			req.Header.Set(echo.HeaderContentType, contentType)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			requireEnvelope(t, rec, tt.wantStatus, tt.wantCode, false)
		})
	}
}

// --- login ---

func TestLoginEndpoint(t *testing.T) {
	svc := &fakeSession{
		loginOut:  testUser(),
		loginPair: &services.TokenPair{AccessToken: "acc-token", RefreshToken: "ref-token"},
	}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/login",
		strings.NewReader(`{"email":"alice@example.com","password":"Str0ng!pass"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	resp := requireEnvelope(t, rec, http.StatusOK, "OK", true)

	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "acc-token", data["accessToken"])
	assert.Equal(t, "ref-token", data["refreshToken"])

	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		cookie := findCookie(rec, name)
		require.NotNil(t, cookie, "cookie %s must be set", name)
		assert.True(t, cookie.HttpOnly, "cookie %s must be httpOnly", name)
		assert.True(t, cookie.Secure, "cookie %s must be secure", name)
		assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite, "cookie %s", name)
	}
}

func TestLoginEndpointBadCredentials(t *testing.T) {
	svc := &fakeSession{loginErr: common.ErrInvalidCredential}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/login",
		strings.NewReader(`{"username":"alice","password":"nope"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED", false)
	assert.Nil(t, findCookie(rec, common.AccessTokenCookieName), "no cookie on failed login")
}

// --- auth middleware / logout ---

func TestLogoutEndpoint(t *testing.T) {
	svc := &fakeSession{}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/logout", nil)
	req.AddCookie(accessCookie(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusOK, "OK", true)
	assert.Equal(t, "u-1", svc.gotUserID, "authenticated user id must be forwarded")

	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		cookie := findCookie(rec, name)
		require.NotNil(t, cookie, "cookie %s must be cleared", name)
		assert.Negative(t, cookie.MaxAge)
		assert.Empty(t, cookie.Value)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	expired, err := auth.GenerateToken("u-1", []byte("access-secret"), -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
		header string
	}{
		{"no token", nil, ""},
		{"garbage cookie", &http.Cookie{Name: common.AccessTokenCookieName, Value: "junk"}, ""},
		{"expired cookie", &http.Cookie{Name: common.AccessTokenCookieName, Value: expired}, ""},
		{"malformed header", nil, "Bearer junk"},
		{"wrong scheme", nil, "Basic abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSession{}
			_, e := newTestApp(t, svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/user/logout", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED", false)
			assert.Empty(t, svc.gotUserID, "service must not be called on rejected auth")
		})
	}
}

func TestAuthMiddlewareBearerHeader(t *testing.T) {
	svc := &fakeSession{}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/logout", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+accessCookie(t).Value)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusOK, "OK", true)
	assert.Equal(t, "u-1", svc.gotUserID)
}

// --- refreshAccessToken ---

func TestRefreshAccessTokenEndpoint(t *testing.T) {
	svc := &fakeSession{refreshOut: "new-access"}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/refreshAccessToken", nil)
	req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: "stored-refresh"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	resp := requireEnvelope(t, rec, http.StatusCreated, "CREATED", true)
	assert.Equal(t, "stored-refresh", svc.gotRefresh, "cookie token must be forwarded")

	data, ok := resp["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "new-access", data["accessToken"])

	cookie := findCookie(rec, common.AccessTokenCookieName)
	require.NotNil(t, cookie, "access cookie must be refreshed")
	assert.Equal(t, "new-access", cookie.Value)
}

func TestRefreshAccessTokenFromBody(t *testing.T) {
	svc := &fakeSession{refreshOut: "new-access"}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/refreshAccessToken",
		strings.NewReader(`{"refreshToken":"body-refresh"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusCreated, "CREATED", true)
	assert.Equal(t, "body-refresh", svc.gotRefresh, "body token must be forwarded")
}

func TestRefreshAccessTokenRejected(t *testing.T) {
	for _, refreshErr := range []error{
		common.ErrorUnauthorized,
		common.ErrTokenExpired,
		common.ErrTokenMalformed,
		common.ErrRefreshMismatch,
	} {
		svc := &fakeSession{refreshErr: refreshErr}
		_, e := newTestApp(t, svc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/user/refreshAccessToken", nil)
		req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: "whatever"})
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED", false)
	}
}

// --- updatePassword ---

func TestUpdatePasswordEndpoint(t *testing.T) {
	svc := &fakeSession{}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/updatePassword",
		strings.NewReader(`{"oldPassword":"Old1!pass","newPassword":"N3w!passwd"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(accessCookie(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusOK, "OK", true)
	assert.Equal(t, "u-1", svc.gotUserID)
	assert.Equal(t, "Old1!pass", svc.gotOldPass)
	assert.Equal(t, "N3w!passwd", svc.gotNewPass)
}

func TestUpdatePasswordWrongOld(t *testing.T) {
	svc := &fakeSession{changePasswordErr: common.ErrInvalidCredential}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/updatePassword",
		strings.NewReader(`{"oldPassword":"wrong","newPassword":"N3w!passwd"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(accessCookie(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusUnauthorized, "UNAUTHORIZED", false)
}

// --- updateFullName / updateAvatarImage ---

func TestUpdateFullNameEndpoint(t *testing.T) {
	svc := &fakeSession{fullNameOut: testUser()}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/updateFullName",
		strings.NewReader(`{"fullname":"Alice Cooper"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(accessCookie(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusOK, "OK", true)
	assert.Equal(t, "Alice Cooper", svc.gotFullName)
}

func TestUpdateAvatarImageEndpoint(t *testing.T) {
	svc := &fakeSession{avatarOut: testUser()}
	_, e := newTestApp(t, svc)

	// The replacement image arrives in the avatarImage multipart field.
	body, contentType := multipartBody(t, nil, map[string]string{"avatarImage": "new.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/updateAvatarImage", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.AddCookie(accessCookie(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusOK, "OK", true)
	assert.Equal(t, "u-1", svc.gotUserID)
	require.NotEmpty(t, svc.gotAvatarPath, "avatar must be staged before the service call")
}

func TestUpdateAvatarImageMissingFile(t *testing.T) {
	svc := &fakeSession{}
	_, e := newTestApp(t, svc)

	// A file part under any other name does not count.
	body, contentType := multipartBody(t, map[string]string{"unrelated": "x"}, map[string]string{"avatar": "new.png"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/updateAvatarImage", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.AddCookie(accessCookie(t))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	requireEnvelope(t, rec, http.StatusBadRequest, "INVALID INPUT", false)
	assert.Empty(t, svc.gotAvatarPath, "service must not be called without the avatarImage field")
}

// --- top-level error handler ---

func TestBodyLimitRendersEnvelope(t *testing.T) {
	svc := &fakeSession{}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/user/login",
		strings.NewReader(`{"password":"`+strings.Repeat("x", 32*1024)+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"], "oversized body must get the error envelope")
}

func TestUnknownRouteRendersEnvelope(t *testing.T) {
	svc := &fakeSession{}
	_, e := newTestApp(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user/nope", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
}
