package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tisu1989/auth-project/internal/app"
	"github.com/tisu1989/auth-project/internal/config"
)

type captureMailer struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (m *captureMailer) Send(_ context.Context, to, _, body string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodies[to] = body
	return []string{to}, nil
}

var codePattern = regexp.MustCompile(`code is: ([0-9]{6})`)

func (m *captureMailer) code(t *testing.T, to string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	match := codePattern.FindStringSubmatch(m.bodies[to])
	require.Len(t, match, 2)
	return match[1]
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
}

type testServer struct {
	handler http.Handler
	mailer  *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		AppName:        "Acme",
		AppEnv:         "test",
		DBDriver:       "sqlite",
		DBConnection:   filepath.Join(t.TempDir(), "test.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		JWTSecret:      "test-signing-key",
		HMACCodeSecret: "test-digest-key",
		BcryptCost:     4,
		CodeValidity:   5 * time.Minute,
		SessionExpiry:  8 * time.Hour,
		AuthRateLimit:  1000,
		AuthRateWindow: time.Minute,
	}

	mailer := &captureMailer{bodies: map[string]string{}}
	a, err := app.New(cfg, app.WithMailer(mailer))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return &testServer{handler: SetupRoutes(a), mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

func (s *testServer) signin(t *testing.T, email, password string) string {
	t.Helper()
	rec, resp := s.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHome(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello from the Server!", resp.Message)

	rec, resp = s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
}

func TestSignupAndSignin(t *testing.T) {
	s := newTestServer(t)
	creds := map[string]string{"email": "a@example.com", "password": "Abc12345!"}

	rec, resp := s.do(t, http.MethodPost, "/api/auth/signup", "", creds)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "User created successfully", resp.Message)
	assert.Contains(t, string(resp.Data), `"email":"a@example.com"`)
	assert.NotContains(t, string(resp.Data), "password")

	rec, resp = s.do(t, http.MethodPost, "/api/auth/signup", "", creds)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User already exists", resp.Message)

	rec, resp = s.do(t, http.MethodPost, "/api/auth/signin", "", creds)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Login successful", resp.Message)
	assert.NotEmpty(t, resp.Token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "Authorization", cookies[0].Name)
	assert.Contains(t, cookies[0].Value, resp.Token)
	assert.True(t, cookies[0].HttpOnly)

	rec, resp = s.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "a@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", resp.Message)

	rec, resp = s.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "b@example.com", "password": "Abc12345!"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", resp.Message)
}

func TestSignup_BadInput(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "bad", "password": "Abc12345!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request body")
}

func TestVerificationAndChangePassword(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "a@example.com", "password": "Abc12345!"})
	token := s.signin(t, "a@example.com", "Abc12345!")

	change := map[string]string{"oldPassword": "Abc12345!", "newPassword": "NewPass1!"}

	rec, _ := s.do(t, http.MethodPatch, "/api/auth/change-password", "", change)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := s.do(t, http.MethodPatch, "/api/auth/change-password", token, change)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "User not verified", resp.Message)

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/send-verification-code", "", map[string]string{"email": "a@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	verify := map[string]string{"email": "a@example.com", "verificationCode": s.mailer.code(t, "a@example.com")}
	// Codes are strings so leading zeros survive; a JSON number is rejected
	rec, resp = s.do(t, http.MethodPatch, "/api/auth/verify-verification-code", "", map[string]any{
		"email": "a@example.com", "verificationCode": 123456,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", resp.Message)

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/verify-verification-code", "", verify)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/verify-verification-code", "", verify)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Verification code not found", resp.Message)

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/send-verification-code", "", map[string]string{"email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "User already verified", resp.Message)

	// The earlier token still says unverified until the user signs in again
	token = s.signin(t, "a@example.com", "Abc12345!")

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/change-password", token, map[string]string{"oldPassword": "wrong", "newPassword": "NewPass1!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", resp.Message)

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/change-password", token, change)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	s.signin(t, "a@example.com", "NewPass1!")
}

func TestForgotPassword(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "a@example.com", "password": "Abc12345!"})

	rec, resp := s.do(t, http.MethodPatch, "/api/auth/send-forgot-password-code", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", resp.Message)

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/send-forgot-password-code", "", map[string]string{"email": "a@example.com"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	code := s.mailer.code(t, "a@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/verify-forgot-password-code", "", map[string]string{
		"email": "a@example.com", "verificationCode": wrong, "newPassword": "Reset123!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid verification code", resp.Message)

	rec, resp = s.do(t, http.MethodPatch, "/api/auth/verify-forgot-password-code", "", map[string]string{
		"email": "a@example.com", "verificationCode": code, "newPassword": "Reset123!",
	})
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	s.signin(t, "a@example.com", "Reset123!")
}

func TestPosts(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "a@example.com", "password": "Abc12345!"})
	token := s.signin(t, "a@example.com", "Abc12345!")

	post := map[string]string{"title": "Hello", "description": "First post"}

	rec, _ := s.do(t, http.MethodPost, "/api/posts/create-post", "", post)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp := s.do(t, http.MethodPost, "/api/posts/create-post", token, post)
	require.Equal(t, http.StatusCreated, rec.Code, resp.Message)

	rec, resp = s.do(t, http.MethodPost, "/api/posts/create-post", token, map[string]string{"title": "", "description": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, resp = s.do(t, http.MethodGet, "/api/posts/all-posts?page=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var posts []struct {
		Title       string `json:"title"`
		AuthorEmail string `json:"authorEmail"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, "Hello", posts[0].Title)
	assert.Equal(t, "a@example.com", posts[0].AuthorEmail)

	for _, page := range []string{"zero", "0", "-1", "922337203685477582", "99999999999999999999"} {
		rec, _ = s.do(t, http.MethodGet, "/api/posts/all-posts?page="+page, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "page=%s", page)
	}

	rec, resp = s.do(t, http.MethodGet, "/api/posts/all-posts?page=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(resp.Data))
}

func TestSignout(t *testing.T) {
	s := newTestServer(t)

	rec, resp := s.do(t, http.MethodPost, "/api/auth/signout", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful", resp.Message)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "Authorization", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
}
