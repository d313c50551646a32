package handler_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/doc-insight/internal/auth"
	"github.com/sakif/doc-insight/internal/handler"
	"github.com/sakif/doc-insight/internal/repository/sqlite"
	"github.com/sakif/doc-insight/internal/service"
)

const templateDir = "../../web/templates"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// testEnv wires the real account service to a temporary SQLite database.
type testEnv struct {
	db       *sqlite.DB
	tokens   *auth.TokenService
	accounts *service.AccountService
	pages    *handler.Pages
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-key", time.Hour)
	require.NoError(t, err)

	pages, err := handler.NewPages(templateDir, quietLogger())
	require.NoError(t, err)

	accounts := service.NewAccountService(db, db, tokens, auth.NewPasswordServiceForTest(4), quietLogger())
	return &testEnv{db: db, tokens: tokens, accounts: accounts, pages: pages}
}

func (e *testEnv) accountHandler() *handler.AccountHandler {
	return handler.NewAccountHandler(e.accounts, e.pages, e.tokens.TTL(), quietLogger())
}

// signup creates an account directly through the service.
func (e *testEnv) signup(t *testing.T, username string) string {
	t.Helper()
	user, err := e.accounts.Signup(context.Background(), service.SignupInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           username + "@example.com",
		Username:        username,
		Password:        "correct horse",
		ConfirmPassword: "correct horse",
	})
	require.NoError(t, err)
	return user.ID
}

func asUser(r *http.Request, userID string) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), userID))
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookieNamed(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func flashText(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	c := cookieNamed(rr, "flash")
	require.NotNil(t, c, "expected a flash cookie")
	text, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	return text
}

// multipartFile builds a multipart body with one "file" part.
func multipartFile(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}
