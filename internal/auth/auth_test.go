package auth

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"o2d-backend/internal/models"
	"o2d-backend/internal/testutil"
)

const secret = "0123456789abcdef0123456789abcdef"

func loginSheet(t *testing.T) *testutil.FakeSheets {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	fake := testutil.NewFakeSheets()
	fake.Set("Login", [][]any{
		{"Username", "Password", "Role", "Name"},
		{"admin", string(hash), "Admin", "Site Admin"},
		{"ravi", "plain", "user", "Ravi Kumar"},
		{"", "x", "admin", "ghost"},
	})
	return fake
}

func newApp(dir *Directory) *fiber.App {
	app := fiber.New()
	app.Post("/login", LoginHandler(dir, secret, zap.NewNop()))

	protected := app.Group("/api", JWTMiddleware(secret))
	protected.Get("/me", MeHandler())
	protected.Get("/admin", RequireRole(models.RoleAdmin), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func login(t *testing.T, app *fiber.App, username, password string) *http.Response {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestParseUsers(t *testing.T) {
	users := ParseUsers(loginSheet(t).Sheets["Login"])

	require.Len(t, users, 2)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.Equal(t, "Ravi Kumar", users[1].Name)
	assert.Equal(t, models.RoleOperator, users[1].Role)
}

func TestCheckPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, CheckPassword(string(hash), "pw"))
	assert.False(t, CheckPassword(string(hash), "PW"))
	assert.True(t, CheckPassword("plain", "plain"))
	assert.False(t, CheckPassword("plain", "plain "))
	assert.False(t, CheckPassword("", ""))
}

func TestLoginAndMe(t *testing.T) {
	app := newApp(NewDirectory(loginSheet(t), "Login"))

	resp := login(t, app, "ADMIN", "s3cret")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token string `json:"token"`
		User  struct {
			Username string          `json:"username"`
			Role     models.UserRole `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "admin", out.User.Username)
	assert.Equal(t, models.RoleAdmin, out.User.Role)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"username":"admin","name":"Site Admin","role":"admin"}`, string(body))

	req = httptest.NewRequest(http.MethodGet, "/api/admin", nil)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLogin_Rejects(t *testing.T) {
	fake := loginSheet(t)
	app := newApp(NewDirectory(fake, "Login"))

	assert.Equal(t, http.StatusUnauthorized, login(t, app, "ravi", "wrong").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, login(t, app, "nobody", "plain").StatusCode)
	assert.Equal(t, http.StatusBadRequest, login(t, app, "ravi", "").StatusCode)

	fake.Err = errors.New("down")
	assert.Equal(t, http.StatusBadGateway, login(t, app, "ravi", "plain").StatusCode)
}

func TestJWTMiddleware(t *testing.T) {
	app := newApp(NewDirectory(loginSheet(t), "Login"))

	operator := &models.User{Username: "ravi", Name: "Ravi", Role: models.RoleOperator}
	valid, err := GenerateToken(secret, operator, time.Now())
	require.NoError(t, err)
	expired, err := GenerateToken(secret, operator, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	forged, err := GenerateToken("another-secret-another-secret-xx", operator, time.Now())
	require.NoError(t, err)

	cases := map[string]struct {
		path   string
		header string
		want   int
	}{
		"no header":     {"/api/me", "", http.StatusUnauthorized},
		"wrong scheme":  {"/api/me", "Basic " + valid, http.StatusUnauthorized},
		"expired":       {"/api/me", "Bearer " + expired, http.StatusUnauthorized},
		"forged":        {"/api/me", "Bearer " + forged, http.StatusUnauthorized},
		"valid":         {"/api/me", "Bearer " + valid, http.StatusOK},
		"operator role": {"/api/admin", "Bearer " + valid, http.StatusForbidden},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}
