package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/urospodkriznik/myapp-devops/internal/events"
	"github.com/urospodkriznik/myapp-devops/internal/handlers"
	"github.com/urospodkriznik/myapp-devops/internal/metrics"
	"github.com/urospodkriznik/myapp-devops/internal/models"
	"github.com/urospodkriznik/myapp-devops/internal/tokens"
)

type testEnv struct {
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *tokens.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Item{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	tokenSvc := &tokens.Service{Secret: []byte("test-secret")}
	producer := events.NewProducer(nil)

	e := echo.New()
	Register(e, &Deps{
		DB:            db,
		Tokens:        tokenSvc,
		Metrics:       metrics.NewRegistry(),
		AuthHandler:   &handlers.AuthHandler{DB: db, Tokens: tokenSvc, Producer: producer},
		UserHandler:   &handlers.UserHandler{DB: db, Producer: producer},
		ItemHandler:   &handlers.ItemHandler{DB: db, Producer: producer},
		SearchHandler: &handlers.SearchHandler{},
	})

	return &testEnv{E: e, DB: db, Tokens: tokenSvc}
}

func (env *testEnv) do(method, target, token string, payload any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) register(t *testing.T, name, email, password, role string) {
	t.Helper()

	payload := map[string]string{"name": name, "email": email, "password": password}
	if role != "" {
		payload["role"] = role
	}
	rec := env.do(http.MethodPost, "/register", "", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func (env *testEnv) login(t *testing.T, email, password string) (string, *http.Cookie) {
	t.Helper()

	rec := env.do(http.MethodPost, "/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])

	var refresh *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == handlers.RefreshCookieName {
			refresh = ck
		}
	}
	require.NotNil(t, refresh)
	return resp["access_token"], refresh
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "a", "a@x.com", "p", "")
	token, _ := env.login(t, "a@x.com", "p")

	rec := env.do(http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "a@x.com", me["email"])
	assert.Equal(t, "USER", me["role"])
	assert.Equal(t, "a", me["name"])
}

func TestMe_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe_DeletedUserForbidden(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "gone", "gone@x.com", "p", "")
	token, _ := env.login(t, "gone@x.com", "p")

	require.NoError(t, env.DB.Where("email = ?", "gone@x.com").Delete(&models.User{}).Error)

	rec := env.do(http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUsersEndpoint_RoleGate(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "plain", "plain@x.com", "p", "")
	env.register(t, "root", "root@x.com", "p", "ADMIN")

	userToken, _ := env.login(t, "plain@x.com", "p")
	adminToken, _ := env.login(t, "root@x.com", "p")

	rec := env.do(http.MethodGet, "/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	rec = env.do(http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "root", "root@x.com", "p", "ADMIN")
	env.register(t, "victim", "victim@x.com", "p", "")
	adminToken, _ := env.login(t, "root@x.com", "p")

	var victim models.User
	require.NoError(t, env.DB.Where("email = ?", "victim@x.com").First(&victim).Error)

	rec := env.do(http.MethodDelete, "/users/2", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["ok"])

	rec = env.do(http.MethodDelete, "/users/99", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRefreshFlow(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "a", "a@x.com", "p", "")
	_, refreshCk := env.login(t, "a@x.com", "p")
	assert.Equal(t, "/refresh", refreshCk.Path)

	rec := env.do(http.MethodGet, "/refresh", "", nil, &http.Cookie{
		Name: handlers.RefreshCookieName, Value: refreshCk.Value,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])

	recMe := env.do(http.MethodGet, "/me", resp["access_token"], nil)
	assert.Equal(t, http.StatusOK, recMe.Code)

	rec = env.do(http.MethodGet, "/refresh", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_DoesNotRevokeAccessToken(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "a", "a@x.com", "p", "")
	token, _ := env.login(t, "a@x.com", "p")

	rec := env.do(http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, handlers.RefreshCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)

	// tokens are self-contained, so the access token keeps working
	recMe := env.do(http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusOK, recMe.Code)
}

func TestItems_AuthSplit(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "a", "a@x.com", "p", "")
	token, _ := env.login(t, "a@x.com", "p")

	rec := env.do(http.MethodPost, "/items", "", map[string]any{"name": "lamp", "price": 1.0})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/items", token, map[string]any{"name": "lamp", "price": 1.0})
	require.Equal(t, http.StatusCreated, rec.Code)

	// reads stay public
	rec = env.do(http.MethodGet, "/items", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(http.MethodGet, "/items/1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPatch, "/items/1", "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(http.MethodDelete, "/items/1", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "requests")
	assert.Contains(t, resp, "uptime_seconds")
}
