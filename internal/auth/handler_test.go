package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/embed"
	"github.com/feedr-app/backend/internal/middleware"
	"github.com/feedr-app/backend/internal/store"
	"github.com/feedr-app/backend/internal/walls"
	"github.com/feedr-app/backend/internal/web"
)

type authFixture struct {
	router *gin.Engine
	jwt    *JWTService
	docs   *store.Documents
}

func newAuthFixture(t *testing.T, limit string) *authFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	jwtSvc := NewJWTService(testSecret, time.Hour, NewRedisRevoker(client), zap.NewNop())
	docs := store.New(store.NewFileStore(filepath.Join(t.TempDir(), "db.json")), zap.NewNop())
	svc := walls.NewService(docs, jwtSvc, embed.NewResolver(time.Second, zap.NewNop()), nil, zap.NewNop())

	renderer, err := web.NewRenderer(web.ThemeLight)
	require.NoError(t, err)
	r := gin.New()
	r.HTMLRender = renderer
	limiter, err := middleware.NewIPRateLimiter(limit)
	require.NoError(t, err)
	pub := r.Group("", middleware.OptionalSession(jwtSvc))
	NewHandler(svc, jwtSvc, false, zap.NewNop()).Register(pub, limiter)
	r.GET("/dashboard", middleware.RequireSession(jwtSvc), func(c *gin.Context) {
		s, _ := middleware.GetSession(c)
		c.String(http.StatusOK, s.Email)
	})
	return &authFixture{router: r, jwt: jwtSvc, docs: docs}
}

func (f *authFixture) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = "192.0.2.1:5000"
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *authFixture) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

var signupForm = url.Values{"orgName": {"Acme"}, "email": {"a@acme.test"}, "password": {"password1"}}

func TestSignupSetsSessionAndRedirects(t *testing.T) {
	f := newAuthFixture(t, "")
	w := f.post("/signup", signupForm)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))

	c := sessionCookie(t, w)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int(time.Hour.Seconds()), c.MaxAge)

	w = f.get("/dashboard", c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a@acme.test", w.Body.String())
}

func TestSignupFailuresArePlainText(t *testing.T) {
	f := newAuthFixture(t, "")
	require.Equal(t, http.StatusFound, f.post("/signup", signupForm).Code)

	w := f.post("/signup", signupForm)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, walls.MsgEmailTaken, w.Body.String())

	w = f.post("/signup", url.Values{"orgName": {"X"}, "email": {"x@x.test"}, "password": {"short"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, walls.MsgInvalidInput, w.Body.String())
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t, "")
	require.Equal(t, http.StatusFound, f.post("/signup", signupForm).Code)

	w := f.post("/login", url.Values{"email": {"A@acme.test"}, "password": {"password1"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	sessionCookie(t, w)

	for _, form := range []url.Values{
		{"email": {"a@acme.test"}, "password": {"wrong-password"}},
		{"email": {"nobody@acme.test"}, "password": {"password1"}},
	} {
		w = f.post("/login", form)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, walls.MsgBadCredentials, w.Body.String())
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t, "")
	c := sessionCookie(t, f.post("/signup", signupForm))

	w := f.get("/logout", c)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	cleared := sessionCookie(t, w)
	assert.Empty(t, cleared.Value)
	assert.Negative(t, cleared.MaxAge)

	w = f.get("/dashboard", c)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestAuthFormsRender(t *testing.T) {
	f := newAuthFixture(t, "")
	w := f.get("/signup")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="orgName"`)

	w = f.get("/login")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `action="/login"`)
}

func TestLoginIsRateLimited(t *testing.T) {
	f := newAuthFixture(t, "2-M")
	form := url.Values{"email": {"nobody@acme.test"}, "password": {"password1"}}
	assert.Equal(t, http.StatusBadRequest, f.post("/login", form).Code)
	assert.Equal(t, http.StatusBadRequest, f.post("/login", form).Code)
	assert.Equal(t, http.StatusTooManyRequests, f.post("/login", form).Code)
}
