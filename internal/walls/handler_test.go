package walls

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/middleware"
	"github.com/feedr-app/backend/internal/web"
)

type staticSession struct{ s middleware.Session }

func (r staticSession) SessionFromRequest(*http.Request) (middleware.Session, bool) { return r.s, true }

func newDashboardRouter(t *testing.T, f *fixture, su *SignupResult) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	renderer, err := web.NewRenderer(web.ThemeLight)
	require.NoError(t, err)
	r.HTMLRender = renderer
	g := r.Group("", middleware.RequireSession(staticSession{middleware.Session{
		UserID: su.User.ID, OrgID: su.Org.ID, Email: su.User.Email,
	}}))
	NewHandler(f.svc, "https://feedr.example", zap.NewNop()).Register(g)
	return r
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestDashboardListsWalls(t *testing.T) {
	f := newFixture(t)
	su := f.signup(t, "Acme", "a@acme.test")
	r := newDashboardRouter(t, f, su)

	w := get(r, "/dashboard")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "free")
	assert.Contains(t, body, su.Wall.Slug)
	assert.Contains(t, body, "/dashboard/walls/"+su.Wall.ID.String())
}

func TestCreateWallFlow(t *testing.T) {
	f := newFixture(t)
	su := f.signup(t, "Acme", "a@acme.test")
	r := newDashboardRouter(t, f, su)

	w := postForm(r, "/dashboard/new-wall", url.Values{"name": {"Showroom"}, "slug": {"Showroom!!"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/dashboard/walls/"))

	w = postForm(r, "/dashboard/new-wall", url.Values{"name": {"Again"}, "slug": {"showroom"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgSlugTaken, w.Body.String())

	w = postForm(r, "/dashboard/new-wall", url.Values{"name": {""}, "slug": {"x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgInvalidInput, w.Body.String())
}

func TestWallDetailShowsSnippetAndPreview(t *testing.T) {
	f := newFixture(t)
	su := f.signup(t, "Acme", "a@acme.test")
	r := newDashboardRouter(t, f, su)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		_, err := f.svc.AddSource(ctx, su.Org.ID, su.Wall.ID, "youtube", "https://youtu.be/v")
		require.NoError(t, err)
	}

	w := get(r, "/dashboard/walls/"+su.Wall.ID.String())
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Preview (12 items)")
	assert.Equal(t, PreviewLimit, strings.Count(body, `<div class="item">`))
	assert.Contains(t, body, "https://feedr.example/widget/feedr.js?wall="+su.Wall.Slug)
	assert.Contains(t, body, "https://feedr.example/w/"+su.Wall.Slug)
}

func TestWallDetailNotFound(t *testing.T) {
	f := newFixture(t)
	a := f.signup(t, "Acme", "a@acme.test")
	b := f.signup(t, "Beta", "b@beta.test")
	r := newDashboardRouter(t, f, a)

	for _, path := range []string{
		"/dashboard/walls/" + b.Wall.ID.String(),
		"/dashboard/walls/not-a-uuid",
	} {
		w := get(r, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, MsgNotFound, w.Body.String())
	}
}

func TestAddURLFlow(t *testing.T) {
	f := newFixture(t)
	su := f.signup(t, "Acme", "a@acme.test")
	r := newDashboardRouter(t, f, su)
	path := "/dashboard/walls/" + su.Wall.ID.String() + "/add-url"

	w := postForm(r, path, url.Values{"type": {"youtube"}, "url": {"https://youtu.be/x"}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/dashboard/walls/"+su.Wall.ID.String(), w.Header().Get("Location"))

	w = postForm(r, path, url.Values{"type": {"facebook"}, "url": {"https://facebook.com/x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgUnsupportedType, w.Body.String())

	w = postForm(r, path, url.Values{"type": {"youtube"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgMissingURL, w.Body.String())

	assert.Len(t, f.load(t).Items, 1)
}

func TestEmbedSnippet(t *testing.T) {
	s := EmbedSnippet("https://feedr.example", "showroom")
	assert.Contains(t, s, "s.src='https://feedr.example/widget/feedr.js?wall=showroom';")
	assert.Contains(t, s, `<div data-feedr-wall="showroom"></div>`)
}
