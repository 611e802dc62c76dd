package embed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/models"
)

func providerServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, map[models.Platform]Provider) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, map[models.Platform]Provider{
		models.PlatformYouTube:   {Name: "YouTube", Endpoint: srv.URL + "/youtube?format=json&url="},
		models.PlatformTikTok:    {Name: "TikTok", Endpoint: srv.URL + "/tiktok?url="},
		models.PlatformInstagram: {Name: "Instagram", Endpoint: srv.URL + "/instagram?url="},
	}
}

func TestResolveSuccess(t *testing.T) {
	var gotURL string
	_, providers := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		assert.Equal(t, "/youtube", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Walkthrough","html":"<iframe src=\"x\"></iframe>"}`))
	})
	res := NewResolver(time.Second, zap.NewNop(), WithProviders(providers))

	e, err := res.Resolve(context.Background(), models.PlatformYouTube, " https://youtu.be/abc?t=1&x=2 ")
	require.NoError(t, err)
	assert.Equal(t, "https://youtu.be/abc?t=1&x=2", gotURL)
	assert.Equal(t, models.Embed{Provider: "YouTube", Title: "Walkthrough", HTML: `<iframe src="x"></iframe>`}, e)
}

func TestResolveFallbacks(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"missing html": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"title":"no markup"}`))
		},
		"non 2xx": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"html":"<b>ignored</b>"}`))
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			_, providers := providerServer(t, h)
			res := NewResolver(time.Second, zap.NewNop(), WithProviders(providers))
			e, err := res.Resolve(context.Background(), models.PlatformInstagram, "https://instagram.com/p/1")
			require.NoError(t, err)
			assert.Equal(t, models.Embed{Provider: "instagram", Title: "", HTML: ""}, e)
		})
	}
}

func TestResolveTimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	_, providers := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	res := NewResolver(50*time.Millisecond, zap.NewNop(), WithProviders(providers))

	start := time.Now()
	e, err := res.Resolve(context.Background(), models.PlatformTikTok, "https://tiktok.com/@a/video/1")
	require.NoError(t, err)
	assert.Equal(t, Fallback(models.PlatformTikTok), e)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveUnreachableProviderFallsBack(t *testing.T) {
	providers := map[models.Platform]Provider{
		models.PlatformYouTube: {Name: "YouTube", Endpoint: "http://127.0.0.1:1/oembed?url="},
	}
	res := NewResolver(time.Second, zap.NewNop(), WithProviders(providers))
	e, err := res.Resolve(context.Background(), models.PlatformYouTube, "https://youtu.be/x")
	require.NoError(t, err)
	assert.Equal(t, Fallback(models.PlatformYouTube), e)
}

func TestResolveErrors(t *testing.T) {
	res := NewResolver(time.Second, zap.NewNop())
	_, err := res.Resolve(context.Background(), models.PlatformYouTube, "  ")
	require.ErrorIs(t, err, ErrMissingURL)
	_, err = res.Resolve(context.Background(), models.Platform("facebook"), "https://facebook.com/x")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestResolveUsesCacheForSuccessOnly(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var hits atomic.Int32
	var withHTML atomic.Bool
	withHTML.Store(true)
	_, providers := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if withHTML.Load() {
			_, _ = w.Write([]byte(`{"title":"t","html":"<p>ok</p>"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	res := NewResolver(time.Second, zap.NewNop(),
		WithProviders(providers),
		WithCache(NewRedisCache(client, time.Hour)),
	)
	ctx := context.Background()

	first, err := res.Resolve(ctx, models.PlatformYouTube, "https://youtu.be/a")
	require.NoError(t, err)
	second, err := res.Resolve(ctx, models.PlatformYouTube, "https://youtu.be/a")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, hits.Load())
	assert.True(t, mr.Exists(CacheKey(models.PlatformYouTube, "https://youtu.be/a")))
	assert.Equal(t, time.Hour, mr.TTL(CacheKey(models.PlatformYouTube, "https://youtu.be/a")))

	withHTML.Store(false)
	_, err = res.Resolve(ctx, models.PlatformYouTube, "https://youtu.be/b")
	require.NoError(t, err)
	_, err = res.Resolve(ctx, models.PlatformYouTube, "https://youtu.be/b")
	require.NoError(t, err)
	assert.EqualValues(t, 3, hits.Load(), "fallbacks are not cached")
}

func TestResolveDegradesWhenCacheIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, providers := providerServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"html":"<p>live</p>"}`))
	})
	res := NewResolver(time.Second, zap.NewNop(), WithProviders(providers), WithCache(NewRedisCache(client, time.Hour)))
	e, err := res.Resolve(context.Background(), models.PlatformTikTok, "https://tiktok.com/x")
	require.NoError(t, err)
	assert.Equal(t, "<p>live</p>", e.HTML)
	assert.Equal(t, "TikTok", e.Provider)
}

func TestCacheKeyShape(t *testing.T) {
	k := CacheKey(models.PlatformYouTube, "https://youtu.be/a")
	assert.Regexp(t, `^embed:youtube:[0-9a-f]{64}$`, k)
}
