// Package embed resolves content URLs to provider embed markup through oEmbed.
package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/models"
)

var (
	ErrMissingURL      = errors.New("url is required")
	ErrUnsupportedType = errors.New("unsupported platform")
)

// DefaultTimeout bounds a single provider lookup.
const DefaultTimeout = 5 * time.Second

// maxBody caps provider responses.
const maxBody = 1 << 20

// Outcome labels.
const (
	outcomeOK       = "ok"
	outcomeFallback = "fallback"
	outcomeCacheHit = "cache_hit"
)

var resolutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "feedr_embed_resolutions_total",
		Help: "Embed resolutions by platform and outcome",
	},
	[]string{"platform", "outcome"},
)

// Provider is an oEmbed endpoint for one platform.
type Provider struct {
	Name     string // display name stored on items
	Endpoint string // oEmbed endpoint; the content URL is appended escaped
}

// DefaultProviders are the public oEmbed endpoints.
func DefaultProviders() map[models.Platform]Provider {
	return map[models.Platform]Provider{
		models.PlatformYouTube:   {Name: "YouTube", Endpoint: "https://www.youtube.com/oembed?format=json&url="},
		models.PlatformTikTok:    {Name: "TikTok", Endpoint: "https://www.tiktok.com/oembed?url="},
		models.PlatformInstagram: {Name: "Instagram", Endpoint: "https://api.instagram.com/oembed?url="},
	}
}

// Cache memoizes successful resolutions.
type Cache interface {
	Get(ctx context.Context, platform models.Platform, contentURL string) (models.Embed, bool, error)
	Set(ctx context.Context, platform models.Platform, contentURL string, e models.Embed) error
}

// Resolver performs bounded oEmbed lookups.
type Resolver struct {
	client    *http.Client
	providers map[models.Platform]Provider
	timeout   time.Duration
	cache     Cache
	logger    *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProviders replaces the provider table.
func WithProviders(p map[models.Platform]Provider) Option {
	return func(r *Resolver) { r.providers = p }
}

// WithCache enables memoization.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithHTTPClient sets the HTTP client. Its Timeout is overridden by the resolver timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.client = c }
}

// NewResolver creates a resolver with the given per-lookup timeout.
func NewResolver(timeout time.Duration, logger *zap.Logger, opts ...Option) *Resolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Resolver{
		client:    &http.Client{},
		providers: DefaultProviders(),
		timeout:   timeout,
		logger:    logger,
	}
	for _, o := range opts {
		o(r)
	}
	client := *r.client
	client.Timeout = timeout
	r.client = &client
	return r
}

type oEmbedResponse struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Resolve returns embed markup for contentURL. It fails only for an empty URL or
// an unsupported platform; every lookup problem yields the fallback
// {provider: platform, title: "", html: ""}.
func (r *Resolver) Resolve(ctx context.Context, platform models.Platform, contentURL string) (models.Embed, error) {
	contentURL = strings.TrimSpace(contentURL)
	if contentURL == "" {
		return models.Embed{}, ErrMissingURL
	}
	p, ok := r.providers[platform]
	if !ok {
		return models.Embed{}, ErrUnsupportedType
	}

	if r.cache != nil {
		e, hit, err := r.cache.Get(ctx, platform, contentURL)
		if err != nil {
			r.logger.Warn("embed cache read failed", zap.Error(err))
		} else if hit {
			resolutions.WithLabelValues(string(platform), outcomeCacheHit).Inc()
			return e, nil
		}
	}

	e, err := r.lookup(ctx, p, contentURL)
	if err != nil {
		r.logger.Info("embed lookup fell back",
			zap.String("platform", string(platform)),
			zap.String("url", contentURL),
			zap.Error(err),
		)
		resolutions.WithLabelValues(string(platform), outcomeFallback).Inc()
		return Fallback(platform), nil
	}
	resolutions.WithLabelValues(string(platform), outcomeOK).Inc()

	if r.cache != nil {
		if err := r.cache.Set(ctx, platform, contentURL, e); err != nil {
			r.logger.Warn("embed cache write failed", zap.Error(err))
		}
	}
	return e, nil
}

// Fallback is the result used when a provider gives no usable markup.
func Fallback(platform models.Platform) models.Embed {
	return models.Embed{Provider: string(platform)}
}

func (r *Resolver) lookup(ctx context.Context, p Provider, contentURL string) (models.Embed, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.Endpoint+url.QueryEscape(contentURL), nil)
	if err != nil {
		return models.Embed{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return models.Embed{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return models.Embed{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	var o oEmbedResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&o); err != nil {
		return models.Embed{}, fmt.Errorf("decode: %w", err)
	}
	if o.HTML == "" {
		return models.Embed{}, errors.New("response has no html")
	}
	return models.Embed{Provider: p.Name, Title: o.Title, HTML: o.HTML}, nil
}
