// Package public serves the unauthenticated wall surfaces: the hosted wall
// page, the items API, the embeddable widget script and the live feed.
package public

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"net/url"
	"text/template"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/middleware"
	"github.com/feedr-app/backend/internal/models"
	"github.com/feedr-app/backend/internal/walls"
	"github.com/feedr-app/backend/internal/web"
)

// WidgetFailureText is shown in the host page when the widget cannot load items.
const WidgetFailureText = "feedr: kon items niet laden."

//go:embed widget.js.tmpl
var widgetSource string

var widgetTmpl = template.Must(template.New("widget").Parse(widgetSource))

// Walls is the read side of the wall service.
type Walls interface {
	GetPublicWall(ctx context.Context, slug string) (*walls.PublicWall, error)
	ListPublicItems(ctx context.Context, slug string) (*walls.PublicItems, error)
}

// LiveFeed streams wall events over a WebSocket.
type LiveFeed interface {
	ServeWall(w http.ResponseWriter, r *http.Request, wallID uuid.UUID)
}

// WallView is the data of the public wall page.
type WallView struct {
	Wall     models.Wall
	Items    []models.Item
	LivePath string
}

// Handler serves the public wall routes.
type Handler struct {
	walls   Walls
	live    LiveFeed
	baseURL string
	logger  *zap.Logger
}

// NewHandler creates the public handler. live may be nil, which disables /ws/walls.
func NewHandler(w Walls, live LiveFeed, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{walls: w, live: live, baseURL: baseURL, logger: logger}
}

// Register mounts the page and widget routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/w/:slug", h.Wall)
	r.GET("/widget/feedr.js", h.Widget)
	if h.live != nil {
		r.GET("/ws/walls/:slug", h.Live)
	}
}

// RegisterAPI mounts the JSON API on r. r typically carries the CORS middleware.
func (h *Handler) RegisterAPI(r gin.IRoutes) {
	r.GET("/api/walls/:slug/items", h.Items)
}

// LivePath returns the WebSocket path of a wall.
func LivePath(slug string) string {
	return "/ws/walls/" + url.PathEscape(slug)
}

// Wall handles GET /w/:slug.
func (h *Handler) Wall(c *gin.Context) {
	pw, err := h.walls.GetPublicWall(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err, false)
		return
	}
	c.HTML(http.StatusOK, web.PagePublicWall, web.Page{
		Title:    pw.Wall.Name,
		SignedIn: middleware.SignedIn(c),
		Data: WallView{
			Wall:     pw.Wall,
			Items:    pw.Items,
			LivePath: LivePath(pw.Wall.Slug),
		},
	})
}

// Items handles GET /api/walls/:slug/items.
func (h *Handler) Items(c *gin.Context) {
	items, err := h.walls.ListPublicItems(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err, true)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Widget handles GET /widget/feedr.js?wall=<slug>. The script is returned for any slug.
func (h *Handler) Widget(c *gin.Context) {
	body, err := RenderWidget(c.Query("wall"), h.baseURL)
	if err != nil {
		h.logger.Error("render widget", zap.Error(err))
		c.String(http.StatusInternalServerError, walls.MsgInternal)
		return
	}
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", body)
}

// Live handles GET /ws/walls/:slug. Unknown slugs are rejected before the upgrade.
func (h *Handler) Live(c *gin.Context) {
	pw, err := h.walls.GetPublicWall(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err, false)
		return
	}
	h.live.ServeWall(c.Writer, c.Request, pw.Wall.ID)
}

// RenderWidget returns the widget script for slug served from host.
// Both values are embedded as JSON string literals.
func RenderWidget(slug, host string) ([]byte, error) {
	quote := func(s string) (string, error) {
		b, err := json.Marshal(s)
		return string(b), err
	}
	var data struct{ Slug, Host, FailureText string }
	var err error
	if data.Slug, err = quote(slug); err != nil {
		return nil, err
	}
	if data.Host, err = quote(host); err != nil {
		return nil, err
	}
	if data.FailureText, err = quote(WidgetFailureText); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := widgetTmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Handler) fail(c *gin.Context, err error, asJSON bool) {
	status := walls.StatusCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("public request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err),
		)
	}
	if !asJSON {
		c.String(status, walls.Message(err))
		return
	}
	if status == http.StatusNotFound {
		c.JSON(status, gin.H{"error": "niet gevonden"})
		return
	}
	c.JSON(status, gin.H{"error": walls.Message(err)})
}
