package walls

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/middleware"
	"github.com/feedr-app/backend/internal/models"
	"github.com/feedr-app/backend/internal/web"
)

// PreviewLimit is the number of items shown on the wall detail page.
const PreviewLimit = 9

// DashboardView is the data of the dashboard page.
type DashboardView struct {
	Org   models.Organization
	Walls []models.Wall
}

// WallView is the data of the wall detail page.
type WallView struct {
	Wall         models.Wall
	Sources      []models.Source
	Preview      []models.Item
	ItemCount    int
	PublicURL    string
	EmbedSnippet string
}

// Handler serves the authenticated dashboard.
type Handler struct {
	svc     *Service
	baseURL string
	logger  *zap.Logger
}

// NewHandler creates a dashboard handler. baseURL is the public origin used in embed snippets.
func NewHandler(svc *Service, baseURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, baseURL: baseURL, logger: logger}
}

// Register mounts the dashboard routes on r. r must be guarded by RequireSession.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/dashboard", h.Dashboard)
	r.GET("/dashboard/new-wall", h.NewWallForm)
	r.POST("/dashboard/new-wall", h.CreateWall)
	r.GET("/dashboard/walls/:id", h.WallDetail)
	r.POST("/dashboard/walls/:id/add-url", h.AddURL)
}

// Dashboard handles GET /dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	ow, err := h.svc.ListWallsForOrg(c.Request.Context(), middleware.OrgID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, web.PageDashboard, web.Page{
		Title:    "Dashboard",
		SignedIn: true,
		Data:     DashboardView{Org: ow.Org, Walls: ow.Walls},
	})
}

// NewWallForm handles GET /dashboard/new-wall.
func (h *Handler) NewWallForm(c *gin.Context) {
	c.HTML(http.StatusOK, web.PageNewWall, web.Page{Title: "Nieuwe wall", SignedIn: true})
}

// CreateWall handles POST /dashboard/new-wall.
func (h *Handler) CreateWall(c *gin.Context) {
	wall, err := h.svc.CreateWall(c.Request.Context(), middleware.OrgID(c), c.PostForm("name"), c.PostForm("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard/walls/"+wall.ID.String())
}

// WallDetail handles GET /dashboard/walls/:id.
func (h *Handler) WallDetail(c *gin.Context) {
	wallID, ok := h.wallID(c)
	if !ok {
		return
	}
	d, err := h.svc.GetWallDetail(c.Request.Context(), middleware.OrgID(c), wallID)
	if err != nil {
		h.fail(c, err)
		return
	}
	preview := d.Items
	if len(preview) > PreviewLimit {
		preview = preview[:PreviewLimit]
	}
	c.HTML(http.StatusOK, web.PageWall, web.Page{
		Title:    "Wall: " + d.Wall.Name,
		SignedIn: true,
		Data: WallView{
			Wall:         d.Wall,
			Sources:      d.Sources,
			Preview:      preview,
			ItemCount:    len(d.Items),
			PublicURL:    h.baseURL + "/w/" + d.Wall.Slug,
			EmbedSnippet: EmbedSnippet(h.baseURL, d.Wall.Slug),
		},
	})
}

// AddURL handles POST /dashboard/walls/:id/add-url.
func (h *Handler) AddURL(c *gin.Context) {
	wallID, ok := h.wallID(c)
	if !ok {
		return
	}
	res, err := h.svc.AddSource(c.Request.Context(), middleware.OrgID(c), wallID, c.PostForm("type"), c.PostForm("url"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard/walls/"+res.Source.WallID.String())
}

// wallID parses :id. Malformed ids are answered like unknown walls.
func (h *Handler) wallID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.String(http.StatusNotFound, MsgNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("dashboard request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err),
		)
	}
	c.String(status, Message(err))
}

// EmbedSnippet returns the JavaScript snippet that loads the widget for slug.
func EmbedSnippet(baseURL, slug string) string {
	return fmt.Sprintf(`
<script>
  (function(){
    var s=document.createElement('script');
    s.src='%s/widget/feedr.js?wall=%s';
    s.async=true;
    document.currentScript.parentNode.insertBefore(s, document.currentScript);
  })();
</script>
<div data-feedr-wall="%s"></div>`, baseURL, url.QueryEscape(slug), slug)
}
