package marketing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feedr-app/backend/internal/middleware"
	"github.com/feedr-app/backend/internal/web"
)

// Handler serves the public marketing pages.
type Handler struct{}

// NewHandler creates a marketing handler.
func NewHandler() *Handler { return &Handler{} }

// Register mounts the marketing routes on r. Routes expect OptionalSession upstream.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.page(web.PageHome, "", "feedr: maak social walls met Instagram, TikTok en YouTube. Start gratis en embed zonder iframe."))
	r.GET("/product", h.page(web.PageProduct, "Product", ""))
	r.GET("/use-cases", h.page(web.PageUseCases, "Use cases", ""))
	r.GET("/pricing", h.page(web.PagePricing, "Prijzen", ""))
	r.GET("/security", h.page(web.PageSecurity, "Security", ""))
	r.GET("/features", func(c *gin.Context) { c.Redirect(http.StatusFound, "/product") })
	r.GET("/assets/app.css", web.Stylesheet)
}

func (h *Handler) page(name, title, description string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, web.Page{
			Title:       title,
			Description: description,
			SignedIn:    middleware.SignedIn(c),
		})
	}
}
