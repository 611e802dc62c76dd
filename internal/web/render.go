// Package web renders feedr's HTML pages from one embedded template set.
// The active theme only switches CSS custom properties, so every page exists once.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html static/app.css
var files embed.FS

// Themes supported by the stylesheet.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
	ThemeWarm  = "warm"
)

// Page names.
const (
	PageHome       = "home"
	PageProduct    = "product"
	PageUseCases   = "use-cases"
	PagePricing    = "pricing"
	PageSecurity   = "security"
	PageSignup     = "signup"
	PageLogin      = "login"
	PageDashboard  = "dashboard"
	PageNewWall    = "new-wall"
	PageWall       = "wall"
	PagePublicWall = "public-wall"
)

var pages = []string{
	PageHome, PageProduct, PageUseCases, PagePricing, PageSecurity,
	PageSignup, PageLogin, PageDashboard, PageNewWall, PageWall, PagePublicWall,
}

// Page is the data every template receives.
type Page struct {
	Title       string
	Description string
	SignedIn    bool
	Data        any
}

// Renderer implements gin's render.HTMLRender over the embedded templates.
type Renderer struct {
	theme     string
	templates map[string]*template.Template
}

// NormalizeTheme returns theme if supported, else ThemeLight.
func NormalizeTheme(theme string) string {
	switch theme {
	case ThemeLight, ThemeDark, ThemeWarm:
		return theme
	default:
		return ThemeLight
	}
}

// NewRenderer parses every page together with the layout and shared partials.
func NewRenderer(theme string) (*Renderer, error) {
	r := &Renderer{theme: NormalizeTheme(theme), templates: make(map[string]*template.Template, len(pages))}
	funcs := template.FuncMap{
		"theme":      func() string { return r.theme },
		"year":       func() int { return time.Now().Year() },
		"pathEscape": url.PathEscape,
		"datetime":   func(t time.Time) string { return t.Local().Format("02-01-2006 15:04") },
		// provider oEmbed markup is stored and rendered as-is
		"rawHTML": func(s string) template.HTML { return template.HTML(s) },
	}
	for _, name := range pages {
		t, err := template.New("layout").Funcs(funcs).ParseFS(files,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

// Theme returns the active theme.
func (r *Renderer) Theme() string { return r.theme }

// Instance implements render.HTMLRender.
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.templates[name]
	if !ok {
		return missingTemplate{name: name}
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

type missingTemplate struct{ name string }

func (m missingTemplate) Render(w http.ResponseWriter) error {
	return fmt.Errorf("unknown template %q", m.name)
}

func (m missingTemplate) WriteContentType(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}

// Stylesheet serves /assets/app.css.
func Stylesheet(c *gin.Context) {
	css, err := files.ReadFile("static/app.css")
	if err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "text/css; charset=utf-8", css)
}
