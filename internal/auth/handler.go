package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feedr-app/backend/internal/middleware"
	"github.com/feedr-app/backend/internal/walls"
	"github.com/feedr-app/backend/internal/web"
)

// Accounts is the account side of wall management.
type Accounts interface {
	CreateOrganizationWithFirstUserAndWall(ctx context.Context, orgName, email, password string) (*walls.SignupResult, error)
	Authenticate(ctx context.Context, email, password string) (*walls.LoginResult, error)
}

// Handler handles signup, login and logout.
type Handler struct {
	accounts     Accounts
	jwt          *JWTService
	cookieSecure bool
	logger       *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(accounts Accounts, jwt *JWTService, cookieSecure bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{accounts: accounts, jwt: jwt, cookieSecure: cookieSecure, logger: logger}
}

// Register mounts the auth routes. limit guards the credential POSTs.
func (h *Handler) Register(r gin.IRoutes, limit gin.HandlerFunc) {
	r.GET("/signup", h.SignupForm)
	r.POST("/signup", limit, h.Signup)
	r.GET("/login", h.LoginForm)
	r.POST("/login", limit, h.Login)
	r.GET("/logout", h.Logout)
}

// SignupForm handles GET /signup.
func (h *Handler) SignupForm(c *gin.Context) {
	c.HTML(http.StatusOK, web.PageSignup, web.Page{Title: "Registreren", SignedIn: middleware.SignedIn(c)})
}

// Signup handles POST /signup.
func (h *Handler) Signup(c *gin.Context) {
	res, err := h.accounts.CreateOrganizationWithFirstUserAndWall(c.Request.Context(),
		c.PostForm("orgName"), c.PostForm("email"), c.PostForm("password"))
	if err != nil {
		h.fail(c, err)
		return
	}
	SetSessionCookie(c, res.Token, h.jwt.TTL(), h.cookieSecure)
	c.Redirect(http.StatusFound, "/dashboard")
}

// LoginForm handles GET /login.
func (h *Handler) LoginForm(c *gin.Context) {
	c.HTML(http.StatusOK, web.PageLogin, web.Page{Title: "Inloggen", SignedIn: middleware.SignedIn(c)})
}

// Login handles POST /login.
func (h *Handler) Login(c *gin.Context) {
	res, err := h.accounts.Authenticate(c.Request.Context(), c.PostForm("email"), c.PostForm("password"))
	if err != nil {
		h.fail(c, err)
		return
	}
	SetSessionCookie(c, res.Token, h.jwt.TTL(), h.cookieSecure)
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout handles GET /logout: revokes the token when a deny-list is configured and clears the cookie.
func (h *Handler) Logout(c *gin.Context) {
	if claims := h.jwt.FromRequest(c.Request); claims != nil {
		if err := h.jwt.Revoke(c.Request.Context(), claims); err != nil {
			h.logger.Warn("session revocation failed", zap.Error(err))
		}
	}
	ClearSessionCookie(c, h.cookieSecure)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := walls.StatusCode(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("auth request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
			zap.Error(err),
		)
	}
	c.String(status, walls.Message(err))
}
