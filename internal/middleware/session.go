package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// ContextUserID is the key for the acting user ID in gin context.
	ContextUserID = "user_id"
	// ContextOrgID is the key for the acting organization ID in gin context.
	ContextOrgID = "org_id"
	// ContextUserEmail is the key for the acting user email in gin context.
	ContextUserEmail = "user_email"
	// ContextSession is the key for the full Session in gin context.
	ContextSession = "session"
)

// Session is the authenticated principal behind a request.
type Session struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Email  string
}

// SessionReader extracts a valid session from a request.
type SessionReader interface {
	SessionFromRequest(r *http.Request) (Session, bool)
}

// RequireSession redirects to /login when the request carries no valid session.
// A session already attached by OptionalSession is reused.
func RequireSession(reader SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetSession(c); ok {
			c.Next()
			return
		}
		s, ok := reader.SessionFromRequest(c.Request)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		setSession(c, s)
		c.Next()
	}
}

// OptionalSession attaches the session when present and never blocks.
func OptionalSession(reader SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s, ok := reader.SessionFromRequest(c.Request); ok {
			setSession(c, s)
		}
		c.Next()
	}
}

func setSession(c *gin.Context, s Session) {
	c.Set(ContextSession, s)
	c.Set(ContextUserID, s.UserID)
	c.Set(ContextOrgID, s.OrgID)
	c.Set(ContextUserEmail, s.Email)
}

// GetSession returns the session attached by RequireSession or OptionalSession.
func GetSession(c *gin.Context) (Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return Session{}, false
	}
	s, ok := v.(Session)
	return s, ok
}

// SignedIn reports whether the request carries a session.
func SignedIn(c *gin.Context) bool {
	_, ok := GetSession(c)
	return ok
}

// OrgID returns the acting organization ID, or uuid.Nil.
func OrgID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(ContextOrgID)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}
