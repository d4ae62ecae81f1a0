package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/KaramelBytes/hcpdash/internal/session"
)

// CookieName carries the session id.
const CookieName = "hcpdash_session"

const ctxSessionID = "session_id"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		sid := ""
		if id, ok := c.Get(ctxSessionID); ok {
			sid = id.(uuid.UUID).String()[:8]
		}
		evt := log.Info()
		if len(c.Errors) > 0 {
			evt = log.Error().Str("errors", c.Errors.String())
		} else if c.Writer.Status() >= http.StatusInternalServerError {
			evt = log.Error()
		}
		evt.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("session", sid).
			Msg("request")
	}
}

// withSession attaches the caller's session, starting a new one when the cookie is
// missing, malformed or refers to an expired session.
func (s *Server) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw, err := c.Cookie(CookieName); err == nil {
			if id, err := uuid.Parse(raw); err == nil {
				if _, ok := s.sessions.Get(id); ok {
					c.Set(ctxSessionID, id)
					c.Next()
					return
				}
			}
		}
		sess := s.sessions.Create(s.opts.Schema)
		setSessionCookie(c, sess.ID)
		c.Set(ctxSessionID, sess.ID)
		c.Next()
	}
}

func setSessionCookie(c *gin.Context, id uuid.UUID) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(CookieName, id.String(), 0, "/", "", false, true)
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := s.current(c)
		if !ok || !sess.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

func sessionID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(ctxSessionID)
	v, _ := id.(uuid.UUID)
	return v
}

func (s *Server) current(c *gin.Context) (session.Session, bool) {
	return s.sessions.Get(sessionID(c))
}
