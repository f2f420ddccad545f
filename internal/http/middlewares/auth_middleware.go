package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/medtranslate/internal/actorctx"
	"github.com/geocoder89/medtranslate/internal/auth"
	"github.com/geocoder89/medtranslate/internal/session"
	"github.com/gin-gonic/gin"
)

// Keep these small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type SessionReader interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

type AuthMiddleware struct {
	jwt        TokenVerifier
	sessions   SessionReader
	cookieName string
}

func NewAuthMiddleware(jwt TokenVerifier, sessions SessionReader, cookieName string) *AuthMiddleware {
	if cookieName == "" {
		cookieName = "session_id"
	}
	return &AuthMiddleware{jwt: jwt, sessions: sessions, cookieName: cookieName}
}

var errBadToken = errors.New("invalid or expired access token")

// RequireAuth accepts a bearer access token or the session cookie.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok, err := m.resolve(c)

		if err != nil && !errors.Is(err, errBadToken) {
			slog.Default().ErrorContext(c.Request.Context(), "session lookup failed", "err", err)
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Could not verify session")
			return
		}

		if !ok {
			message := "Authentication required"
			if err != nil {
				message = "Invalid or expired access token"
			}
			abortWithError(c, http.StatusUnauthorized, "unauthorized", message)
			return
		}

		setIdentity(c, id)
		c.Next()
	}
}

func (m *AuthMiddleware) resolve(c *gin.Context) (actorctx.Identity, bool, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		raw, found := strings.CutPrefix(authHeader, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !found || raw == "" || m.jwt == nil {
			return actorctx.Identity{}, false, errBadToken
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			return actorctx.Identity{}, false, errBadToken
		}
		return actorctx.Identity{
			UserID: claims.UserID,
			Name:   claims.Name,
			Email:  claims.Email,
			Role:   claims.Role,
		}, true, nil
	}

	raw, err := c.Cookie(m.cookieName)
	if err != nil || raw == "" || m.sessions == nil {
		return actorctx.Identity{}, false, nil
	}

	sess, err := m.sessions.Get(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return actorctx.Identity{}, false, nil
		}
		return actorctx.Identity{}, false, err
	}
	return sess.Identity(), true, nil
}

func setIdentity(c *gin.Context, id actorctx.Identity) {
	// Stash useful bits of identity on the context
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxName, id.Name)
	c.Set(CtxEmail, id.Email)
	c.Set(CtxRole, id.Role)

	c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))
}

// Optional helpers so handlers don't need to know the magic keys.

func IdentityFromContext(c *gin.Context) (actorctx.Identity, bool) {
	return actorctx.IdentityFrom(c.Request.Context())
}

func UserIDFromContext(c *gin.Context) (int64, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

func RoleFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxRole)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}
