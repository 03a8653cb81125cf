package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/service"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/logger"
	"github.com/noah-isme/compliance-api/pkg/response"
)

const (
	// ContextUserKey is the gin context key storing JWT claims.
	ContextUserKey = "currentUser"
	// ContextSessionKey is the gin context key storing the resolved session.
	ContextSessionKey = "session"
)

type tokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error)
}

type sessionResolver interface {
	Resolve(ctx context.Context, claims *models.JWTClaims) (*service.Session, error)
}

// JWT protects routes by requiring a valid access token and resolves the
// caller's session.
func JWT(auth tokenValidator, sessions sessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or invalid authorization header").WithRedirect(access.RouteLogin))
			return
		}

		claims, err := auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, appErrors.FromError(err).WithRedirect(access.RouteLogin))
			return
		}

		session, err := sessions.Resolve(c.Request.Context(), claims)
		if err != nil {
			response.Abort(c, err)
			return
		}

		setSession(c, claims, session)
		c.Next()
	}
}

// OptionalJWT attaches claims and session when present but does not block.
func OptionalJWT(auth tokenValidator, sessions sessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		claims, err := auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}

		session, err := sessions.Resolve(c.Request.Context(), claims)
		if err != nil {
			c.Next()
			return
		}

		setSession(c, claims, session)
		c.Next()
	}
}

func setSession(c *gin.Context, claims *models.JWTClaims, session *service.Session) {
	c.Set(ContextUserKey, claims)
	c.Set(ContextSessionKey, session)
	c.Set(logger.UserIDKey, session.UserID)
	if companyID := session.CompanyID(); companyID != "" {
		c.Set(logger.CompanyIDKey, companyID)
	}
}

// SessionFromContext returns the session stored by JWT, or nil.
func SessionFromContext(c *gin.Context) *service.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, _ := value.(*service.Session)
	return session
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
