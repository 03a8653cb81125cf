package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/access"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/response"
)

// Gate runs the access table for the screen that consumes the guarded API
// group. Redirects to an onboarding step abort with the matching error and
// meta.redirect; a subscribed session being bounced to /dashboard from an
// onboarding screen is let through so the API stays usable.
func Gate(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := access.Decide(SessionFromContext(c).Signals(), route)
		if decision.Outcome != access.OutcomeRedirect {
			c.Next()
			return
		}
		if err := gateError(decision.Target); err != nil {
			response.Abort(c, err)
			return
		}
		c.Next()
	}
}

func gateError(target string) error {
	switch target {
	case access.RouteLogin:
		return appErrors.ErrUnauthorized.WithRedirect(target)
	case access.RouteCreateCompany:
		return appErrors.ErrNoCompany.WithRedirect(target)
	case access.RouteSubscription:
		return appErrors.ErrSubscriptionRequired.WithRedirect(target)
	default:
		return nil
	}
}
