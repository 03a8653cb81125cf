// Package access decides which screen a session may reach.
package access

import "strings"

// Outcome is the kind of a gating decision.
type Outcome string

const (
	OutcomeLoading  Outcome = "LOADING"
	OutcomeAllow    Outcome = "ALLOW"
	OutcomeRedirect Outcome = "REDIRECT"
)

// Signals are the session facts gating depends on.
type Signals struct {
	Loading      bool
	HasSession   bool
	HasCompany   bool
	IsSubscribed bool
}

// Decision is the result of Decide. Target is set only for redirects.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	Target  string  `json:"target,omitempty"`
}

// Allow is the permissive decision.
var Allow = Decision{Outcome: OutcomeAllow}

func redirect(target string) Decision {
	return Decision{Outcome: OutcomeRedirect, Target: target}
}

// Decide applies the gating table for path; the first matching row wins.
//
//	loading                  -> loading
//	no session               -> login/register allowed, else /login
//	no company               -> create-company allowed, else /create-company
//	not subscribed           -> subscribe/create-company allowed, else /subscribe
//	subscribed               -> onboarding screens go to /dashboard, else allowed
func Decide(s Signals, path string) Decision {
	path = Normalize(path)
	switch {
	case s.Loading:
		return Decision{Outcome: OutcomeLoading}
	case !s.HasSession:
		if path == RouteLogin || path == RouteRegister {
			return Allow
		}
		return redirect(RouteLogin)
	case !s.HasCompany:
		if path == RouteCreateCompany {
			return Allow
		}
		return redirect(RouteCreateCompany)
	case !s.IsSubscribed:
		if path == RouteSubscription || path == RouteCreateCompany {
			return Allow
		}
		return redirect(RouteSubscription)
	default:
		switch path {
		case RouteLogin, RouteRegister, RouteCreateCompany, RouteSubscription:
			return redirect(RouteDashboard)
		}
		return Allow
	}
}

// FirstScreen is where a session lands after an onboarding transition.
func FirstScreen(s Signals) string {
	d := Decide(s, RouteDashboard)
	if d.Outcome == OutcomeRedirect {
		return d.Target
	}
	return RouteDashboard
}

// Normalize trims query strings and trailing slashes so "/dashboard/?x" and
// "/dashboard" gate identically.
func Normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}
