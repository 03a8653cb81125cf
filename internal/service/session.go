package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/models"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

// Session is the explicit per-request context every service call receives.
// Company is nil until the user completes onboarding.
type Session struct {
	UserID  string
	Email   string
	Name    string
	Company *models.Company

	// TokenID and TokenExpiresAt identify the access token the request
	// carried, so Logout can revoke it.
	TokenID        string
	TokenExpiresAt time.Time
}

// Signals converts the session into gating inputs.
func (s *Session) Signals() access.Signals {
	if s == nil || s.UserID == "" {
		return access.Signals{}
	}
	return access.Signals{
		HasSession:   true,
		HasCompany:   s.Company != nil,
		IsSubscribed: s.Company != nil && s.Company.IsSubscribed,
	}
}

// CompanyID returns the company identifier or "".
func (s *Session) CompanyID() string {
	if s == nil || s.Company == nil {
		return ""
	}
	return s.Company.ID
}

// requireCompany fails with NO_COMPANY when onboarding is incomplete.
func (s *Session) requireCompany() (*models.Company, error) {
	if s == nil || s.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if s.Company == nil {
		return nil, appErrors.ErrNoCompany
	}
	return s.Company, nil
}

type sessionCompanyFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.Company, error)
}

// SessionService resolves verified token claims into a Session.
type SessionService struct {
	companies sessionCompanyFinder
}

// NewSessionService constructs the resolver.
func NewSessionService(companies sessionCompanyFinder) *SessionService {
	return &SessionService{companies: companies}
}

// Resolve loads the company owned by the claims' user.
func (s *SessionService) Resolve(ctx context.Context, claims *models.JWTClaims) (*Session, error) {
	if claims == nil || claims.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	session := &Session{UserID: claims.UserID, Email: claims.Email, Name: claims.Name, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		session.TokenExpiresAt = claims.ExpiresAt.Time
	}
	company, err := s.companies.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session, nil
		}
		return nil, appErrors.Internal(err, "failed to load company")
	}
	session.Company = company
	return session, nil
}

// Decide evaluates the gating table for path; a nil session is anonymous.
func (s *SessionService) Decide(session *Session, path string) access.Decision {
	return access.Decide(session.Signals(), path)
}
