package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/repository"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID string, revokedAt time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
}

type authCompanyFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.Company, error)
}

// accessTokenDenylist blocks access tokens by ID until they would have expired.
type accessTokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type companyCacheInvalidator interface {
	InvalidateCompany(ctx context.Context, companyID string)
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
	SingleSession      bool
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	companies authCompanyFinder
	cache     companyCacheInvalidator
	audit     auditTrail
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	denylist  accessTokenDenylist
	clock     Clock
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, companies authCompanyFinder, cache companyCacheInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = time.Hour
	}
	if config.RefreshTokenExpiry <= 0 {
		config.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
	return &AuthService{
		repo:      repo,
		companies: companies,
		cache:     cache,
		audit:     auditTrail{repo: audit, logger: logger},
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// WithDenylist makes Logout revoke the presented access token and
// ValidateToken reject revoked ones.
func (s *AuthService) WithDenylist(denylist accessTokenDenylist) *AuthService {
	s.denylist = denylist
	return s
}

// WithClock replaces the wall clock used for token lifetimes.
func (s *AuthService) WithClock(clock Clock) *AuthService {
	s.clock = clock
	return s
}

func (s *AuthService) now() time.Time {
	return s.clock.Time().UTC()
}

// Login authenticates a user and returns issued tokens plus the first screen.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := validate(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Credenciales inválidas")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "Credenciales inválidas")
	}

	if s.config.SingleSession {
		if err := s.repo.RevokeUserRefreshTokens(ctx, user.ID, s.now()); err != nil {
			s.logger.Warn("failed to revoke previous refresh tokens", zap.Error(err))
		}
	}

	resp, err := s.issue(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}

	session, err := s.sessionFor(ctx, user)
	if err != nil {
		return nil, err
	}
	resp.Next = access.FirstScreen(session.Signals())
	s.audit.record(ctx, session, models.AuditActionLogin, "auth", user.ID)
	return resp, nil
}

// Register creates an account and signs it in. New accounts always land on
// company creation.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	if err := validate(s.validator, req, "invalid register payload"); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	resp, err := s.issue(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	session := &Session{UserID: user.ID, Email: user.Email, Name: user.Name}
	resp.Next = access.FirstScreen(session.Signals())
	s.audit.record(ctx, session, models.AuditActionRegister, "auth", user.ID)
	return resp, nil
}

// RefreshToken exchanges a refresh token for a new access token pair.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := validate(s.validator, req, "invalid refresh payload"); err != nil {
		return nil, err
	}

	storedToken, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch refresh token")
	}
	if !storedToken.Active(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, storedToken.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	if err := s.repo.RevokeRefreshToken(ctx, storedToken.ID, s.now()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}

	issued, err := s.issue(ctx, user, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}
	return &models.RefreshTokenResponse{
		AccessToken:  issued.AccessToken,
		RefreshToken: issued.RefreshToken,
		ExpiresIn:    issued.ExpiresIn,
		IssuedAt:     issued.IssuedAt,
	}, nil
}

// Logout revokes the named refresh token, or every token of the user when
// none is given, and drops the company's cached collections. It returns the
// screen an anonymous session lands on.
func (s *AuthService) Logout(ctx context.Context, session *Session, req models.LogoutRequest) (string, error) {
	if session == nil || session.UserID == "" {
		return "", appErrors.ErrUnauthorized
	}
	now := s.now()
	if token := strings.TrimSpace(req.RefreshToken); token != "" {
		storedToken, err := s.repo.FindRefreshToken(ctx, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
			}
			return "", appErrors.Internal(err, "failed to load refresh token")
		}
		if storedToken.UserID != session.UserID {
			return "", appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
		}
		if err := s.repo.RevokeRefreshToken(ctx, storedToken.ID, now); err != nil {
			return "", appErrors.Internal(err, "failed to revoke refresh token")
		}
	} else if err := s.repo.RevokeUserRefreshTokens(ctx, session.UserID, now); err != nil {
		return "", appErrors.Internal(err, "failed to revoke refresh tokens")
	}

	if s.denylist != nil && session.TokenID != "" {
		if err := s.denylist.Revoke(ctx, session.TokenID, session.TokenExpiresAt); err != nil {
			return "", appErrors.Internal(err, "failed to revoke access token")
		}
	}

	if s.cache != nil {
		s.cache.InvalidateCompany(ctx, session.CompanyID())
	}
	s.audit.record(ctx, session, models.AuditActionLogout, "auth", session.UserID)
	return access.FirstScreen(access.Signals{}), nil
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "user no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	info := user.Info()
	return &info, nil
}

// ValidateToken parses and validates an access token returning the claims.
// Tokens revoked by Logout are rejected.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			// An unreachable denylist must not lock every user out.
			s.logger.Warn("token denylist lookup failed", zap.String("jti", claims.ID), zap.Error(err))
		} else if revoked {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token has been revoked")
		}
	}
	return claims, nil
}

func (s *AuthService) sessionFor(ctx context.Context, user *models.User) (*Session, error) {
	session := &Session{UserID: user.ID, Email: user.Email, Name: user.Name}
	if s.companies == nil {
		return session, nil
	}
	company, err := s.companies.FindByUserID(ctx, user.ID)
	switch {
	case err == nil:
		session.Company = company
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Internal(err, "failed to load company")
	}
	return session, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, ip, userAgent string) (*models.LoginResponse, error) {
	accessToken, _, err := s.generateAccessToken(user)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}

	refreshTokenValue, err := s.generateRefreshTokenString()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create refresh token")
	}

	now := s.now()
	refreshToken := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     refreshTokenValue,
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, refreshToken); err != nil {
		return nil, appErrors.Internal(err, "failed to persist refresh token")
	}

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     now,
		User:         user.Info(),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, time.Time, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *AuthService) generateRefreshTokenString() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
