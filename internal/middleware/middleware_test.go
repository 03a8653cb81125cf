package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-api/internal/access"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/service"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(ctx context.Context, token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type stubResolver struct {
	session *service.Session
	err     error
}

func (s stubResolver) Resolve(ctx context.Context, claims *models.JWTClaims) (*service.Session, error) {
	return s.session, s.err
}

type envelope struct {
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func gatedRouter(session *service.Session, route string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1"}}, stubResolver{session: session}))
	r.GET("/resource", Gate(route), func(c *gin.Context) {
		c.String(http.StatusOK, SessionFromContext(c).UserID)
	})
	return r
}

func serve(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/resource", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := gatedRouter(&service.Session{UserID: "u1"}, access.RouteDashboard)

	for _, token := range []string{"", "bad"} {
		rec := serve(r, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		env := decode(t, rec)
		require.NotNil(t, env.Error)
		assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)
		assert.Equal(t, access.RouteLogin, env.Meta["redirect"])
	}
}

func TestJWTPropagatesResolverFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1"}}, stubResolver{err: appErrors.Internal(errors.New("db down"), "failed to load company")}))
	r.GET("/resource", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := serve(r, "good")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGateMapsRedirectsToErrors(t *testing.T) {
	company := &models.Company{ID: "c1"}
	subscribed := &models.Company{ID: "c1", IsSubscribed: true}

	cases := []struct {
		name     string
		session  *service.Session
		route    string
		status   int
		code     string
		redirect string
	}{
		{"no company", &service.Session{UserID: "u1"}, access.RouteDashboard, http.StatusForbidden, "NO_COMPANY", access.RouteCreateCompany},
		{"not subscribed", &service.Session{UserID: "u1", Company: company}, access.RouteCertificates, http.StatusPaymentRequired, "SUBSCRIPTION_REQUIRED", access.RouteSubscription},
		{"subscribed", &service.Session{UserID: "u1", Company: subscribed}, access.RouteDashboard, http.StatusOK, "", ""},
		{"onboarding api after subscription", &service.Session{UserID: "u1", Company: subscribed}, access.RouteCreateCompany, http.StatusOK, "", ""},
		{"subscription screen before paying", &service.Session{UserID: "u1", Company: company}, access.RouteSubscription, http.StatusOK, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(gatedRouter(tc.session, tc.route), "good")
			assert.Equal(t, tc.status, rec.Code)
			if tc.code == "" {
				assert.Equal(t, "u1", rec.Body.String())
				return
			}
			env := decode(t, rec)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
			assert.Equal(t, tc.redirect, env.Meta["redirect"])
		})
	}
}

func TestOptionalJWTAllowsAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalJWT(stubValidator{claims: &models.JWTClaims{UserID: "u1"}}, stubResolver{session: &service.Session{UserID: "u1"}}))
	r.GET("/resource", func(c *gin.Context) {
		if SessionFromContext(c) == nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, "u1")
	})

	assert.Equal(t, "anonymous", serve(r, "").Body.String())
	assert.Equal(t, "anonymous", serve(r, "bad").Body.String())
	assert.Equal(t, "u1", serve(r, "good").Body.String())
}

type auditSink struct {
	entries []*models.AuditLog
}

func (a *auditSink) Create(ctx context.Context, log *models.AuditLog) error {
	a.entries = append(a.entries, log)
	return nil
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &auditSink{}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextSessionKey, &service.Session{UserID: "u1", Company: &models.Company{ID: "c1"}})
	})
	r.POST("/reports/:id", Audit(sink, models.AuditActionCreate, "report"), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	r.POST("/broken", Audit(sink, models.AuditActionCreate, "report"), func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/reports/r1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/broken", nil))

	require.Len(t, sink.entries, 1)
	entry := sink.entries[0]
	assert.Equal(t, "report", entry.Resource)
	assert.Equal(t, "u1", *entry.UserID)
	assert.Equal(t, "c1", *entry.CompanyID)
	assert.Equal(t, "r1", *entry.ResourceID)
}

type requestRecorder struct {
	paths    []string
	statuses []int
}

func (r *requestRecorder) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.paths = append(r.paths, method+" "+path)
	r.statuses = append(r.statuses, status)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &requestRecorder{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/certificates/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/certificates/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, []string{"GET /certificates/:id", "GET unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNotFound}, observer.statuses)
}

func TestResponseMetaCarriesCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/dashboard", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, true, meta["cache_hit"])
}

func TestExtractMetaIsNilWhenNothingSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	meta := map[string]interface{}{"sentinel": true}
	r.GET("/certificates", func(c *gin.Context) {
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/certificates", nil))
	assert.Nil(t, meta)
}
