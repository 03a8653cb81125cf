package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/compliance-api/internal/compliance"
	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type certificateLister interface {
	List(ctx context.Context, companyID string) ([]models.ConservationCertificate, error)
}

type selfProtectionLister interface {
	List(ctx context.Context, companyID string) ([]models.SelfProtectionSystem, error)
}

type qrDocumentLister interface {
	List(ctx context.Context, companyID string, filter models.QRDocumentFilter) ([]models.QRDocument, error)
}

type dashboardCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type dashboardObserver interface {
	ObserveDashboard(byStatus map[string]int)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	DueSoonDays int
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Certificates    certificateLister
	SelfProtections selfProtectionLister
	QRDocuments     qrDocumentLister
	Cache           dashboardCache
	Metrics         dashboardObserver
	Clock           Clock
	Logger          *zap.Logger
	Config          DashboardServiceConfig
}

// DashboardService composes the prioritized expiration view of a company.
type DashboardService struct {
	certs      certificateLister
	systems    selfProtectionLister
	docs       qrDocumentLister
	cache      dashboardCache
	metrics    dashboardObserver
	clock      Clock
	logger     *zap.Logger
	cfg        DashboardServiceConfig
	aggregator compliance.Aggregator
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.DueSoonDays <= 0 {
		cfg.DueSoonDays = 30
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		certs:      params.Certificates,
		systems:    params.SelfProtections,
		docs:       params.QRDocuments,
		cache:      params.Cache,
		metrics:    params.Metrics,
		clock:      params.Clock,
		logger:     logger,
		cfg:        cfg,
		aggregator: compliance.NewAggregator(compliance.NewClassifier(cfg.DueSoonDays)),
	}
}

// Dashboard returns the company's expirable items ordered by urgency and
// reports whether the response came from cache. The summary always covers
// every item; the status filter narrows Items only.
func (s *DashboardService) Dashboard(ctx context.Context, session *Session, query dto.DashboardQuery) (*dto.DashboardResponse, bool, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, false, err
	}
	today := s.clock.Today()
	key := DashboardCacheKey(company.ID, today)

	view, hit := s.tryCache(ctx, key)
	if !hit {
		view, err = s.compose(ctx, company.ID, today)
		if err != nil {
			return nil, false, err
		}
		s.persistCache(ctx, key, view)
	}
	if len(query.Statuses) > 0 {
		view.Items = compliance.FilterByStatus(view.Items, query.Statuses...)
	}
	return view, hit, nil
}

func (s *DashboardService) compose(ctx context.Context, companyID string, today civil.Date) (*dto.DashboardResponse, error) {
	var (
		certs   []models.ConservationCertificate
		systems []models.SelfProtectionSystem
		docs    []models.QRDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		certs, err = s.certs.List(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		systems, err = s.systems.List(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		docs, err = s.docs.List(gctx, companyID, models.QRDocumentFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard load failed", zap.String("company_id", companyID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to load dashboard")
	}

	items := s.aggregator.Aggregate(certs, systems, docs, today)
	summary := compliance.Summarize(items)
	s.observe(summary)
	return &dto.DashboardResponse{
		Today:       today,
		Items:       items,
		Summary:     summary,
		GeneratedAt: s.clock.Time().UTC(),
	}, nil
}

func (s *DashboardService) observe(summary compliance.Summary) {
	if s.metrics == nil {
		return
	}
	counts := make(map[string]int, len(summary.ByStatus))
	for status, n := range summary.ByStatus {
		counts[string(status)] = n
	}
	s.metrics.ObserveDashboard(counts)
}

// tryCache treats a failing cache as a miss.
func (s *DashboardService) tryCache(ctx context.Context, key string) (*dto.DashboardResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	var cached dto.DashboardResponse
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil || !hit {
		return nil, false
	}
	return &cached, true
}

func (s *DashboardService) persistCache(ctx context.Context, key string, value *dto.DashboardResponse) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	}
}
