package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-api/internal/compliance"
	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

type dashboardGauge struct {
	last map[string]int
}

func (d *dashboardGauge) ObserveDashboard(byStatus map[string]int) {
	d.last = byStatus
}

type dashboardFixture struct {
	svc     *DashboardService
	certs   *memCertificateStore
	systems *memSelfProtectionStore
	docs    *memQRStore
	cache   *memoryCache
	gauge   *dashboardGauge
}

func newDashboardFixture(today string) dashboardFixture {
	f := dashboardFixture{
		certs:   newMemCertificateStore(),
		systems: newMemSelfProtectionStore(),
		docs:    newMemQRStore(),
		cache:   newMemoryCache(),
		gauge:   &dashboardGauge{},
	}
	f.svc = NewDashboardService(DashboardServiceParams{
		Certificates:    f.certs,
		SelfProtections: f.systems,
		QRDocuments:     f.docs,
		Cache:           f.cache,
		Metrics:         f.gauge,
		Clock:           FixedClock(civil.MustParse(today)),
		Config:          DashboardServiceConfig{DueSoonDays: 30},
	})
	return f
}

func (f dashboardFixture) seed() {
	ctx := context.Background()
	_ = f.certs.Create(ctx, &models.ConservationCertificate{CompanyID: "c1", Intervener: "Vencido", ExpirationDate: civil.MustParse("2025-05-01")})
	_ = f.certs.Create(ctx, &models.ConservationCertificate{CompanyID: "c1", Intervener: "Vigente", ExpirationDate: civil.MustParse("2026-05-01")})
	_ = f.systems.Create(ctx, &models.SelfProtectionSystem{CompanyID: "c1"})
	_ = f.docs.Create(ctx, &models.QRDocument{CompanyID: "c1", Type: models.QRElevators, ExtractedDate: civil.MustParse("2024-06-20")})
}

func TestDashboardServiceComposesOrderedView(t *testing.T) {
	f := newDashboardFixture("2025-06-01")
	f.seed()

	resp, hit, err := f.svc.Dashboard(context.Background(), testSession("c1"), dto.DashboardQuery{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2025-06-01", resp.Today.String())
	require.Len(t, resp.Items, 4)

	assert.Equal(t, "Cert. Vencido", resp.Items[0].DisplayName)
	assert.Equal(t, compliance.StatusExpired, resp.Items[0].Status)
	assert.Equal(t, "Doc. Ascensores", resp.Items[1].DisplayName)
	assert.Equal(t, compliance.StatusDueSoon, resp.Items[1].Status)
	assert.True(t, resp.Items[1].Provisional)
	assert.Equal(t, "Cert. Vigente", resp.Items[2].DisplayName)
	assert.Equal(t, compliance.StatusUnknown, resp.Items[3].Status)

	assert.Equal(t, 4, resp.Summary.Total)
	assert.Equal(t, 1, f.gauge.last["EXPIRED"])
	assert.Equal(t, 1, f.gauge.last["UNKNOWN"])
}

func TestDashboardServiceCachesAndFilters(t *testing.T) {
	f := newDashboardFixture("2025-06-01")
	f.seed()
	ctx := context.Background()

	_, _, err := f.svc.Dashboard(ctx, testSession("c1"), dto.DashboardQuery{})
	require.NoError(t, err)
	assert.Contains(t, f.cache.entries, DashboardCacheKey("c1", civil.MustParse("2025-06-01")))

	f.certs.listErr = errors.New("should not be queried")
	resp, hit, err := f.svc.Dashboard(ctx, testSession("c1"), dto.DashboardQuery{Statuses: []compliance.Status{compliance.StatusExpired}})
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Cert. Vencido", resp.Items[0].DisplayName)
	assert.Equal(t, 4, resp.Summary.Total)
}

func TestDashboardServiceCacheFailureFallsBack(t *testing.T) {
	f := newDashboardFixture("2025-06-01")
	f.seed()
	f.cache.getErr = errors.New("redis down")

	resp, hit, err := f.svc.Dashboard(context.Background(), testSession("c1"), dto.DashboardQuery{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Len(t, resp.Items, 4)
}

func TestDashboardServiceFailsWholeRequestOnSourceError(t *testing.T) {
	f := newDashboardFixture("2025-06-01")
	f.seed()
	f.docs.listErr = errors.New("timeout")

	resp, _, err := f.svc.Dashboard(context.Background(), testSession("c1"), dto.DashboardQuery{})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
	assert.Empty(t, f.cache.entries)
}

func TestDashboardServiceRequiresCompany(t *testing.T) {
	f := newDashboardFixture("2025-06-01")

	_, _, err := f.svc.Dashboard(context.Background(), nil, dto.DashboardQuery{})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
	_, _, err = f.svc.Dashboard(context.Background(), &Session{UserID: "u"}, dto.DashboardQuery{})
	assert.ErrorIs(t, err, appErrors.ErrNoCompany)
}

func TestDashboardServiceSelfProtectionLifecycle(t *testing.T) {
	f := newDashboardFixture("2025-06-10")
	ctx := context.Background()
	systems := NewSelfProtectionService(f.systems, &stubArtifactFiles{}, nil, nil, nil, nil)

	sys, err := systems.Create(ctx, testSession("c1"), dto.SelfProtectionRequest{
		ProbatoryDispositionDate: "2023-06-15",
		Intervener:               "Bomberos SA",
		RegistrationNumber:       "SP-7",
	})
	require.NoError(t, err)
	require.NotNil(t, sys.ExtensionDate)
	require.NotNil(t, sys.ExpirationDate)
	assert.Equal(t, "2024-06-15", sys.ExtensionDate.String())
	assert.Equal(t, "2025-06-15", sys.ExpirationDate.String())

	resp, _, err := f.svc.Dashboard(ctx, testSession("c1"), dto.DashboardQuery{})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	item := resp.Items[0]
	assert.Equal(t, sys.ID, item.ID)
	assert.Equal(t, compliance.StatusDueSoon, item.Status)
	require.NotNil(t, item.DaysUntil)
	assert.Equal(t, 5, *item.DaysUntil)
	assert.Equal(t, "2025-06-15", item.ExpirationDate.String())
}
