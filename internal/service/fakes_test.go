package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
)

type recordingInvalidator struct {
	mu        sync.Mutex
	companies []string
}

func (r *recordingInvalidator) InvalidateCompany(ctx context.Context, companyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies = append(r.companies, companyID)
}

func (r *recordingInvalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.companies)
}

type mockAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (m *mockAuditRepo) Create(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, log)
	return m.err
}

func (m *mockAuditRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action+":"+e.Resource)
	}
	return out
}

type mockCompanyStore struct {
	company    *models.Company
	employees  []models.Employee
	findErr    error
	createErr    error
	subscribed   string
	subscribedAt time.Time
}

func (m *mockCompanyStore) Create(ctx context.Context, company *models.Company) error {
	if m.createErr != nil {
		return m.createErr
	}
	company.ID = "company-1"
	for i := range company.Employees {
		company.Employees[i].ID = uuid.NewString()
		company.Employees[i].CompanyID = company.ID
		company.Employees[i].Position = i
	}
	m.company = company
	m.employees = append([]models.Employee(nil), company.Employees...)
	return nil
}

func (m *mockCompanyStore) FindByUserID(ctx context.Context, userID string) (*models.Company, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.company == nil || m.company.UserID != userID {
		return nil, sql.ErrNoRows
	}
	return m.company, nil
}

func (m *mockCompanyStore) Update(ctx context.Context, company *models.Company) error {
	if m.company == nil || m.company.ID != company.ID {
		return sql.ErrNoRows
	}
	copied := *company
	m.company = &copied
	return nil
}

func (m *mockCompanyStore) Subscribe(ctx context.Context, companyID, plan string, at time.Time) error {
	if m.company == nil || m.company.ID != companyID {
		return sql.ErrNoRows
	}
	m.subscribed = plan
	m.subscribedAt = at
	return nil
}

func (m *mockCompanyStore) ListEmployees(ctx context.Context, companyID string) ([]models.Employee, error) {
	return append([]models.Employee(nil), m.employees...), nil
}

func (m *mockCompanyStore) AddEmployee(ctx context.Context, emp *models.Employee) error {
	emp.ID = uuid.NewString()
	emp.Position = len(m.employees)
	m.employees = append(m.employees, *emp)
	return nil
}

func (m *mockCompanyStore) UpdateEmployee(ctx context.Context, emp *models.Employee) error {
	for i := range m.employees {
		if m.employees[i].ID == emp.ID {
			m.employees[i] = *emp
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockCompanyStore) DeleteEmployee(ctx context.Context, companyID, id string) error {
	for i := range m.employees {
		if m.employees[i].ID == id {
			m.employees = append(m.employees[:i], m.employees[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

// stubArtifactFiles commits pending refs to "<company>/<folder>/<handle>.pdf".
type stubArtifactFiles struct {
	mu        sync.Mutex
	commitErr error
	committed []string
	discarded []string
}

func (s *stubArtifactFiles) CommitAll(ctx context.Context, companyID, folder string, attached []models.FileRef, refs ...*models.FileRef) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return nil, s.commitErr
	}
	onRecord := map[string]bool{}
	for _, ref := range attached {
		onRecord[ref.Key] = true
	}
	var created []string
	for _, ref := range refs {
		if ref.IsStored() && !onRecord[ref.Key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file is not attached to this record")
		}
		if !ref.IsPending() {
			continue
		}
		key := companyID + "/" + folder + "/" + ref.Handle + ".pdf"
		*ref = models.StoredFile(key, ref.Handle+".pdf", "application/pdf", 10)
		created = append(created, key)
	}
	s.committed = append(s.committed, created...)
	return created, nil
}

func (s *stubArtifactFiles) Discard(ctx context.Context, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append(s.discarded, keys...)
}

func (s *stubArtifactFiles) DiscardReplaced(ctx context.Context, before, after []models.FileRef) {
	kept := map[string]bool{}
	for _, ref := range after {
		kept[ref.Key] = true
	}
	var gone []string
	for _, key := range models.FileRefs(before).Keys() {
		if !kept[key] {
			gone = append(gone, key)
		}
	}
	s.Discard(ctx, gone...)
}

func (s *stubArtifactFiles) discardedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.discarded...)
}

type memCertificateStore struct {
	items   map[string]models.ConservationCertificate
	order   []string
	saveErr error
	listErr error
}

func newMemCertificateStore() *memCertificateStore {
	return &memCertificateStore{items: map[string]models.ConservationCertificate{}}
}

func (m *memCertificateStore) List(ctx context.Context, companyID string) ([]models.ConservationCertificate, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.ConservationCertificate
	for _, id := range m.order {
		if cert, ok := m.items[id]; ok && cert.CompanyID == companyID {
			out = append(out, cert)
		}
	}
	return out, nil
}

func (m *memCertificateStore) Get(ctx context.Context, companyID, id string) (*models.ConservationCertificate, error) {
	cert, ok := m.items[id]
	if !ok || cert.CompanyID != companyID {
		return nil, sql.ErrNoRows
	}
	return &cert, nil
}

func (m *memCertificateStore) Create(ctx context.Context, cert *models.ConservationCertificate) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	cert.ID = uuid.NewString()
	m.items[cert.ID] = *cert
	m.order = append(m.order, cert.ID)
	return nil
}

func (m *memCertificateStore) Update(ctx context.Context, cert *models.ConservationCertificate) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.items[cert.ID] = *cert
	return nil
}

func (m *memCertificateStore) Delete(ctx context.Context, companyID, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type memSelfProtectionStore struct {
	items   map[string]models.SelfProtectionSystem
	listErr error
}

func newMemSelfProtectionStore() *memSelfProtectionStore {
	return &memSelfProtectionStore{items: map[string]models.SelfProtectionSystem{}}
}

func (m *memSelfProtectionStore) List(ctx context.Context, companyID string) ([]models.SelfProtectionSystem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.SelfProtectionSystem
	for _, sys := range m.items {
		if sys.CompanyID == companyID {
			out = append(out, sys)
		}
	}
	return out, nil
}

func (m *memSelfProtectionStore) Get(ctx context.Context, companyID, id string) (*models.SelfProtectionSystem, error) {
	sys, ok := m.items[id]
	if !ok || sys.CompanyID != companyID {
		return nil, sql.ErrNoRows
	}
	return &sys, nil
}

func (m *memSelfProtectionStore) Create(ctx context.Context, sys *models.SelfProtectionSystem) error {
	sys.ID = uuid.NewString()
	m.items[sys.ID] = *sys
	return nil
}

func (m *memSelfProtectionStore) Update(ctx context.Context, sys *models.SelfProtectionSystem) error {
	m.items[sys.ID] = *sys
	return nil
}

func (m *memSelfProtectionStore) Delete(ctx context.Context, companyID, id string) error {
	delete(m.items, id)
	return nil
}

type memQRStore struct {
	items   map[string]models.QRDocument
	listErr error
}

func newMemQRStore() *memQRStore {
	return &memQRStore{items: map[string]models.QRDocument{}}
}

func (m *memQRStore) List(ctx context.Context, companyID string, filter models.QRDocumentFilter) ([]models.QRDocument, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.QRDocument
	for _, doc := range m.items {
		if doc.CompanyID == companyID && (filter.Type == nil || doc.Type == *filter.Type) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memQRStore) Get(ctx context.Context, companyID, id string) (*models.QRDocument, error) {
	doc, ok := m.items[id]
	if !ok || doc.CompanyID != companyID {
		return nil, sql.ErrNoRows
	}
	return &doc, nil
}

func (m *memQRStore) Create(ctx context.Context, doc *models.QRDocument) error {
	doc.ID = uuid.NewString()
	m.items[doc.ID] = *doc
	return nil
}

func (m *memQRStore) ConfirmDate(ctx context.Context, companyID, id string, date civil.Date) error {
	doc, ok := m.items[id]
	if !ok || doc.CompanyID != companyID {
		return sql.ErrNoRows
	}
	doc.ExtractedDate = date
	doc.DateConfirmed = true
	m.items[id] = doc
	return nil
}

func (m *memQRStore) Delete(ctx context.Context, companyID, id string) error {
	delete(m.items, id)
	return nil
}

type memEventStore struct {
	items map[string]models.EventInformation
}

func newMemEventStore() *memEventStore {
	return &memEventStore{items: map[string]models.EventInformation{}}
}

func (m *memEventStore) List(ctx context.Context, companyID string, filter models.EventFilter) ([]models.EventInformation, error) {
	var out []models.EventInformation
	for _, ev := range m.items {
		if ev.CompanyID == companyID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memEventStore) Get(ctx context.Context, companyID, id string) (*models.EventInformation, error) {
	ev, ok := m.items[id]
	if !ok || ev.CompanyID != companyID {
		return nil, sql.ErrNoRows
	}
	return &ev, nil
}

func (m *memEventStore) Create(ctx context.Context, ev *models.EventInformation) error {
	ev.ID = uuid.NewString()
	m.items[ev.ID] = *ev
	return nil
}

func (m *memEventStore) Update(ctx context.Context, ev *models.EventInformation) error {
	m.items[ev.ID] = *ev
	return nil
}

func (m *memEventStore) Delete(ctx context.Context, companyID, id string) error {
	delete(m.items, id)
	return nil
}
