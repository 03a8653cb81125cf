package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/export"
)

type eventStore interface {
	List(ctx context.Context, companyID string, filter models.EventFilter) ([]models.EventInformation, error)
	Get(ctx context.Context, companyID, id string) (*models.EventInformation, error)
	Create(ctx context.Context, event *models.EventInformation) error
	Update(ctx context.Context, event *models.EventInformation) error
	Delete(ctx context.Context, companyID, id string) error
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// EventPDF is a rendered incident report.
type EventPDF struct {
	Filename string
	Content  []byte
}

// EventService manages incident reports.
type EventService struct {
	repo     eventStore
	renderer documentRenderer
	artifactDeps
}

// NewEventService constructs the service.
func NewEventService(repo eventStore, renderer documentRenderer, files artifactFiles, cache companyCacheInvalidator, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *EventService {
	if renderer == nil {
		renderer = export.NewDocumentRenderer()
	}
	return &EventService{repo: repo, renderer: renderer, artifactDeps: newArtifactDeps(files, cache, audit, validate, logger)}
}

// List returns the company's events, newest first, optionally within a date range.
func (s *EventService) List(ctx context.Context, session *Session, filter models.EventFilter) ([]models.EventInformation, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	events, err := s.repo.List(ctx, company.ID, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list events")
	}
	return events, nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, session *Session, id string) (*models.EventInformation, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	event, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return nil, storeError(err, "event", "load")
	}
	return event, nil
}

// Create stores a new event and commits its evidence files.
func (s *EventService) Create(ctx context.Context, session *Session, req dto.EventRequest) (*models.EventInformation, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	event, err := s.build(req)
	if err != nil {
		return nil, err
	}
	event.CompanyID = company.ID
	err = s.persist(ctx, company.ID, FolderEvents, nil, evidenceSlots(event), func() error {
		return s.repo.Create(ctx, event)
	})
	if err != nil {
		return nil, storeError(err, "event", "create")
	}
	s.audit.record(ctx, session, models.AuditActionCreate, "event", event.ID)
	return event, nil
}

// Update replaces an event; evidence no longer referenced is removed.
func (s *EventService) Update(ctx context.Context, session *Session, id string, req dto.EventRequest) (*models.EventInformation, error) {
	company, err := session.requireCompany()
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return nil, storeError(err, "event", "load")
	}
	event, err := s.build(req)
	if err != nil {
		return nil, err
	}
	event.ID = existing.ID
	event.CompanyID = company.ID
	event.CreatedAt = existing.CreatedAt
	err = s.persist(ctx, company.ID, FolderEvents, existing.PhysicalEvidence, evidenceSlots(event), func() error {
		return s.repo.Update(ctx, event)
	})
	if err != nil {
		return nil, storeError(err, "event", "update")
	}
	s.files.DiscardReplaced(ctx, existing.PhysicalEvidence, event.PhysicalEvidence)
	s.audit.record(ctx, session, models.AuditActionUpdate, "event", event.ID)
	return event, nil
}

// Delete removes an event and its evidence files.
func (s *EventService) Delete(ctx context.Context, session *Session, id string) error {
	company, err := session.requireCompany()
	if err != nil {
		return err
	}
	existing, err := s.repo.Get(ctx, company.ID, id)
	if err != nil {
		return storeError(err, "event", "load")
	}
	if err := s.repo.Delete(ctx, company.ID, id); err != nil {
		return storeError(err, "event", "delete")
	}
	s.files.Discard(ctx, existing.PhysicalEvidence.Keys()...)
	s.audit.record(ctx, session, models.AuditActionDelete, "event", id)
	return nil
}

// PDF renders the event as a printable report.
func (s *EventService) PDF(ctx context.Context, session *Session, id string) (*EventPDF, error) {
	event, err := s.Get(ctx, session, id)
	if err != nil {
		return nil, err
	}
	content, err := s.renderer.Render(eventDocument(session.Company, event))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render event report")
	}
	return &EventPDF{
		Filename: fmt.Sprintf("evento_%s.pdf", event.Date),
		Content:  content,
	}, nil
}

func (s *EventService) build(req dto.EventRequest) (*models.EventInformation, error) {
	if err := validate(s.validator, req, "invalid event payload"); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date is required")
	}
	evidence := make(models.FileRefs, 0, len(req.PhysicalEvidence))
	for _, ref := range req.PhysicalEvidence {
		if ref = ref.Normalize(); !ref.IsUnset() {
			evidence = append(evidence, ref)
		}
	}
	return &models.EventInformation{
		Date:              req.Date,
		Time:              req.Time,
		Description:       strings.TrimSpace(req.Description),
		CorrectiveActions: strings.TrimSpace(req.CorrectiveActions),
		Testimonials:      nonBlank(req.Testimonials),
		Observations:      nonBlank(req.Observations),
		FinalChecks:       req.FinalChecks,
		PhysicalEvidence:  evidence,
	}, nil
}

func evidenceSlots(event *models.EventInformation) []*models.FileRef {
	refs := make([]*models.FileRef, len(event.PhysicalEvidence))
	for i := range event.PhysicalEvidence {
		refs[i] = &event.PhysicalEvidence[i]
	}
	return refs
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func eventDocument(company *models.Company, event *models.EventInformation) export.Document {
	doc := export.Document{
		Title:    "Información del Evento",
		Subtitle: company.Name,
		Fields: []export.Field{
			{Label: "Fecha", Value: event.Date.String()},
			{Label: "Horario", Value: event.Time},
			{Label: "Dirección", Value: company.Address},
		},
		Sections: []export.Section{
			{Heading: "Descripción del evento", Text: event.Description},
			{Heading: "Acciones correctivas", Text: event.CorrectiveActions},
			{Heading: "Testimonios", Bullets: event.Testimonials},
			{Heading: "Observaciones", Bullets: event.Observations},
		},
		Footer: company.Name,
	}
	for _, item := range event.FinalChecks.Items() {
		doc.Checks = append(doc.Checks, export.Check{Label: item.Label, Checked: item.Checked})
	}
	if names := evidenceNames(event.PhysicalEvidence); len(names) > 0 {
		doc.Sections = append(doc.Sections, export.Section{Heading: "Evidencia física", Bullets: names})
	}
	return doc
}

func evidenceNames(refs models.FileRefs) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref.Name != "" {
			names = append(names, ref.Name)
		}
	}
	return names
}
