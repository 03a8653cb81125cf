package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/compliance-api/internal/models"
)

var eventColumns = []string{"id", "company_id", "date", "time", "description", "corrective_actions", "testimonials", "observations", "final_checks", "physical_evidence", "created_at", "updated_at"}

// EventRepository persists incident reports.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events of a company ordered by date, narrowed to an inclusive range.
func (r *EventRepository) List(ctx context.Context, companyID string, filter models.EventFilter) ([]models.EventInformation, error) {
	query := psql.Select(eventColumns...).
		From("events").
		Where(squirrel.Eq{"company_id": companyID}).
		OrderBy("date DESC", "time DESC", "created_at DESC")
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"date": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.LtOrEq{"date": *filter.To})
	}

	events := make([]models.EventInformation, 0)
	if err := selectInto(ctx, r.db, &events, query, "list events"); err != nil {
		return nil, err
	}
	return events, nil
}

// Get returns an event scoped to the company.
func (r *EventRepository) Get(ctx context.Context, companyID, id string) (*models.EventInformation, error) {
	stmt, args, err := psql.Select(eventColumns...).
		From("events").
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get event query: %w", err)
	}
	var event models.EventInformation
	if err := r.db.GetContext(ctx, &event, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &event, nil
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, event *models.EventInformation) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	stmt, args, err := psql.Insert("events").
		Columns(eventColumns...).
		Values(event.ID, event.CompanyID, event.Date, event.Time, event.Description, event.CorrectiveActions,
			event.Testimonials, event.Observations, event.FinalChecks, event.PhysicalEvidence, event.CreatedAt, event.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build create event query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update replaces every mutable field of the event.
func (r *EventRepository) Update(ctx context.Context, event *models.EventInformation) error {
	event.UpdatedAt = time.Now().UTC()
	stmt, args, err := psql.Update("events").
		SetMap(map[string]interface{}{
			"date":               event.Date,
			"time":               event.Time,
			"description":        event.Description,
			"corrective_actions": event.CorrectiveActions,
			"testimonials":       event.Testimonials,
			"observations":       event.Observations,
			"final_checks":       event.FinalChecks,
			"physical_evidence":  event.PhysicalEvidence,
			"updated_at":         event.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": event.ID, "company_id": event.CompanyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update event query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return expectAffected(res, "update event")
}

// Delete removes an event.
func (r *EventRepository) Delete(ctx context.Context, companyID, id string) error {
	stmt, args, err := psql.Delete("events").
		Where(squirrel.Eq{"id": id, "company_id": companyID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete event query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectAffected(res, "delete event")
}
