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

var reportJobColumns = []string{"id", "type", "params", "status", "progress", "result_url", "created_by", "company_id", "created_at", "finished_at", "error_message"}

// ReportRepository persists report job metadata.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report job row with generated defaults.
func (r *ReportRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ReportStatusQueued
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs (id, type, params, status, progress, result_url, created_by, company_id, created_at, finished_at, error_message)
VALUES (:id, :type, :params, :status, :progress, :result_url, :created_by, :company_id, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier. An empty companyID skips the
// ownership check, which only the worker uses.
func (r *ReportRepository) GetByID(ctx context.Context, companyID, id string) (*models.ReportJob, error) {
	where := squirrel.Eq{"id": id}
	if companyID != "" {
		where["company_id"] = companyID
	}
	stmt, args, err := psql.Select(reportJobColumns...).From("report_jobs").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get report job query: %w", err)
	}
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, stmt, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get report job: %w", err)
	}
	return &job, nil
}

// UpdateReportJobParams defines the mutable fields.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	set := map[string]interface{}{}
	if params.Status != nil {
		set["status"] = *params.Status
	}
	if params.Progress != nil {
		set["progress"] = *params.Progress
	}
	if params.ResultURL != nil {
		set["result_url"] = *params.ResultURL
	}
	if params.ErrorMessage != nil {
		set["error_message"] = *params.ErrorMessage
	}
	if params.FinishedAt != nil {
		set["finished_at"] = *params.FinishedAt
	}
	if len(set) == 0 {
		return nil
	}

	stmt, args, err := psql.Update("report_jobs").SetMap(set).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update report job query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return nil
}

// ListQueued fetches queued jobs (used for cold start recovery).
func (r *ReportRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := psql.Select(reportJobColumns...).
		From("report_jobs").
		Where(squirrel.Eq{"status": models.ReportStatusQueued}).
		OrderBy("created_at ASC").
		Limit(uint64(limit))
	var jobs []models.ReportJob
	if err := selectInto(ctx, r.db, &jobs, query, "list queued report jobs"); err != nil {
		return nil, err
	}
	return jobs, nil
}

// ListFinishedBefore retrieves completed jobs prior to cutoff for cleanup.
func (r *ReportRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := psql.Select(reportJobColumns...).
		From("report_jobs").
		Where(squirrel.Eq{"status": models.ReportStatusFinished}).
		Where(squirrel.NotEq{"finished_at": nil}).
		Where(squirrel.Lt{"finished_at": cutoff}).
		OrderBy("finished_at ASC").
		Limit(uint64(limit))
	var jobs []models.ReportJob
	if err := selectInto(ctx, r.db, &jobs, query, "list finished report jobs"); err != nil {
		return nil, err
	}
	return jobs, nil
}
