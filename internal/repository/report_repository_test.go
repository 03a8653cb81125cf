package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/compliance-api/internal/models"
)

var reportRowColumns = []string{"id", "type", "params", "status", "progress", "result_url", "created_by", "company_id", "created_at", "finished_at", "error_message"}

func TestReportRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WithArgs(sqlmock.AnyArg(), "expirations", sqlmock.AnyArg(), "QUEUED", 0, nil, "user-1", "c1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{
		Type:      models.ReportTypeExpirations,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV, Statuses: []string{"EXPIRED"}},
		CreatedBy: "user-1",
		CompanyID: "c1",
	}
	require.NoError(t, repo.Create(context.Background(), job))

	rows := sqlmock.NewRows(reportRowColumns).
		AddRow(job.ID, "expirations", `{"format":"csv","statuses":["EXPIRED"]}`, "QUEUED", 0, nil, "user-1", "c1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE company_id = $1 AND id = $2")).
		WithArgs("c1", job.ID).
		WillReturnRows(rows)

	fetched, err := repo.GetByID(context.Background(), "c1", job.ID)
	require.NoError(t, err)
	require.Equal(t, job.ID, fetched.ID)
	require.Equal(t, []string{"EXPIRED"}, fetched.Params.Statuses)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetOtherCompany(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE company_id = $1 AND id = $2")).
		WithArgs("c2", "job-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "c2", "job-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestReportRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	now := time.Now()
	status := models.ReportStatusFinished
	progress := 100
	result := "/api/v1/files/download?token=abc"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET finished_at = $1, progress = $2, result_url = $3, status = $4 WHERE id = $5")).
		WithArgs(now, progress, result, status, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  &result,
		FinishedAt: &now,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReportRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE status = $1 ORDER BY created_at ASC LIMIT 20")).
		WithArgs("QUEUED").
		WillReturnRows(sqlmock.NewRows(reportRowColumns).
			AddRow("job-1", "expirations", `{"format":"pdf"}`, "QUEUED", 0, nil, "u1", "c1", time.Now(), nil, nil))

	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, models.ReportFormatPDF, jobs[0].Params.Format)
}
