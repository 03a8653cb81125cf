package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/internal/dto"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/internal/repository"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, companyID, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok || (companyID != "" && job.CompanyID != companyID) {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var queued []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	var finished []models.ReportJob
	for _, job := range r.jobs {
		if job.Status == models.ReportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			finished = append(finished, *job)
		}
	}
	return finished, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newReportServiceForTest(t *testing.T) (*ReportService, *reportRepoStub, *queueStub, exportFixture) {
	t.Helper()
	repo := newReportRepoStub()
	queue := &queueStub{}
	fixture := newExportServiceForTest(t)
	service := NewReportService(repo, queue, fixture.svc, nil, zap.NewNop(), ReportServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
	})
	return service, repo, queue, fixture
}

func TestReportServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	resp, err := svc.CreateJob(context.Background(), testSession("c1"), dto.ReportRequest{
		Format:   models.ReportFormatCSV,
		Statuses: []string{"EXPIRED", "DUE_SOON"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ReportStatusQueued, resp.Status)
	require.Contains(t, repo.jobs, resp.ID)
	assert.Equal(t, models.ReportTypeExpirations, repo.jobs[resp.ID].Type)
	assert.Equal(t, "c1", repo.jobs[resp.ID].CompanyID)
}

func TestReportServiceCreateJobValidation(t *testing.T) {
	svc, _, queue, _ := newReportServiceForTest(t)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, testSession("c1"), dto.ReportRequest{Format: "xlsx"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = svc.CreateJob(ctx, testSession("c1"), dto.ReportRequest{Format: models.ReportFormatCSV, Statuses: []string{"LATE"}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	_, err = svc.CreateJob(ctx, testSession("c1"), dto.ReportRequest{Type: "attendance", Format: models.ReportFormatCSV})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.Empty(t, queue.jobs)
}

func TestReportServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	queue.err = jobs.ErrQueueNotRunning

	_, err := svc.CreateJob(context.Background(), testSession("c1"), dto.ReportRequest{Format: models.ReportFormatPDF})
	require.Error(t, err)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ReportStatusFailed, job.Status)
	}
}

func TestReportServiceGetStatusScopedToCompany(t *testing.T) {
	svc, repo, _, _ := newReportServiceForTest(t)
	msg := "boom"
	repo.jobs["job-1"] = &models.ReportJob{
		ID:           "job-1",
		Type:         models.ReportTypeExpirations,
		Status:       models.ReportStatusFailed,
		Progress:     100,
		CompanyID:    "c1",
		ErrorMessage: &msg,
	}

	resp, err := svc.GetStatus(context.Background(), testSession("c1"), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "boom", *resp.Error)

	_, err = svc.GetStatus(context.Background(), testSession("c2"), "job-1")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestReportServiceResolveDownload(t *testing.T) {
	svc, repo, _, fixture := newReportServiceForTest(t)
	job := expirationJob("job-download", models.ReportFormatCSV)
	job.Status = models.ReportStatusFinished
	repo.jobs[job.ID] = job

	result, err := fixture.svc.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	assert.Equal(t, models.ReportFormatCSV, download.Format)
	download.File.Close()

	_, err = svc.ResolveDownload(context.Background(), "garbage")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}

func TestReportServiceCleanupRemovesExpiredExports(t *testing.T) {
	svc, repo, _, fixture := newReportServiceForTest(t)
	job := expirationJob("job-old", models.ReportFormatCSV)
	repo.jobs[job.ID] = job
	result, err := fixture.svc.Generate(context.Background(), job)
	require.NoError(t, err)
	finishedAt := time.Now().Add(-2 * time.Hour)
	job.Status = models.ReportStatusFinished
	job.ResultURL = &result.URL
	job.FinishedAt = &finishedAt

	svc.cleanupExpired(context.Background())
	_, err = fixture.store.Read(result.RelativePath)
	assert.Error(t, err)
}

func TestReportServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newReportServiceForTest(t)
	repo.jobs["queued"] = &models.ReportJob{ID: "queued", Type: models.ReportTypeExpirations, Status: models.ReportStatusQueued}
	repo.jobs["done"] = &models.ReportJob{ID: "done", Type: models.ReportTypeExpirations, Status: models.ReportStatusFinished}

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "queued", queue.jobs[0].ID)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

type reportStatusCounter struct {
	statuses []string
}

func (r *reportStatusCounter) RecordReportJob(status string) {
	r.statuses = append(r.statuses, status)
}

func TestReportWorkerHandleSuccess(t *testing.T) {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = expirationJob("job-1", models.ReportFormatCSV)
	metrics := &reportStatusCounter{}
	exporter := exportStub{result: &ExportResult{URL: "/api/v1/reports/download/token"}}
	worker := NewReportWorker(repo, exporter, metrics, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, repo.jobs["job-1"].Status)
	assert.Equal(t, 100, repo.jobs["job-1"].Progress)
	assert.Equal(t, "/api/v1/reports/download/token", *repo.jobs["job-1"].ResultURL)
	assert.Equal(t, []string{"FINISHED"}, metrics.statuses)
}

func TestReportWorkerHandleFailureRetries(t *testing.T) {
	repo := newReportRepoStub()
	repo.jobs["job-1"] = expirationJob("job-1", models.ReportFormatCSV)
	metrics := &reportStatusCounter{}
	worker := NewReportWorker(repo, exportStub{err: errors.New("boom")}, metrics, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusQueued, repo.jobs["job-1"].Status)
	assert.Empty(t, metrics.statuses)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	assert.Equal(t, models.ReportStatusFailed, repo.jobs["job-1"].Status)
	assert.Equal(t, []string{"FAILED"}, metrics.statuses)
}
