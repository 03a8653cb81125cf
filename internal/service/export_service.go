package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/compliance-api/internal/compliance"
	"github.com/noah-isme/compliance-api/internal/models"
	"github.com/noah-isme/compliance-api/pkg/civil"
	"github.com/noah-isme/compliance-api/pkg/export"
	"github.com/noah-isme/compliance-api/pkg/storage"
)

type reportStorage interface {
	Save(key string, data []byte) (string, error)
	Open(key string) (*os.File, error)
	Delete(key string) error
	CleanupOlderThan(prefix string, ttl time.Duration) ([]string, error)
}

type reportSigner interface {
	Generate(owner, key string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (storage.Grant, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix   string
	ResultTTL   time.Duration
	DueSoonDays int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportSources are the collections an expiration report reads.
type ExportSources struct {
	Certificates    certificateLister
	SelfProtections selfProtectionLister
	QRDocuments     qrDocumentLister
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	sources    ExportSources
	storage    reportStorage
	signer     reportSigner
	csv        csvRenderer
	pdf        pdfRenderer
	clock      Clock
	aggregator compliance.Aggregator
	logger     *zap.Logger
	cfg        ExportConfig
}

var expirationHeaders = []string{"Elemento", "Categoría", "Vencimiento", "Días restantes", "Estado", "Fecha provisoria"}

// NewExportService constructs an ExportService.
func NewExportService(sources ExportSources, store reportStorage, signer reportSigner, clock Clock, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sources:    sources,
		storage:    store,
		signer:     signer,
		csv:        csv,
		pdf:        pdf,
		clock:      clock,
		aggregator: compliance.NewAggregator(compliance.NewClassifier(cfg.DueSoonDays)),
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds the dataset for job, stores the rendered export and signs a
// download token bound to the job.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	if job.Type != models.ReportTypeExpirations {
		return nil, fmt.Errorf("unsupported report type %s", job.Type)
	}
	asOf, err := s.asOf(job.Params)
	if err != nil {
		return nil, err
	}
	dataset, err := s.buildExpirationDataset(ctx, job.CompanyID, asOf, job.Params.Statuses)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Reporte de vencimientos", fmt.Sprintf("Al %s", asOf))
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job, asOf), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Grant, error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan("", ttl)
}

func (s *ExportService) asOf(params models.ReportJobParams) (civil.Date, error) {
	if params.AsOf == "" {
		return s.clock.Today(), nil
	}
	date, err := civil.Parse(params.AsOf)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid asOf %q: %w", params.AsOf, err)
	}
	return date, nil
}

func (s *ExportService) buildFilename(job *models.ReportJob, asOf civil.Date) string {
	timestamp := s.clock.Time().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s_%s.%s", job.CompanyID, job.Type, asOf, timestamp, job.Params.Format)
}

func (s *ExportService) buildExpirationDataset(ctx context.Context, companyID string, asOf civil.Date, rawStatuses []string) (export.Dataset, error) {
	var (
		certs   []models.ConservationCertificate
		systems []models.SelfProtectionSystem
		docs    []models.QRDocument
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		certs, err = s.sources.Certificates.List(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		systems, err = s.sources.SelfProtections.List(gctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		docs, err = s.sources.QRDocuments.List(gctx, companyID, models.QRDocumentFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return export.Dataset{}, err
	}

	items := s.aggregator.Aggregate(certs, systems, docs, asOf)
	if statuses := parseStatuses(rawStatuses); len(statuses) > 0 {
		items = compliance.FilterByStatus(items, statuses...)
	}
	rows := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]string{
			"Elemento":         item.DisplayName,
			"Categoría":        item.Category,
			"Vencimiento":      formatOptionalDate(item.ExpirationDate),
			"Días restantes":   formatOptionalInt(item.DaysUntil),
			"Estado":           item.StatusLabel,
			"Fecha provisoria": yesNo(item.Provisional),
		})
	}
	return export.Dataset{Headers: expirationHeaders, Rows: rows}, nil
}

func parseStatuses(raw []string) []compliance.Status {
	out := make([]compliance.Status, 0, len(raw))
	for _, r := range raw {
		if status, ok := compliance.ParseStatus(r); ok {
			out = append(out, status)
		}
	}
	return out
}

func formatOptionalDate(d *civil.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func yesNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}
