// Package ocr reads the inspection date printed on QR equipment documents.
package ocr

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

// ErrNoDate is returned when a document carries no recognisable date.
var ErrNoDate = errors.New("no date found in document")

// Extraction sources.
const (
	SourceRemote  = "remote"
	SourcePattern = "pattern"
)

// Document is the uploaded file handed to an extractor.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is an extracted date with the extractor's confidence in [0,1].
type Result struct {
	Date       civil.Date
	Confidence float64
	Source     string
}

// Extractor finds the relevant date of a document.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (Result, error)
}

// Config selects the extractor chain.
type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// New returns the remote client backed by the pattern extractor, or the
// pattern extractor alone when no endpoint is configured.
func New(cfg Config, logger *zap.Logger) Extractor {
	pattern := NewPatternExtractor()
	if cfg.Endpoint == "" {
		return pattern
	}
	return NewFallback(NewClient(cfg.Endpoint, cfg.APIKey, cfg.Timeout), pattern, logger)
}

// Fallback asks primary first and secondary when primary fails.
type Fallback struct {
	primary   Extractor
	secondary Extractor
	logger    *zap.Logger
}

// NewFallback chains two extractors.
func NewFallback(primary, secondary Extractor, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// Extract implements Extractor.
func (f *Fallback) Extract(ctx context.Context, doc Document) (Result, error) {
	res, err := f.primary.Extract(ctx, doc)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	f.logger.Warn("date extraction fell back", zap.String("file", doc.Name), zap.Error(err))
	return f.secondary.Extract(ctx, doc)
}
