package ocr

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/noah-isme/compliance-api/pkg/civil"
)

// patternConfidence marks pattern matches as provisional under any sensible threshold.
const patternConfidence = 0.5

var (
	isoDate   = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	localDate = regexp.MustCompile(`(\d{1,2})[/.-](\d{1,2})[/.-](\d{4})`)
)

// PatternExtractor scans the raw document bytes for the first plausible date
// literal, either YYYY-MM-DD or DD/MM/YYYY.
type PatternExtractor struct{}

// NewPatternExtractor constructs the extractor.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Extract implements Extractor.
func (p *PatternExtractor) Extract(ctx context.Context, doc Document) (Result, error) {
	type match struct {
		at   int
		date civil.Date
	}
	var best *match
	consider := func(at int, year, month, day string) {
		if best != nil && best.at <= at {
			return
		}
		y, _ := strconv.Atoi(year)
		m, _ := strconv.Atoi(month)
		d, _ := strconv.Atoi(day)
		date := civil.Date{Year: y, Month: time.Month(m), Day: d}
		if y < 1900 || !date.IsValid() {
			return
		}
		best = &match{at: at, date: date}
	}

	for _, idx := range isoDate.FindAllSubmatchIndex(doc.Data, -1) {
		consider(idx[0], string(doc.Data[idx[2]:idx[3]]), string(doc.Data[idx[4]:idx[5]]), string(doc.Data[idx[6]:idx[7]]))
	}
	for _, idx := range localDate.FindAllSubmatchIndex(doc.Data, -1) {
		consider(idx[0], string(doc.Data[idx[6]:idx[7]]), string(doc.Data[idx[4]:idx[5]]), string(doc.Data[idx[2]:idx[3]]))
	}
	if best == nil {
		return Result{}, ErrNoDate
	}
	return Result{Date: best.date, Confidence: patternConfidence, Source: SourcePattern}, nil
}
