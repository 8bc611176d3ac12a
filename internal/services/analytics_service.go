// Package services – AnalyticsService
//
// AnalyticsService serves survey reports. Reports are computed by the
// analytics.Aggregator and, when a cache is configured, kept in Redis until
// the survey or its responses change. It also renders the XLSX and CSV
// exports built from the same report.

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-survey-backend/internal/analytics"
	"github.com/tbourn/go-survey-backend/internal/cache"
	"github.com/tbourn/go-survey-backend/internal/domain"
	"github.com/tbourn/go-survey-backend/internal/export"
	"github.com/tbourn/go-survey-backend/internal/observability"
)

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Data        []byte
	ContentType string
	Filename    string
}

// AnalyticsService computes, caches and exports survey reports.
type AnalyticsService struct {
	Aggregator *analytics.Aggregator
	Surveys    SurveyStore
	Responses  ResponseStore
	Cache      cache.AnalyticsCache
	Audit      *AuditService
	Now        func() time.Time
}

// NewAnalyticsService wires an aggregator over st with the given audience
// size. c may be nil to run uncached.
func NewAnalyticsService(st Store, c cache.AnalyticsCache, audit *AuditService, audienceSize int) *AnalyticsService {
	return &AnalyticsService{
		Aggregator: analytics.NewAggregator(NewSource(st, st), analytics.WithAudienceSize(audienceSize)),
		Surveys:    st,
		Responses:  st,
		Cache:      c,
		Audit:      audit,
	}
}

// Calculate returns the report of surveyID, or ErrSurveyNotFound.
func (s *AnalyticsService) Calculate(ctx context.Context, surveyID string) (*analytics.SurveyAnalytics, error) {
	tr := otel.Tracer("services/AnalyticsService")
	ctx, span := tr.Start(ctx, "Calculate", trace.WithAttributes(attribute.String("survey.id", surveyID)))
	defer span.End()

	start := time.Now()
	result := observability.CacheDisabled
	var (
		gen       int64
		cacheable bool
	)
	if s.Cache != nil {
		report, err := s.Cache.Get(ctx, surveyID)
		if err != nil {
			loggerFrom(ctx).Warn().Err(err).Str("survey_id", surveyID).Msg("analytics cache read failed")
		}
		if report != nil {
			span.SetAttributes(attribute.String("cache", observability.CacheHit))
			observability.ObserveAnalytics(observability.CacheHit, time.Since(start))
			return report, nil
		}
		result = observability.CacheMiss
		// read before the store so a write committed meanwhile bumps it
		if gen, err = s.Cache.Generation(ctx, surveyID); err != nil {
			loggerFrom(ctx).Warn().Err(err).Str("survey_id", surveyID).Msg("analytics cache generation read failed")
		}
		cacheable = err == nil
	}
	span.SetAttributes(attribute.String("cache", result))

	report, err := s.Aggregator.Calculate(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	observability.ObserveAnalytics(result, time.Since(start))

	if cacheable {
		s.storeReport(ctx, report, gen)
	}
	return report, nil
}

func (s *AnalyticsService) storeReport(ctx context.Context, report *analytics.SurveyAnalytics, gen int64) {
	err := s.Cache.Set(ctx, report, gen)
	switch {
	case err == nil:
	case errors.Is(err, cache.ErrStale):
		loggerFrom(ctx).Debug().Str("survey_id", report.SurveyID).Msg("survey changed while computing; report not cached")
	default:
		loggerFrom(ctx).Warn().Err(err).Str("survey_id", report.SurveyID).Msg("analytics cache write failed")
	}
}

// Export renders the survey's results in format (xlsx or csv).
func (s *AnalyticsService) Export(ctx context.Context, actor Actor, surveyID, format string) (*ExportFile, error) {
	tr := otel.Tracer("services/AnalyticsService")
	ctx, span := tr.Start(ctx, "Export",
		trace.WithAttributes(
			attribute.String("survey.id", surveyID),
			attribute.String("export.format", format),
		),
	)
	defer span.End()

	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		return nil, ErrUnsupportedFormat
	}

	survey, err := s.Surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return nil, mapNotFound(err, ErrSurveyNotFound)
	}
	responses, err := s.Responses.ListResponsesBySurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}

	out := &ExportFile{Filename: export.Filename(survey.Title, format, now)}
	switch format {
	case FormatCSV:
		out.ContentType = export.ContentTypeCSV
		out.Data, err = export.CSV(survey, responses)
	default:
		report, cerr := s.Calculate(ctx, surveyID)
		if cerr != nil {
			return nil, cerr
		}
		out.ContentType = export.ContentTypeXLSX
		out.Data, err = export.XLSX(survey, report, responses, now)
	}
	if err != nil {
		return nil, err
	}

	s.Audit.Log(ctx, actor, domain.ActionExport, domain.EntitySurvey, survey.ID, survey.Title, map[string]string{"format": format})
	return out, nil
}
