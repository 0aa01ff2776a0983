package funnel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gringalabs/leadscore/internal/metrics"
	"github.com/gringalabs/leadscore/internal/models"
	"github.com/gringalabs/leadscore/internal/storage"
)

// DashboardService serves the read models: filtered lead rows, the aggregated
// dashboard, the CSV export and the attribution report.
type DashboardService struct {
	store   storage.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	cache   *Cache
}

// NewDashboardService constructs a DashboardService. metrics and cache may be nil.
func NewDashboardService(store storage.Store, logger *zap.Logger, m *metrics.Metrics, cache *Cache) *DashboardService {
	return &DashboardService{store: store, logger: logger, metrics: m, cache: cache}
}

// LeadRows returns the filtered denormalized lead rows.
func (s *DashboardService) LeadRows(ctx context.Context, filters models.DashboardFilters) ([]models.LeadRow, error) {
	start := time.Now()
	rows, err := s.store.LeadRows(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load lead rows: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordDashboardQuery("rows", time.Since(start))
	}
	if rows == nil {
		rows = []models.LeadRow{}
	}
	return rows, nil
}

// Dashboard returns the aggregated dashboard for the given filters, served
// from cache when a fresh entry exists.
func (s *DashboardService) Dashboard(ctx context.Context, filters models.DashboardFilters) (*models.Dashboard, error) {
	filters = storage.NormalizeFilters(filters)

	if cached, ok := s.cache.GetDashboard(ctx, filters); ok {
		return cached, nil
	}

	start := time.Now()
	rows, err := s.LeadRows(ctx, filters)
	if err != nil {
		return nil, err
	}
	dashboard := BuildDashboard(rows, filters)
	if s.metrics != nil {
		s.metrics.RecordDashboardQuery("dashboard", time.Since(start))
	}

	s.cache.SetDashboard(ctx, filters, dashboard)
	return dashboard, nil
}

// Report returns the all-time attribution report grouped by creative.
func (s *DashboardService) Report(ctx context.Context) ([]models.AttributionReportRow, error) {
	start := time.Now()
	report, err := s.store.AttributionReport(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load attribution report: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordDashboardQuery("report", time.Since(start))
	}
	if report == nil {
		report = []models.AttributionReportRow{}
	}
	return report, nil
}

var csvHeader = []string{
	"email", "firstName", "hasSurvey",
	"experience", "languageSkill", "englishLevel",
	"hasInternationalInterview", "internationalInterest", "salaryRange",
	"leadScore",
	"campaignId", "campaignName", "adsetId", "adsetName", "creativeId", "creativeName",
	"utmSource", "utmMedium", "utmCampaign", "utmContent", "xcod",
	"attributionSource",
}

// CSV renders the filtered lead rows as a CSV document. An empty result set
// yields the sem_dados marker instead of a bare header.
func (s *DashboardService) CSV(ctx context.Context, filters models.DashboardFilters) ([]byte, error) {
	rows, err := s.LeadRows(ctx, filters)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []byte("sem_dados\n"), nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range rows {
		hasSurvey := "0"
		if row.HasSurvey {
			hasSurvey = "1"
		}
		record := []string{
			row.Email, row.FirstName, hasSurvey,
			row.Experience, row.LanguageSkill, row.EnglishLevel,
			row.HasInternationalInterview, row.InternationalInterest, row.SalaryRange,
			strconv.Itoa(row.LeadScore),
			row.CampaignID, row.CampaignName, row.AdsetID, row.AdsetName, row.CreativeID, row.CreativeName,
			row.UTMSource, row.UTMMedium, row.UTMCampaign, row.UTMContent, row.Xcod,
			string(row.AttributionSource),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
