package storage

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/gringalabs/leadscore/internal/metadata"
	"github.com/gringalabs/leadscore/internal/models"
)

// Store is the persistence boundary for the four funnel entities plus the
// two read models built from them. Implementations must keep per-key upserts
// atomic; the callers never coordinate writes themselves.
type Store interface {
	// UpsertClickSession inserts or fully overwrites the session with the
	// same SessionID. Late-arriving webhook metadata refines sparser rows.
	UpsertClickSession(ctx context.Context, session models.ClickSession) error
	// AppendCheckoutIntent adds a row; multiple intents per session or email
	// are expected.
	AppendCheckoutIntent(ctx context.Context, intent models.CheckoutIntent) error
	// LatestCheckoutIntentByEmail returns the most recent intent for the
	// normalized email, or nil when none exists.
	LatestCheckoutIntentByEmail(ctx context.Context, email string) (*models.CheckoutIntent, error)
	// UpsertPurchase inserts or overwrites by TransactionID. CreatedAt of an
	// existing row is preserved.
	UpsertPurchase(ctx context.Context, purchase models.Purchase) error
	// UpsertSurveyResponse inserts or overwrites by normalized email.
	UpsertSurveyResponse(ctx context.Context, response models.SurveyResponse) error
	// LeadRows materializes the filtered denormalized projection: one row per
	// purchase with survey and session data joined in.
	LeadRows(ctx context.Context, filters models.DashboardFilters) ([]models.LeadRow, error)
	// AttributionReport returns the all-time per-creative rollup, sorted by
	// revenue descending.
	AttributionReport(ctx context.Context) ([]models.AttributionReportRow, error)
}

// NormalizeEmail trims and lower-cases an address. All email joins go
// through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeClickSession derives missing dimension ids/names by decoding the
// compound UTM fields, and defaults CreatedAt. AdID falls back to the
// decoded creative id.
func NormalizeClickSession(s models.ClickSession) models.ClickSession {
	campaignName, campaignID := metadata.Decode(s.UTMCampaign)
	adsetName, adsetID := metadata.Decode(s.UTMMedium)
	creativeName, creativeID := metadata.Decode(s.UTMContent)

	if s.CampaignID == "" {
		s.CampaignID = campaignID
	}
	if s.CampaignName == "" {
		s.CampaignName = campaignName
	}
	if s.AdsetID == "" {
		s.AdsetID = adsetID
	}
	if s.AdsetName == "" {
		s.AdsetName = adsetName
	}
	if s.CreativeID == "" {
		s.CreativeID = creativeID
	}
	if s.CreativeName == "" {
		s.CreativeName = creativeName
	}
	if s.AdID == "" {
		s.AdID = creativeID
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return s
}

var dateFilterPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeFilters trims every filter value and silently drops malformed
// dates. Dashboard queries degrade instead of failing on bad query strings.
func NormalizeFilters(f models.DashboardFilters) models.DashboardFilters {
	f.StartDate = normalizeDateValue(f.StartDate)
	f.EndDate = normalizeDateValue(f.EndDate)
	f.Experience = strings.TrimSpace(f.Experience)
	f.LanguageSkill = strings.TrimSpace(f.LanguageSkill)
	f.EnglishLevel = strings.TrimSpace(f.EnglishLevel)
	f.HasInternationalInterview = strings.TrimSpace(f.HasInternationalInterview)
	f.InternationalInterest = strings.TrimSpace(f.InternationalInterest)
	f.SalaryRange = strings.TrimSpace(f.SalaryRange)
	f.CampaignID = strings.TrimSpace(f.CampaignID)
	f.AdsetID = strings.TrimSpace(f.AdsetID)
	f.CreativeID = strings.TrimSpace(f.CreativeID)
	return f
}

func normalizeDateValue(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || !dateFilterPattern.MatchString(value) {
		return ""
	}
	return value
}

// DateBounds converts the normalized date filters into an inclusive start
// and an exclusive end instant at UTC midnight.
func DateBounds(f models.DashboardFilters) (start, end *time.Time) {
	if f.StartDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", f.StartDate, time.UTC); err == nil {
			start = &t
		}
	}
	if f.EndDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", f.EndDate, time.UTC); err == nil {
			e := t.AddDate(0, 0, 1)
			end = &e
		}
	}
	return start, end
}
