package storage

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/gringalabs/leadscore/internal/models"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and
// database-less runs; the Postgres implementation is the production path.
type MemoryStore struct {
	mu            sync.RWMutex
	sessions      map[string]models.ClickSession
	intents       []models.CheckoutIntent
	purchases     map[string]models.Purchase
	purchaseOrder []string
	surveys       map[string]models.SurveyResponse
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]models.ClickSession),
		purchases: make(map[string]models.Purchase),
		surveys:   make(map[string]models.SurveyResponse),
	}
}

func (s *MemoryStore) UpsertClickSession(_ context.Context, session models.ClickSession) error {
	session = NormalizeClickSession(session)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.SessionID] = session
	return nil
}

func (s *MemoryStore) AppendCheckoutIntent(_ context.Context, intent models.CheckoutIntent) error {
	intent.Email = NormalizeEmail(intent.Email)
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, intent)
	return nil
}

func (s *MemoryStore) LatestCheckoutIntentByEmail(_ context.Context, email string) (*models.CheckoutIntent, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latestIntentLocked(email), nil
}

// latestIntentLocked prefers the most recently appended row on CreatedAt
// ties, matching "ORDER BY created_at DESC LIMIT 1" insertion behavior.
func (s *MemoryStore) latestIntentLocked(email string) *models.CheckoutIntent {
	var latest *models.CheckoutIntent
	for i := range s.intents {
		intent := s.intents[i]
		if intent.Email != email {
			continue
		}
		if latest == nil || !intent.CreatedAt.Before(latest.CreatedAt) {
			latest = &s.intents[i]
		}
	}
	if latest == nil {
		return nil
	}
	cp := *latest
	return &cp
}

func (s *MemoryStore) UpsertPurchase(_ context.Context, purchase models.Purchase) error {
	purchase.BuyerEmail = NormalizeEmail(purchase.BuyerEmail)
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.purchases[purchase.TransactionID]; ok {
		purchase.CreatedAt = existing.CreatedAt
	} else {
		s.purchaseOrder = append(s.purchaseOrder, purchase.TransactionID)
	}
	s.purchases[purchase.TransactionID] = purchase
	return nil
}

func (s *MemoryStore) UpsertSurveyResponse(_ context.Context, response models.SurveyResponse) error {
	response.Email = NormalizeEmail(response.Email)
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surveys[response.Email] = response
	return nil
}

func (s *MemoryStore) LeadRows(_ context.Context, filters models.DashboardFilters) ([]models.LeadRow, error) {
	filters = NormalizeFilters(filters)
	start, end := DateBounds(filters)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]models.LeadRow, 0, len(s.purchaseOrder))
	for _, txID := range s.purchaseOrder {
		purchase := s.purchases[txID]
		eventAt := purchase.EventAt()
		if start != nil && eventAt.Before(*start) {
			continue
		}
		if end != nil && !eventAt.Before(*end) {
			continue
		}

		sr, hasSurvey := s.surveys[purchase.BuyerEmail]

		// Survey filters compare raw stored answers; a row without a survey
		// never matches a survey filter, mirroring the SQL join.
		if !matchSurveyFilter(filters.Experience, hasSurvey, sr.Experience) ||
			!matchSurveyFilter(filters.LanguageSkill, hasSurvey, sr.LanguageSkill) ||
			!matchSurveyFilter(filters.EnglishLevel, hasSurvey, sr.EnglishLevel) ||
			!matchSurveyFilter(filters.HasInternationalInterview, hasSurvey, sr.HasInternationalInterview) ||
			!matchSurveyFilter(filters.InternationalInterest, hasSurvey, sr.InternationalInterest) ||
			!matchSurveyFilter(filters.SalaryRange, hasSurvey, sr.SalaryRange) {
			continue
		}

		sessionID := purchase.SourceSessionID
		if sessionID == "" {
			if intent := s.latestIntentLocked(purchase.BuyerEmail); intent != nil {
				sessionID = intent.SessionID
			}
		}
		session, hasSession := s.sessions[sessionID]

		if !matchSurveyFilter(filters.CampaignID, hasSession, session.CampaignID) ||
			!matchSurveyFilter(filters.AdsetID, hasSession, session.AdsetID) ||
			!matchSurveyFilter(filters.CreativeID, hasSession, session.CreativeID) {
			continue
		}

		rows = append(rows, buildLeadRow(purchase, sr, hasSurvey, session, eventAt))
	}
	return rows, nil
}

func matchSurveyFilter(filter string, present bool, value string) bool {
	if filter == "" {
		return true
	}
	return present && value == filter
}

func buildLeadRow(purchase models.Purchase, sr models.SurveyResponse, hasSurvey bool, session models.ClickSession, eventAt time.Time) models.LeadRow {
	row := models.LeadRow{
		Email:                     purchase.BuyerEmail,
		FirstName:                 "Lead",
		HasSurvey:                 hasSurvey,
		Experience:                models.NoSurveyPlaceholder,
		LanguageSkill:             models.NoSurveyPlaceholder,
		EnglishLevel:              models.NoSurveyPlaceholder,
		HasInternationalInterview: models.NoSurveyPlaceholder,
		InternationalInterest:     models.NoSurveyPlaceholder,
		SalaryRange:               models.NoSurveyPlaceholder,
		CampaignID:                models.UnknownDimension,
		CampaignName:              models.UnknownDimension,
		AdsetID:                   models.UnknownDimension,
		AdsetName:                 models.UnknownDimension,
		CreativeID:                models.UnknownDimension,
		CreativeName:              models.UnknownDimension,
		AttributionSource:         purchase.AttributionSource,
		EventAt:                   eventAt,
	}
	if row.AttributionSource == "" {
		row.AttributionSource = models.AttributionUnknown
	}
	if hasSurvey {
		if sr.FirstName != "" {
			row.FirstName = sr.FirstName
		}
		row.Experience = sr.Experience
		row.LanguageSkill = sr.LanguageSkill
		row.EnglishLevel = sr.EnglishLevel
		row.HasInternationalInterview = sr.HasInternationalInterview
		row.InternationalInterest = sr.InternationalInterest
		row.SalaryRange = sr.SalaryRange
		row.LeadScore = sr.LeadScore
	}
	if session.SessionID != "" {
		row.CampaignID = coalesce(session.CampaignID, models.UnknownDimension)
		row.CampaignName = coalesce(session.CampaignName, session.UTMCampaign, models.UnknownDimension)
		row.AdsetID = coalesce(session.AdsetID, models.UnknownDimension)
		row.AdsetName = coalesce(session.AdsetName, session.UTMMedium, models.UnknownDimension)
		row.CreativeID = coalesce(session.CreativeID, models.UnknownDimension)
		row.CreativeName = coalesce(session.CreativeName, session.UTMContent, models.UnknownDimension)
		row.UTMSource = session.UTMSource
		row.UTMMedium = session.UTMMedium
		row.UTMCampaign = session.UTMCampaign
		row.UTMContent = session.UTMContent
		row.Xcod = session.Xcod
	}
	return row
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (s *MemoryStore) AttributionReport(_ context.Context) ([]models.AttributionReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	purchasesBySession := make(map[string][]models.Purchase)
	for _, p := range s.purchases {
		if p.SourceSessionID != "" {
			purchasesBySession[p.SourceSessionID] = append(purchasesBySession[p.SourceSessionID], p)
		}
	}

	type accumulator struct {
		leads      int
		purchases  map[string]struct{}
		revenue    float64
		scoreSum   float64
		scoreCount int
	}
	groups := make(map[string]*accumulator)

	for _, session := range s.sessions {
		key := coalesce(session.CreativeID, session.UTMContent, models.UnknownDimension)
		acc, ok := groups[key]
		if !ok {
			acc = &accumulator{purchases: make(map[string]struct{})}
			groups[key] = acc
		}
		acc.leads++
		for _, p := range purchasesBySession[session.SessionID] {
			if _, seen := acc.purchases[p.TransactionID]; !seen {
				acc.purchases[p.TransactionID] = struct{}{}
				acc.revenue += p.Amount
			}
			if sr, ok := s.surveys[p.BuyerEmail]; ok {
				acc.scoreSum += float64(sr.LeadScore)
				acc.scoreCount++
			}
		}
	}

	report := make([]models.AttributionReportRow, 0, len(groups))
	for creativeID, acc := range groups {
		avg := 0.0
		if acc.scoreCount > 0 {
			avg = acc.scoreSum / float64(acc.scoreCount)
		}
		report = append(report, models.AttributionReportRow{
			CreativeID:   creativeID,
			Leads:        acc.leads,
			Purchases:    len(acc.purchases),
			Revenue:      round2(acc.revenue),
			AvgLeadScore: round2(avg),
		})
	}
	sort.Slice(report, func(i, j int) bool { return report[i].Revenue > report[j].Revenue })
	return report, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
