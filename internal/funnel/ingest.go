package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gringalabs/leadscore/internal/leadscore"
	"github.com/gringalabs/leadscore/internal/metrics"
	"github.com/gringalabs/leadscore/internal/models"
	"github.com/gringalabs/leadscore/internal/storage"
	"github.com/gringalabs/leadscore/internal/survey"
)

// IngestService handles every write path of the funnel: landing-page clicks,
// checkout intents, purchase webhooks and survey submissions.
type IngestService struct {
	store           storage.Store
	logger          *zap.Logger
	metrics         *metrics.Metrics
	cache           *Cache
	checkoutBaseURL string
}

// NewIngestService constructs an IngestService. metrics and cache may be nil.
func NewIngestService(store storage.Store, logger *zap.Logger, m *metrics.Metrics, cache *Cache, checkoutBaseURL string) *IngestService {
	return &IngestService{
		store:           store,
		logger:          logger,
		metrics:         m,
		cache:           cache,
		checkoutBaseURL: checkoutBaseURL,
	}
}

// RegisterClick parses a track-click payload and upserts the click session.
// Tracking values are read from the payload (camelCase then snake_case) and
// fall back to the landing URL's query string. A missing session id gets a
// generated UUID.
func (s *IngestService) RegisterClick(ctx context.Context, payload map[string]any) (models.ClickSession, error) {
	sessionID := firstNonEmpty(optString(payload["sessionId"]), optString(payload["session_id"]))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	landingURL := firstNonEmpty(optString(payload["landingUrl"]), optString(payload["landing_url"]))
	if landingURL == "" {
		return models.ClickSession{}, ErrMissingLandingURL
	}

	query := landingQuery(landingURL)
	read := func(camelKey, snakeKey string) string {
		return firstNonEmpty(
			optString(payload[camelKey]),
			optString(payload[snakeKey]),
			query.Get(snakeKey),
		)
	}

	session := models.ClickSession{
		SessionID:   sessionID,
		LandingURL:  landingURL,
		UTMSource:   read("utmSource", "utm_source"),
		UTMMedium:   read("utmMedium", "utm_medium"),
		UTMCampaign: read("utmCampaign", "utm_campaign"),
		UTMContent:  read("utmContent", "utm_content"),
		UTMTerm:     read("utmTerm", "utm_term"),
		AdID:        read("adId", "ad_id"),
		AdsetID:     read("adsetId", "adset_id"),
		CampaignID:  read("campaignId", "campaign_id"),
		CreativeID:  read("creativeId", "creative_id"),
		Xcod:        read("xcod", "xcod"),
		Fbclid:      read("fbclid", "fbclid"),
		Gclid:       read("gclid", "gclid"),
		Ttclid:      read("ttclid", "ttclid"),
	}

	if err := s.store.UpsertClickSession(ctx, session); err != nil {
		return models.ClickSession{}, fmt.Errorf("failed to register click session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordClick()
	}
	s.cache.Invalidate(ctx)
	s.logger.Debug("click session registered", zap.String("session_id", sessionID))
	return session, nil
}

// CheckoutIntentResult carries the redirect URL built for the caller.
type CheckoutIntentResult struct {
	SessionID   string
	CheckoutURL string
}

// RegisterCheckoutIntent records that a session reached the checkout step and
// returns the checkout URL with the session id attached as src.
func (s *IngestService) RegisterCheckoutIntent(ctx context.Context, payload map[string]any) (CheckoutIntentResult, error) {
	sessionID := firstNonEmpty(optString(payload["sessionId"]), optString(payload["session_id"]))
	if sessionID == "" {
		return CheckoutIntentResult{}, ErrMissingSessionID
	}

	baseURL := firstNonEmpty(optString(payload["baseUrl"]), optString(payload["base_url"]), s.checkoutBaseURL)
	email := optString(payload["email"])

	checkoutURL, err := BuildCheckoutURL(baseURL, sessionID, email)
	if err != nil {
		return CheckoutIntentResult{}, fmt.Errorf("failed to build checkout url: %w", err)
	}

	intent := models.CheckoutIntent{
		SessionID:   sessionID,
		Email:       email,
		CheckoutURL: checkoutURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.AppendCheckoutIntent(ctx, intent); err != nil {
		return CheckoutIntentResult{}, fmt.Errorf("failed to register checkout intent: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordCheckoutIntent()
	}
	s.cache.Invalidate(ctx)
	return CheckoutIntentResult{SessionID: sessionID, CheckoutURL: checkoutURL}, nil
}

// IngestSurvey accepts either an already-typed survey body or a raw
// form-builder payload, scores it and upserts by respondent email.
func (s *IngestService) IngestSurvey(ctx context.Context, payload map[string]any) (models.SurveyResponse, error) {
	input, ok := typedSurveyInput(payload)
	if !ok {
		parsed, err := survey.ParsePayload(payload)
		if err != nil {
			return models.SurveyResponse{}, err
		}
		input = parsed
	}

	answers := leadscore.Answers{
		Experience:                input.Experience,
		LanguageSkill:             input.LanguageSkill,
		EnglishLevel:              input.EnglishLevel,
		HasInternationalInterview: input.HasInternationalInterview,
		InternationalInterest:     input.InternationalInterest,
		SalaryRange:               input.SalaryRange,
	}
	score := leadscore.Calculate(answers)
	qualification := leadscore.Qualify(score)

	response := models.SurveyResponse{
		Email:                     input.Email,
		FirstName:                 input.FirstName,
		Experience:                input.Experience,
		LanguageSkill:             input.LanguageSkill,
		EnglishLevel:              input.EnglishLevel,
		HasInternationalInterview: input.HasInternationalInterview,
		InternationalInterest:     input.InternationalInterest,
		SalaryRange:               input.SalaryRange,
		HelpText:                  input.HelpText,
		TestEmail:                 input.TestEmail,
		FormID:                    input.FormID,
		FormName:                  input.FormName,
		RawBodyJSON:               input.RawBodyJSON,
		LeadScore:                 score,
		LeadQualification:         string(qualification),
		SubmittedAt:               input.SubmittedAt,
	}
	if err := s.store.UpsertSurveyResponse(ctx, response); err != nil {
		return models.SurveyResponse{}, fmt.Errorf("failed to ingest survey: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSurveyResponse(string(qualification))
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("survey ingested",
		zap.String("email", response.Email),
		zap.Int("lead_score", score),
		zap.String("qualification", string(qualification)),
	)
	return response, nil
}

// typedSurveyInput recognizes payloads that already carry the normalized
// field names, bypassing the form-label parser.
func typedSurveyInput(payload map[string]any) (survey.Input, bool) {
	required := []string{
		"email", "experience", "languageSkill", "englishLevel",
		"hasInternationalInterview", "internationalInterest", "salaryRange", "helpText",
	}
	for _, key := range required {
		if _, ok := payload[key].(string); !ok {
			return survey.Input{}, false
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	return survey.Input{
		Email:                     optString(payload["email"]),
		FirstName:                 optString(payload["firstName"]),
		Experience:                optString(payload["experience"]),
		LanguageSkill:             optString(payload["languageSkill"]),
		EnglishLevel:              optString(payload["englishLevel"]),
		HasInternationalInterview: optString(payload["hasInternationalInterview"]),
		InternationalInterest:     optString(payload["internationalInterest"]),
		SalaryRange:               optString(payload["salaryRange"]),
		HelpText:                  optString(payload["helpText"]),
		TestEmail:                 optString(payload["testEmail"]),
		FormID:                    optString(payload["formId"]),
		FormName:                  optString(payload["formName"]),
		RawBodyJSON:               string(raw),
	}, true
}

// BuildCheckoutURL attaches the session id (as src) and optional email to the
// checkout base URL.
func BuildCheckoutURL(baseURL, sessionID, email string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("src", sessionID)
	if email != "" {
		q.Set("email", email)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func landingQuery(landingURL string) url.Values {
	u, err := url.Parse(landingURL)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}
