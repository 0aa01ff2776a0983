package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gringalabs/leadscore/internal/models"
)

// PostgresStore implements Store using PostgreSQL.
//
// Absent string attributes are stored as NULL, not '': the projection
// queries rely on COALESCE fallback chains (campaign_name -> utm_campaign ->
// 'desconhecido') that empty strings would short-circuit.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InitSchema creates the four funnel tables and their lookup indexes.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS click_sessions (
			session_id    TEXT PRIMARY KEY,
			landing_url   TEXT NOT NULL,
			utm_source    TEXT,
			utm_medium    TEXT,
			utm_campaign  TEXT,
			utm_content   TEXT,
			utm_term      TEXT,
			ad_id         TEXT,
			adset_id      TEXT,
			campaign_id   TEXT,
			creative_id   TEXT,
			campaign_name TEXT,
			adset_name    TEXT,
			creative_name TEXT,
			xcod          TEXT,
			fbclid        TEXT,
			gclid         TEXT,
			ttclid        TEXT,
			created_at    TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS checkout_intents (
			id           BIGSERIAL PRIMARY KEY,
			session_id   TEXT NOT NULL,
			email        TEXT,
			checkout_url TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_checkout_intents_email_created
			ON checkout_intents (email, created_at DESC);

		CREATE TABLE IF NOT EXISTS purchases (
			transaction_id     TEXT PRIMARY KEY,
			buyer_email        TEXT NOT NULL,
			buyer_name         TEXT,
			status             TEXT NOT NULL,
			amount             DOUBLE PRECISION NOT NULL,
			currency           TEXT NOT NULL,
			event              TEXT NOT NULL,
			approved_at        TIMESTAMPTZ,
			source_session_id  TEXT,
			attribution_source TEXT,
			created_at         TIMESTAMPTZ NOT NULL,
			payload_json       TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_purchases_buyer_email
			ON purchases (buyer_email);
		CREATE INDEX IF NOT EXISTS idx_purchases_source_session
			ON purchases (source_session_id);

		CREATE TABLE IF NOT EXISTS survey_responses (
			email                       TEXT PRIMARY KEY,
			first_name                  TEXT,
			experience                  TEXT NOT NULL,
			language_skill              TEXT NOT NULL,
			english_level               TEXT NOT NULL,
			has_international_interview TEXT NOT NULL,
			international_interest      TEXT NOT NULL,
			salary_range                TEXT NOT NULL,
			help_text                   TEXT NOT NULL,
			test_email                  TEXT,
			form_id                     TEXT,
			form_name                   TEXT,
			raw_body_json               TEXT,
			lead_score                  INTEGER NOT NULL,
			lead_qualification          TEXT NOT NULL,
			submitted_at                TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertClickSession(ctx context.Context, session models.ClickSession) error {
	session = NormalizeClickSession(session)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO click_sessions (
			session_id, landing_url, utm_source, utm_medium, utm_campaign,
			utm_content, utm_term, ad_id, adset_id, campaign_id, creative_id,
			campaign_name, adset_name, creative_name, xcod, fbclid, gclid,
			ttclid, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (session_id) DO UPDATE SET
			landing_url   = EXCLUDED.landing_url,
			utm_source    = EXCLUDED.utm_source,
			utm_medium    = EXCLUDED.utm_medium,
			utm_campaign  = EXCLUDED.utm_campaign,
			utm_content   = EXCLUDED.utm_content,
			utm_term      = EXCLUDED.utm_term,
			ad_id         = EXCLUDED.ad_id,
			adset_id      = EXCLUDED.adset_id,
			campaign_id   = EXCLUDED.campaign_id,
			creative_id   = EXCLUDED.creative_id,
			campaign_name = EXCLUDED.campaign_name,
			adset_name    = EXCLUDED.adset_name,
			creative_name = EXCLUDED.creative_name,
			xcod          = EXCLUDED.xcod,
			fbclid        = EXCLUDED.fbclid,
			gclid         = EXCLUDED.gclid,
			ttclid        = EXCLUDED.ttclid
	`,
		session.SessionID, session.LandingURL,
		nullString(session.UTMSource), nullString(session.UTMMedium),
		nullString(session.UTMCampaign), nullString(session.UTMContent),
		nullString(session.UTMTerm), nullString(session.AdID),
		nullString(session.AdsetID), nullString(session.CampaignID),
		nullString(session.CreativeID), nullString(session.CampaignName),
		nullString(session.AdsetName), nullString(session.CreativeName),
		nullString(session.Xcod), nullString(session.Fbclid),
		nullString(session.Gclid), nullString(session.Ttclid),
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert click session: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendCheckoutIntent(ctx context.Context, intent models.CheckoutIntent) error {
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO checkout_intents (session_id, email, checkout_url, created_at)
		VALUES ($1, $2, $3, $4)
	`, intent.SessionID, nullString(NormalizeEmail(intent.Email)), intent.CheckoutURL, intent.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append checkout intent: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestCheckoutIntentByEmail(ctx context.Context, email string) (*models.CheckoutIntent, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	var intent models.CheckoutIntent
	err := s.pool.QueryRow(ctx, `
		SELECT session_id, COALESCE(email, ''), checkout_url, created_at
		FROM checkout_intents
		WHERE email = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, email).Scan(&intent.SessionID, &intent.Email, &intent.CheckoutURL, &intent.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest checkout intent: %w", err)
	}
	return &intent, nil
}

func (s *PostgresStore) UpsertPurchase(ctx context.Context, purchase models.Purchase) error {
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO purchases (
			transaction_id, buyer_email, buyer_name, status, amount, currency,
			event, approved_at, source_session_id, attribution_source,
			created_at, payload_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (transaction_id) DO UPDATE SET
			buyer_email        = EXCLUDED.buyer_email,
			buyer_name         = EXCLUDED.buyer_name,
			status             = EXCLUDED.status,
			amount             = EXCLUDED.amount,
			currency           = EXCLUDED.currency,
			event              = EXCLUDED.event,
			approved_at        = EXCLUDED.approved_at,
			source_session_id  = EXCLUDED.source_session_id,
			attribution_source = EXCLUDED.attribution_source,
			payload_json       = EXCLUDED.payload_json
	`,
		purchase.TransactionID, NormalizeEmail(purchase.BuyerEmail),
		nullString(purchase.BuyerName), purchase.Status, purchase.Amount,
		purchase.Currency, purchase.Event, purchase.ApprovedAt,
		nullString(purchase.SourceSessionID), string(purchase.AttributionSource),
		purchase.CreatedAt, nullString(purchase.PayloadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert purchase: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertSurveyResponse(ctx context.Context, response models.SurveyResponse) error {
	if response.SubmittedAt.IsZero() {
		response.SubmittedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO survey_responses (
			email, first_name, experience, language_skill, english_level,
			has_international_interview, international_interest, salary_range,
			help_text, test_email, form_id, form_name, raw_body_json,
			lead_score, lead_qualification, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (email) DO UPDATE SET
			first_name                  = EXCLUDED.first_name,
			experience                  = EXCLUDED.experience,
			language_skill              = EXCLUDED.language_skill,
			english_level               = EXCLUDED.english_level,
			has_international_interview = EXCLUDED.has_international_interview,
			international_interest      = EXCLUDED.international_interest,
			salary_range                = EXCLUDED.salary_range,
			help_text                   = EXCLUDED.help_text,
			test_email                  = EXCLUDED.test_email,
			form_id                     = EXCLUDED.form_id,
			form_name                   = EXCLUDED.form_name,
			raw_body_json               = EXCLUDED.raw_body_json,
			lead_score                  = EXCLUDED.lead_score,
			lead_qualification          = EXCLUDED.lead_qualification,
			submitted_at                = EXCLUDED.submitted_at
	`,
		NormalizeEmail(response.Email), nullString(response.FirstName),
		response.Experience, response.LanguageSkill, response.EnglishLevel,
		response.HasInternationalInterview, response.InternationalInterest,
		response.SalaryRange, response.HelpText, nullString(response.TestEmail),
		nullString(response.FormID), nullString(response.FormName),
		nullString(response.RawBodyJSON), response.LeadScore,
		response.LeadQualification, response.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert survey response: %w", err)
	}
	return nil
}

func (s *PostgresStore) LeadRows(ctx context.Context, filters models.DashboardFilters) ([]models.LeadRow, error) {
	filters = NormalizeFilters(filters)
	start, end := DateBounds(filters)

	where := make([]string, 0, 11)
	args := make([]any, 0, 11)
	addClause := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if start != nil {
		addClause("le.event_ts >= $%d", *start)
	}
	if end != nil {
		addClause("le.event_ts < $%d", *end)
	}
	if filters.Experience != "" {
		addClause("sr.experience = $%d", filters.Experience)
	}
	if filters.LanguageSkill != "" {
		addClause("sr.language_skill = $%d", filters.LanguageSkill)
	}
	if filters.EnglishLevel != "" {
		addClause("sr.english_level = $%d", filters.EnglishLevel)
	}
	if filters.HasInternationalInterview != "" {
		addClause("sr.has_international_interview = $%d", filters.HasInternationalInterview)
	}
	if filters.InternationalInterest != "" {
		addClause("sr.international_interest = $%d", filters.InternationalInterest)
	}
	if filters.SalaryRange != "" {
		addClause("sr.salary_range = $%d", filters.SalaryRange)
	}
	if filters.CampaignID != "" {
		addClause("cs.campaign_id = $%d", filters.CampaignID)
	}
	if filters.AdsetID != "" {
		addClause("cs.adset_id = $%d", filters.AdsetID)
	}
	if filters.CreativeID != "" {
		addClause("cs.creative_id = $%d", filters.CreativeID)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + joinClauses(where)
	}

	query := `
		WITH lead_events AS (
			SELECT
				buyer_email AS email,
				COALESCE(approved_at, created_at) AS event_ts,
				source_session_id,
				attribution_source
			FROM purchases
		)
		SELECT
			le.email,
			COALESCE(sr.first_name, 'Lead'),
			sr.email IS NOT NULL AS has_survey,
			COALESCE(sr.experience, '` + models.NoSurveyPlaceholder + `'),
			COALESCE(sr.language_skill, '` + models.NoSurveyPlaceholder + `'),
			COALESCE(sr.english_level, '` + models.NoSurveyPlaceholder + `'),
			COALESCE(sr.has_international_interview, '` + models.NoSurveyPlaceholder + `'),
			COALESCE(sr.international_interest, '` + models.NoSurveyPlaceholder + `'),
			COALESCE(sr.salary_range, '` + models.NoSurveyPlaceholder + `'),
			COALESCE(sr.lead_score, 0),
			COALESCE(cs.campaign_id, '` + models.UnknownDimension + `'),
			COALESCE(cs.campaign_name, cs.utm_campaign, '` + models.UnknownDimension + `'),
			COALESCE(cs.adset_id, '` + models.UnknownDimension + `'),
			COALESCE(cs.adset_name, cs.utm_medium, '` + models.UnknownDimension + `'),
			COALESCE(cs.creative_id, '` + models.UnknownDimension + `'),
			COALESCE(cs.creative_name, cs.utm_content, '` + models.UnknownDimension + `'),
			COALESCE(cs.utm_source, ''),
			COALESCE(cs.utm_medium, ''),
			COALESCE(cs.utm_campaign, ''),
			COALESCE(cs.utm_content, ''),
			COALESCE(cs.xcod, ''),
			COALESCE(le.attribution_source, 'unknown'),
			le.event_ts
		FROM lead_events le
		LEFT JOIN survey_responses sr ON sr.email = le.email
		LEFT JOIN LATERAL (
			SELECT ci.session_id
			FROM checkout_intents ci
			WHERE ci.email = le.email
			ORDER BY ci.created_at DESC, ci.id DESC
			LIMIT 1
		) latest_ci ON TRUE
		LEFT JOIN click_sessions cs
			ON cs.session_id = COALESCE(le.source_session_id, latest_ci.session_id)
		` + whereSQL

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead rows: %w", err)
	}
	defer rows.Close()

	var result []models.LeadRow
	for rows.Next() {
		var r models.LeadRow
		var attributionSource string
		if err := rows.Scan(
			&r.Email, &r.FirstName, &r.HasSurvey,
			&r.Experience, &r.LanguageSkill, &r.EnglishLevel,
			&r.HasInternationalInterview, &r.InternationalInterest,
			&r.SalaryRange, &r.LeadScore,
			&r.CampaignID, &r.CampaignName, &r.AdsetID, &r.AdsetName,
			&r.CreativeID, &r.CreativeName,
			&r.UTMSource, &r.UTMMedium, &r.UTMCampaign, &r.UTMContent,
			&r.Xcod, &attributionSource, &r.EventAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lead row: %w", err)
		}
		r.AttributionSource = models.AttributionSource(attributionSource)
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lead rows: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) AttributionReport(ctx context.Context) ([]models.AttributionReportRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT
			COALESCE(cs.creative_id, cs.utm_content, '`+models.UnknownDimension+`') AS creative_id,
			COUNT(DISTINCT cs.session_id) AS leads,
			COUNT(DISTINCT p.transaction_id) AS purchases,
			COALESCE(SUM(p.amount), 0) AS revenue,
			COALESCE(AVG(sr.lead_score), 0) AS avg_lead_score
		FROM click_sessions cs
		LEFT JOIN purchases p ON p.source_session_id = cs.session_id
		LEFT JOIN survey_responses sr ON sr.email = p.buyer_email
		GROUP BY COALESCE(cs.creative_id, cs.utm_content, '`+models.UnknownDimension+`')
		ORDER BY revenue DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query attribution report: %w", err)
	}
	defer rows.Close()

	var report []models.AttributionReportRow
	for rows.Next() {
		var r models.AttributionReportRow
		if err := rows.Scan(&r.CreativeID, &r.Leads, &r.Purchases, &r.Revenue, &r.AvgLeadScore); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		r.Revenue = round2(r.Revenue)
		r.AvgLeadScore = round2(r.AvgLeadScore)
		report = append(report, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read report rows: %w", err)
	}
	return report, nil
}

func joinClauses(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
