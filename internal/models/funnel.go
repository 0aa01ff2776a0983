package models

import "time"

// AttributionSource says how a purchase was linked back to a click session.
// It is a closed enumeration so the resolver's priority chain stays
// exhaustively checkable.
type AttributionSource string

const (
	// AttributionSrc means the webhook payload carried an explicit session id.
	AttributionSrc AttributionSource = "src"
	// AttributionFallbackEmail means the session came from the buyer's most
	// recent checkout intent.
	AttributionFallbackEmail AttributionSource = "fallback_email"
	// AttributionHotmartOrigin means a synthetic session was created from the
	// webhook's origin tracking blob.
	AttributionHotmartOrigin AttributionSource = "hotmart_origin"
	// AttributionUnknown means no session could be resolved.
	AttributionUnknown AttributionSource = "unknown"
)

// Sentinel values used wherever a join finds nothing. Dashboard consumers
// render these verbatim.
const (
	NoSurveyPlaceholder = "Sem pesquisa"
	UnknownDimension    = "desconhecido"
)

// ClickSession is one landing-page visit with its acquisition metadata.
// Dimension id/name pairs not supplied explicitly are derived by decoding the
// compound UTM fields at upsert time.
type ClickSession struct {
	SessionID    string    `json:"session_id"`
	LandingURL   string    `json:"landing_url"`
	UTMSource    string    `json:"utm_source,omitempty"`
	UTMMedium    string    `json:"utm_medium,omitempty"`
	UTMCampaign  string    `json:"utm_campaign,omitempty"`
	UTMContent   string    `json:"utm_content,omitempty"`
	UTMTerm      string    `json:"utm_term,omitempty"`
	AdID         string    `json:"ad_id,omitempty"`
	AdsetID      string    `json:"adset_id,omitempty"`
	CampaignID   string    `json:"campaign_id,omitempty"`
	CreativeID   string    `json:"creative_id,omitempty"`
	CampaignName string    `json:"campaign_name,omitempty"`
	AdsetName    string    `json:"adset_name,omitempty"`
	CreativeName string    `json:"creative_name,omitempty"`
	Xcod         string    `json:"xcod,omitempty"`
	Fbclid       string    `json:"fbclid,omitempty"`
	Gclid        string    `json:"gclid,omitempty"`
	Ttclid       string    `json:"ttclid,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CheckoutIntent records a buyer reaching the external checkout page. Rows
// are append-only; "most recent by CreatedAt" is the resolution rule wherever
// one intent per email is needed.
type CheckoutIntent struct {
	SessionID   string    `json:"session_id"`
	Email       string    `json:"email,omitempty"`
	CheckoutURL string    `json:"checkout_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Purchase is one payment-processor transaction, upserted by TransactionID.
type Purchase struct {
	TransactionID     string            `json:"transaction_id"`
	BuyerEmail        string            `json:"buyer_email"`
	BuyerName         string            `json:"buyer_name,omitempty"`
	Status            string            `json:"status"`
	Amount            float64           `json:"amount"`
	Currency          string            `json:"currency"`
	Event             string            `json:"event"`
	ApprovedAt        *time.Time        `json:"approved_at,omitempty"`
	SourceSessionID   string            `json:"source_session_id,omitempty"`
	AttributionSource AttributionSource `json:"attribution_source"`
	CreatedAt         time.Time         `json:"created_at"`
	PayloadJSON       string            `json:"-"`
}

// EventAt is the timestamp the dashboard filters on: approval time when the
// processor reported one, ingestion time otherwise.
func (p Purchase) EventAt() time.Time {
	if p.ApprovedAt != nil && !p.ApprovedAt.IsZero() {
		return *p.ApprovedAt
	}
	return p.CreatedAt
}

// SurveyResponse keeps one row per respondent email; later submissions
// overwrite earlier ones and the score is recomputed on every write.
type SurveyResponse struct {
	Email                     string    `json:"email"`
	FirstName                 string    `json:"first_name,omitempty"`
	Experience                string    `json:"experience"`
	LanguageSkill             string    `json:"language_skill"`
	EnglishLevel              string    `json:"english_level"`
	HasInternationalInterview string    `json:"has_international_interview"`
	InternationalInterest     string    `json:"international_interest"`
	SalaryRange               string    `json:"salary_range"`
	HelpText                  string    `json:"help_text"`
	TestEmail                 string    `json:"test_email,omitempty"`
	FormID                    string    `json:"form_id,omitempty"`
	FormName                  string    `json:"form_name,omitempty"`
	RawBodyJSON               string    `json:"-"`
	LeadScore                 int       `json:"lead_score"`
	LeadQualification         string    `json:"lead_qualification"`
	SubmittedAt               time.Time `json:"submitted_at"`
}
