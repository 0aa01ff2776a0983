package models

import "time"

// DashboardFilters is the full filter parameter set accepted by the dashboard
// queries. All fields are optional and AND-combined; empty means "no filter".
// StartDate/EndDate are YYYY-MM-DD strings — malformed values are silently
// dropped, never an error.
type DashboardFilters struct {
	StartDate                 string `json:"startDate,omitempty"`
	EndDate                   string `json:"endDate,omitempty"`
	Experience                string `json:"experience,omitempty"`
	LanguageSkill             string `json:"languageSkill,omitempty"`
	EnglishLevel              string `json:"englishLevel,omitempty"`
	HasInternationalInterview string `json:"hasInternationalInterview,omitempty"`
	InternationalInterest     string `json:"internationalInterest,omitempty"`
	SalaryRange               string `json:"salaryRange,omitempty"`
	CampaignID                string `json:"campaignId,omitempty"`
	AdsetID                   string `json:"adsetId,omitempty"`
	CreativeID                string `json:"creativeId,omitempty"`
}

// LeadRow is the denormalized projection: one row per purchase, left-joined
// to the buyer's survey and attributed click session. Missing joins are
// filled with sentinel placeholders, never omitted.
type LeadRow struct {
	Email                     string            `json:"email"`
	FirstName                 string            `json:"firstName"`
	HasSurvey                 bool              `json:"hasSurvey"`
	Experience                string            `json:"experience"`
	LanguageSkill             string            `json:"languageSkill"`
	EnglishLevel              string            `json:"englishLevel"`
	HasInternationalInterview string            `json:"hasInternationalInterview"`
	InternationalInterest     string            `json:"internationalInterest"`
	SalaryRange               string            `json:"salaryRange"`
	LeadScore                 int               `json:"leadScore"`
	CampaignID                string            `json:"campaignId"`
	CampaignName              string            `json:"campaignName"`
	AdsetID                   string            `json:"adsetId"`
	AdsetName                 string            `json:"adsetName"`
	CreativeID                string            `json:"creativeId"`
	CreativeName              string            `json:"creativeName"`
	UTMSource                 string            `json:"utmSource"`
	UTMMedium                 string            `json:"utmMedium"`
	UTMCampaign               string            `json:"utmCampaign"`
	UTMContent                string            `json:"utmContent"`
	Xcod                      string            `json:"xcod"`
	AttributionSource         AttributionSource `json:"attributionSource"`
	EventAt                   time.Time         `json:"-"`
}

// Bucket is a count with its proportion of the filtered total.
type Bucket struct {
	Count      int     `json:"count"`
	Proportion float64 `json:"proportion"`
}

// PieSlice is one answer bucket of a per-question distribution.
type PieSlice struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Proportion float64 `json:"proportion"`
}

// Question is the answer distribution for one survey field.
type Question struct {
	Key      string     `json:"key"`
	Title    string     `json:"title"`
	Selected string     `json:"selected,omitempty"`
	Slices   []PieSlice `json:"slices"`
}

// DimensionOption is one entry of a campaign/adset/creative picker.
type DimensionOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TreeNode is one node of the campaign→adset→creative rollup tree. Each node
// owns its children directly; keys compose as
// campaignId, campaignId::adsetId, campaignId::adsetId::creativeId.
type TreeNode struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	LeadCount    int         `json:"leadCount"`
	LeadScoreSum float64     `json:"leadScoreSum"`
	LeadScoreAvg float64     `json:"leadScoreAvg"`
	Children     []*TreeNode `json:"children"`
}

// Dashboard is the full aggregated payload served to the UI.
type Dashboard struct {
	Totals struct {
		FilteredLeads        int     `json:"filteredLeads"`
		RespondedLeads       int     `json:"respondedLeads"`
		ResponseRate         float64 `json:"responseRate"`
		FilteredLeadScoreAvg float64 `json:"filteredLeadScoreAvg"`
		FilteredLeadScoreSum float64 `json:"filteredLeadScoreSum"`
	} `json:"totals"`
	Acquisition struct {
		Paid    Bucket `json:"paid"`
		Organic Bucket `json:"organic"`
	} `json:"acquisition"`
	CampaignHeat struct {
		QuentePQ Bucket `json:"quentePQ"`
		FrioPF   Bucket `json:"frioPF"`
		Other    Bucket `json:"other"`
	} `json:"campaignHeat"`
	ScoreBands struct {
		Hot  Bucket `json:"hot"`
		Warm Bucket `json:"warm"`
		Cold Bucket `json:"cold"`
	} `json:"scoreBands"`
	Insights struct {
		TopCampaignName string  `json:"topCampaignName"`
		TopCampaignLeads int    `json:"topCampaignLeads"`
		PaidHotRate     float64 `json:"paidHotRate"`
		OrganicHotRate  float64 `json:"organicHotRate"`
	} `json:"insights"`
	Questions  []Question `json:"questions"`
	Dimensions struct {
		Campaigns          []DimensionOption `json:"campaigns"`
		Adsets             []DimensionOption `json:"adsets"`
		Creatives          []DimensionOption `json:"creatives"`
		SelectedCampaignID string            `json:"selectedCampaignId,omitempty"`
		SelectedAdsetID    string            `json:"selectedAdsetId,omitempty"`
		SelectedCreativeID string            `json:"selectedCreativeId,omitempty"`
	} `json:"dimensions"`
	Tree []*TreeNode `json:"tree"`
}

// AttributionReportRow is one creative-level line of the all-time report.
type AttributionReportRow struct {
	CreativeID   string  `json:"creativeId"`
	Leads        int     `json:"leads"`
	Purchases    int     `json:"purchases"`
	Revenue      float64 `json:"revenue"`
	AvgLeadScore float64 `json:"avgLeadScore"`
}
