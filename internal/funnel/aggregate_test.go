package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gringalabs/leadscore/internal/models"
)

func leadRow(campaign, campaignID, utmSource, xcod string, score int, hasSurvey bool) models.LeadRow {
	return models.LeadRow{
		Email:        campaignID + "@example.com",
		HasSurvey:    hasSurvey,
		LeadScore:    score,
		CampaignID:   campaignID,
		CampaignName: campaign,
		AdsetID:      "a1",
		AdsetName:    "Adset",
		CreativeID:   "c1",
		CreativeName: "Criativo",
		UTMSource:    utmSource,
		Xcod:         xcod,
	}
}

func TestBuildDashboardTotals(t *testing.T) {
	rows := []models.LeadRow{
		leadRow("PQ Campanha", "1", "fb", "", 90, true),
		leadRow("PF Campanha", "2", "fb", "", 30, true),
		leadRow("Outra", "3", "", "", 0, false),
	}

	d := BuildDashboard(rows, models.DashboardFilters{})

	assert.Equal(t, 3, d.Totals.FilteredLeads)
	assert.Equal(t, 2, d.Totals.RespondedLeads)
	assert.Equal(t, 0.6667, d.Totals.ResponseRate)
	assert.Equal(t, 120.0, d.Totals.FilteredLeadScoreSum)
	assert.Equal(t, 40.0, d.Totals.FilteredLeadScoreAvg)
}

func TestBuildDashboardEmpty(t *testing.T) {
	d := BuildDashboard(nil, models.DashboardFilters{})

	assert.Equal(t, 0, d.Totals.FilteredLeads)
	assert.Equal(t, 0.0, d.Totals.ResponseRate)
	assert.Equal(t, "Sem dados", d.Insights.TopCampaignName)
	assert.Empty(t, d.Tree)
}

func TestBuildDashboardAcquisition(t *testing.T) {
	rows := []models.LeadRow{
		leadRow("PQ A", "1", "fb", "", 50, true),
		leadRow("PQ A", "1", "", "xcod-val", 50, true),
		// org prefix forces organic even with UTM values present
		leadRow("PQ B", "2", "organico", "", 50, true),
		leadRow("Outra", "3", "", "ORGanic", 50, true),
		leadRow("Outra", "4", "", "", 50, false),
	}

	d := BuildDashboard(rows, models.DashboardFilters{})

	assert.Equal(t, 2, d.Acquisition.Paid.Count)
	assert.Equal(t, 3, d.Acquisition.Organic.Count)
	assert.Equal(t, 0.4, d.Acquisition.Paid.Proportion)
	assert.Equal(t, 0.6, d.Acquisition.Organic.Proportion)
}

func TestBuildDashboardHeatAndScoreBands(t *testing.T) {
	rows := []models.LeadRow{
		leadRow("PQ Campanha", "1", "fb", "", 90, true),
		leadRow("pq minúscula", "2", "fb", "", 80, true),
		leadRow("PF Campanha", "3", "fb", "", 20, true),
		leadRow("Outra", "4", "fb", "", 50, true),
	}

	d := BuildDashboard(rows, models.DashboardFilters{})

	assert.Equal(t, 2, d.CampaignHeat.QuentePQ.Count)
	assert.Equal(t, 1, d.CampaignHeat.FrioPF.Count)
	assert.Equal(t, 1, d.CampaignHeat.Other.Count)

	// score bands mirror the heat classification
	assert.Equal(t, d.CampaignHeat.QuentePQ, d.ScoreBands.Hot)
	assert.Equal(t, d.CampaignHeat.FrioPF, d.ScoreBands.Cold)
	assert.Equal(t, d.CampaignHeat.Other, d.ScoreBands.Warm)
}

func TestBuildDashboardHotRates(t *testing.T) {
	rows := []models.LeadRow{
		leadRow("PQ A", "1", "fb", "", 50, true),
		leadRow("Outra", "2", "fb", "", 50, true),
		leadRow("PQ B", "3", "", "", 50, true),
		leadRow("Outra", "4", "", "", 50, true),
	}

	d := BuildDashboard(rows, models.DashboardFilters{})

	assert.Equal(t, 0.5, d.Insights.PaidHotRate)
	assert.Equal(t, 0.5, d.Insights.OrganicHotRate)
}

func TestBuildDashboardQuestions(t *testing.T) {
	rows := []models.LeadRow{
		{Experience: "6 meses", LeadScore: 10},
		{Experience: "6 meses", LeadScore: 10},
		{Experience: "mais de 1 ano", LeadScore: 10},
		{Experience: "", LeadScore: 10},
	}

	d := BuildDashboard(rows, models.DashboardFilters{Experience: "6 meses"})

	require.Len(t, d.Questions, 6)
	q := d.Questions[0]
	assert.Equal(t, "experience", q.Key)
	assert.Equal(t, "Tempo de experiência", q.Title)
	assert.Equal(t, "6 meses", q.Selected)

	require.Len(t, q.Slices, 3)
	// sorted by count descending
	assert.Equal(t, "6 meses", q.Slices[0].Label)
	assert.Equal(t, 2, q.Slices[0].Count)
	assert.Equal(t, 0.5, q.Slices[0].Proportion)
	// empty answers surface under a visible label
	labels := []string{q.Slices[1].Label, q.Slices[2].Label}
	assert.Contains(t, labels, "Não informado")
}

func TestBuildDashboardDimensions(t *testing.T) {
	rows := []models.LeadRow{
		leadRow("Campanha A", "1", "fb", "", 50, true),
		leadRow("Campanha B", "2", "fb", "", 50, true),
		leadRow("Campanha B", "2", "fb", "", 50, true),
	}

	d := BuildDashboard(rows, models.DashboardFilters{CampaignID: "2"})

	require.Len(t, d.Dimensions.Campaigns, 2)
	assert.Equal(t, "2", d.Dimensions.Campaigns[0].ID)
	assert.Equal(t, "Campanha B", d.Dimensions.Campaigns[0].Name)
	assert.Equal(t, 2, d.Dimensions.Campaigns[0].Count)
	assert.Equal(t, "2", d.Dimensions.SelectedCampaignID)

	assert.Equal(t, "Campanha B", d.Insights.TopCampaignName)
	assert.Equal(t, 2, d.Insights.TopCampaignLeads)
}

func TestBuildTree(t *testing.T) {
	rows := []models.LeadRow{
		{CampaignID: "c1", CampaignName: "Campanha", AdsetID: "a1", AdsetName: "Adset 1", CreativeID: "cr1", CreativeName: "Criativo 1", LeadScore: 60},
		{CampaignID: "c1", CampaignName: "Campanha", AdsetID: "a1", AdsetName: "Adset 1", CreativeID: "cr2", CreativeName: "Criativo 2", LeadScore: 20},
		{CampaignID: "c1", CampaignName: "Campanha", AdsetID: "a2", AdsetName: "Adset 2", CreativeID: "cr3", CreativeName: "Criativo 3", LeadScore: 90},
	}

	tree := BuildDashboard(rows, models.DashboardFilters{}).Tree
	require.Len(t, tree, 1)

	campaign := tree[0]
	assert.Equal(t, "c1", campaign.ID)
	assert.Equal(t, 3, campaign.LeadCount)
	assert.Equal(t, 170.0, campaign.LeadScoreSum)
	assert.Equal(t, 56.67, campaign.LeadScoreAvg)

	require.Len(t, campaign.Children, 2)
	// adsets sorted by lead score sum descending
	assert.Equal(t, "c1::a2", campaign.Children[0].ID)
	assert.Equal(t, 90.0, campaign.Children[0].LeadScoreSum)
	assert.Equal(t, "c1::a1", campaign.Children[1].ID)
	assert.Equal(t, 80.0, campaign.Children[1].LeadScoreSum)

	// parent lead count equals the sum over its children
	childLeads := 0
	for _, adset := range campaign.Children {
		childLeads += adset.LeadCount
	}
	assert.Equal(t, campaign.LeadCount, childLeads)

	creatives := campaign.Children[1].Children
	require.Len(t, creatives, 2)
	assert.Equal(t, "c1::a1::cr1", creatives[0].ID)
	assert.NotNil(t, creatives[0].Children)
	assert.Empty(t, creatives[0].Children)
}

func TestBuildTreeSeparatesSameNamedAdsets(t *testing.T) {
	rows := []models.LeadRow{
		{CampaignID: "c1", CampaignName: "A", AdsetID: "a1", AdsetName: "Adset", CreativeID: "cr1", LeadScore: 10},
		{CampaignID: "c2", CampaignName: "B", AdsetID: "a1", AdsetName: "Adset", CreativeID: "cr1", LeadScore: 10},
	}

	tree := BuildDashboard(rows, models.DashboardFilters{}).Tree
	require.Len(t, tree, 2)
	assert.Equal(t, 1, tree[0].LeadCount)
	assert.Equal(t, 1, tree[1].LeadCount)
}
