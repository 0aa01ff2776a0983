package funnel

import (
	"math"
	"sort"
	"strings"

	"github.com/gringalabs/leadscore/internal/models"
)

// BuildDashboard aggregates filtered lead rows into the full dashboard
// payload. Pure function over the rows; persistence and caching live in
// DashboardService.
func BuildDashboard(rows []models.LeadRow, filters models.DashboardFilters) *models.Dashboard {
	d := &models.Dashboard{}

	total := len(rows)
	responded := 0
	scoreSum := 0.0
	paidRows := 0
	paidHot := 0
	organicHot := 0
	heatPQ := 0
	heatPF := 0

	for _, row := range rows {
		if row.HasSurvey {
			responded++
		}
		scoreSum += float64(row.LeadScore)

		paid := isPaidLead(row)
		hot := campaignHeat(row) == heatQuentePQ
		if paid {
			paidRows++
			if hot {
				paidHot++
			}
		} else if hot {
			organicHot++
		}
		switch campaignHeat(row) {
		case heatQuentePQ:
			heatPQ++
		case heatFrioPF:
			heatPF++
		}
	}
	organicRows := total - paidRows

	d.Totals.FilteredLeads = total
	d.Totals.RespondedLeads = responded
	d.Totals.ResponseRate = proportion(responded, total)
	d.Totals.FilteredLeadScoreSum = round2(scoreSum)
	if total > 0 {
		d.Totals.FilteredLeadScoreAvg = round2(scoreSum / float64(total))
	}

	d.Acquisition.Paid = bucket(paidRows, total)
	d.Acquisition.Organic = bucket(organicRows, total)

	d.CampaignHeat.QuentePQ = bucket(heatPQ, total)
	d.CampaignHeat.FrioPF = bucket(heatPF, total)
	d.CampaignHeat.Other = bucket(total-heatPQ-heatPF, total)

	// Score bands reuse the campaign-name heat classification: hot is PQ,
	// cold is PF, warm is everything else.
	d.ScoreBands.Hot = bucket(heatPQ, total)
	d.ScoreBands.Cold = bucket(heatPF, total)
	d.ScoreBands.Warm = bucket(total-heatPQ-heatPF, total)

	d.Questions = []models.Question{
		buildQuestion("experience", "Tempo de experiência", filters.Experience, rows, func(r models.LeadRow) string { return r.Experience }),
		buildQuestion("languageSkill", "Domínio de linguagem", filters.LanguageSkill, rows, func(r models.LeadRow) string { return r.LanguageSkill }),
		buildQuestion("englishLevel", "Nível de inglês", filters.EnglishLevel, rows, func(r models.LeadRow) string { return r.EnglishLevel }),
		buildQuestion("hasInternationalInterview", "Entrevista internacional", filters.HasInternationalInterview, rows, func(r models.LeadRow) string { return r.HasInternationalInterview }),
		buildQuestion("internationalInterest", "Interesse internacional", filters.InternationalInterest, rows, func(r models.LeadRow) string { return r.InternationalInterest }),
		buildQuestion("salaryRange", "Faixa salarial", filters.SalaryRange, rows, func(r models.LeadRow) string { return r.SalaryRange }),
	}

	campaigns := buildDimensionOptions(rows,
		func(r models.LeadRow) (string, string) { return r.CampaignID, r.CampaignName })
	d.Dimensions.Campaigns = campaigns
	d.Dimensions.Adsets = buildDimensionOptions(rows,
		func(r models.LeadRow) (string, string) { return r.AdsetID, r.AdsetName })
	d.Dimensions.Creatives = buildDimensionOptions(rows,
		func(r models.LeadRow) (string, string) { return r.CreativeID, r.CreativeName })
	d.Dimensions.SelectedCampaignID = filters.CampaignID
	d.Dimensions.SelectedAdsetID = filters.AdsetID
	d.Dimensions.SelectedCreativeID = filters.CreativeID

	d.Insights.TopCampaignName = "Sem dados"
	if len(campaigns) > 0 {
		d.Insights.TopCampaignName = campaigns[0].Name
		d.Insights.TopCampaignLeads = campaigns[0].Count
	}
	d.Insights.PaidHotRate = proportion(paidHot, paidRows)
	d.Insights.OrganicHotRate = proportion(organicHot, organicRows)

	d.Tree = buildTree(rows)
	return d
}

func bucket(count, total int) models.Bucket {
	return models.Bucket{Count: count, Proportion: proportion(count, total)}
}

func proportion(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return round4(float64(count) / float64(total))
}

// isPaidLead classifies acquisition. Origin codes prefixed "org" mark the
// lead organic regardless of any UTM values present.
func isPaidLead(row models.LeadRow) bool {
	source := strings.ToLower(strings.TrimSpace(row.UTMSource))
	xcod := strings.ToLower(strings.TrimSpace(row.Xcod))
	if strings.HasPrefix(source, "org") || strings.HasPrefix(xcod, "org") {
		return false
	}
	return strings.TrimSpace(row.UTMSource) != "" ||
		strings.TrimSpace(row.UTMMedium) != "" ||
		strings.TrimSpace(row.UTMCampaign) != "" ||
		strings.TrimSpace(row.UTMContent) != "" ||
		strings.TrimSpace(row.Xcod) != ""
}

type heat string

const (
	heatQuentePQ heat = "PQ"
	heatFrioPF   heat = "PF"
	heatOther    heat = "OTHER"
)

func campaignHeat(row models.LeadRow) heat {
	campaign := strings.ToUpper(strings.TrimSpace(row.CampaignName))
	switch {
	case strings.HasPrefix(campaign, "PQ"):
		return heatQuentePQ
	case strings.HasPrefix(campaign, "PF"):
		return heatFrioPF
	default:
		return heatOther
	}
}

func buildQuestion(key, title, selected string, rows []models.LeadRow, value func(models.LeadRow) string) models.Question {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, row := range rows {
		label := value(row)
		if label == "" {
			label = "Não informado"
		}
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}

	total := len(rows)
	slices := make([]models.PieSlice, 0, len(order))
	for _, label := range order {
		slices = append(slices, models.PieSlice{
			Label:      label,
			Count:      counts[label],
			Proportion: proportion(counts[label], total),
		})
	}
	sort.SliceStable(slices, func(i, j int) bool { return slices[i].Count > slices[j].Count })

	return models.Question{Key: key, Title: title, Selected: selected, Slices: slices}
}

func buildDimensionOptions(rows []models.LeadRow, pick func(models.LeadRow) (id, name string)) []models.DimensionOption {
	byID := make(map[string]*models.DimensionOption)
	order := make([]string, 0)
	for _, row := range rows {
		id, name := pick(row)
		if id == "" {
			id = models.UnknownDimension
		}
		if name == "" {
			name = models.UnknownDimension
		}
		if existing, ok := byID[id]; ok {
			existing.Count++
			continue
		}
		byID[id] = &models.DimensionOption{ID: id, Name: name, Count: 1}
		order = append(order, id)
	}

	options := make([]models.DimensionOption, 0, len(order))
	for _, id := range order {
		options = append(options, *byID[id])
	}
	sort.SliceStable(options, func(i, j int) bool { return options[i].Count > options[j].Count })
	return options
}

type rollupNode struct {
	node     *models.TreeNode
	children map[string]*rollupNode
	order    []string
}

// buildTree rolls the rows up into campaign > adset > creative. Child keys
// compose the parent key with "::" so same-named adsets under different
// campaigns stay separate nodes.
func buildTree(rows []models.LeadRow) []*models.TreeNode {
	root := &rollupNode{children: make(map[string]*rollupNode)}

	for _, row := range rows {
		campaignKey := row.CampaignID
		adsetKey := campaignKey + "::" + row.AdsetID
		creativeKey := adsetKey + "::" + row.CreativeID

		campaign := ensureNode(root, campaignKey, row.CampaignName, row.LeadScore)
		adset := ensureNode(campaign, adsetKey, row.AdsetName, row.LeadScore)
		ensureNode(adset, creativeKey, row.CreativeName, row.LeadScore)
	}

	return normalizeChildren(root)
}

func ensureNode(parent *rollupNode, id, name string, leadScore int) *rollupNode {
	if existing, ok := parent.children[id]; ok {
		existing.node.LeadCount++
		existing.node.LeadScoreSum += float64(leadScore)
		return existing
	}
	created := &rollupNode{
		node: &models.TreeNode{
			ID:           id,
			Name:         name,
			LeadCount:    1,
			LeadScoreSum: float64(leadScore),
		},
		children: make(map[string]*rollupNode),
	}
	parent.children[id] = created
	parent.order = append(parent.order, id)
	return created
}

func normalizeChildren(parent *rollupNode) []*models.TreeNode {
	nodes := make([]*models.TreeNode, 0, len(parent.order))
	for _, id := range parent.order {
		child := parent.children[id]
		node := child.node
		if node.LeadCount > 0 {
			node.LeadScoreAvg = round2(node.LeadScoreSum / float64(node.LeadCount))
		}
		node.LeadScoreSum = round2(node.LeadScoreSum)
		node.Children = normalizeChildren(child)
		nodes = append(nodes, node)
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].LeadScoreSum > nodes[j].LeadScoreSum
	})
	return nodes
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
