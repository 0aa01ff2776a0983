package funnel

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gringalabs/leadscore/internal/models"
	"github.com/gringalabs/leadscore/internal/storage"
)

func newDashboardFixture(t *testing.T) (*DashboardService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewDashboardService(store, zap.NewNop(), nil, nil), store
}

func seedFunnel(t *testing.T, store *storage.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.UpsertClickSession(ctx, models.ClickSession{
		SessionID: "s1", LandingURL: "u",
		UTMSource: "fb", UTMCampaign: "PQ Campanha|111",
	}))
	require.NoError(t, store.UpsertSurveyResponse(ctx, models.SurveyResponse{
		Email: "lead@example.com", FirstName: "Maria",
		Experience: "6 meses", LanguageSkill: "x", EnglishLevel: "x",
		HasInternationalInterview: "x", InternationalInterest: "x",
		SalaryRange: "x", HelpText: "x",
		LeadScore: 85, LeadQualification: "quente",
	}))
	require.NoError(t, store.UpsertPurchase(ctx, models.Purchase{
		TransactionID: "tx1", BuyerEmail: "lead@example.com",
		Status: "APPROVED", Amount: 497, Currency: "BRL", Event: "PURCHASE_APPROVED",
		SourceSessionID: "s1", AttributionSource: models.AttributionSrc,
	}))
}

func TestDashboardService(t *testing.T) {
	svc, store := newDashboardFixture(t)
	seedFunnel(t, store)

	d, err := svc.Dashboard(context.Background(), models.DashboardFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Totals.FilteredLeads)
	assert.Equal(t, 1, d.CampaignHeat.QuentePQ.Count)
	assert.Equal(t, "PQ Campanha", d.Insights.TopCampaignName)
}

func TestDashboardServiceEmptyStore(t *testing.T) {
	svc, _ := newDashboardFixture(t)

	rows, err := svc.LeadRows(context.Background(), models.DashboardFilters{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	report, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, report)
	assert.Empty(t, report)
}

func TestCSVExport(t *testing.T) {
	svc, store := newDashboardFixture(t)
	seedFunnel(t, store)

	out, err := svc.CSV(context.Background(), models.DashboardFilters{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "email,firstName,hasSurvey,"))
	assert.True(t, strings.HasPrefix(lines[1], "lead@example.com,Maria,1,"))
	assert.Contains(t, lines[1], ",src")
}

func TestCSVExportEmpty(t *testing.T) {
	svc, _ := newDashboardFixture(t)

	out, err := svc.CSV(context.Background(), models.DashboardFilters{})
	require.NoError(t, err)
	assert.Equal(t, "sem_dados\n", string(out))
}
