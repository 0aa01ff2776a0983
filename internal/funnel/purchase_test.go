package funnel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gringalabs/leadscore/internal/models"
)

const testOriginBlob = "fbhQwK21wXxRCampanha PQ|111hQwK21wXxRAdset A|222hQwK21wXxRCriativo X|333"

func purchasePayload(overrides map[string]any) map[string]any {
	payload := map[string]any{
		"event": "PURCHASE_APPROVED",
		"data": map[string]any{
			"buyer": map[string]any{
				"email": "Buyer@Example.com",
				"name":  "Maria",
			},
			"purchase": map[string]any{
				"transaction":   "HP123",
				"status":        "APPROVED",
				"approved_date": float64(1741611600000),
				"price": map[string]any{
					"value":          497.0,
					"currency_value": "BRL",
				},
			},
		},
	}
	for k, v := range overrides {
		payload[k] = v
	}
	return payload
}

func TestIngestPurchaseSrcAttribution(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	payload := purchasePayload(nil)
	payload["data"].(map[string]any)["purchase"].(map[string]any)["tracking"] = map[string]any{
		"src": "s-src",
	}

	p, err := svc.IngestPurchase(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "HP123", p.TransactionID)
	assert.Equal(t, "buyer@example.com", p.BuyerEmail)
	assert.Equal(t, "s-src", p.SourceSessionID)
	assert.Equal(t, models.AttributionSrc, p.AttributionSource)
	assert.Equal(t, 497.0, p.Amount)
	require.NotNil(t, p.ApprovedAt)
	assert.Equal(t, time.UnixMilli(1741611600000).UTC(), *p.ApprovedAt)

	// a synthetic intent keeps the email to session link queryable
	intent, err := store.LatestCheckoutIntentByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Equal(t, "s-src", intent.SessionID)
	assert.Equal(t, checkoutWebhookURL, intent.CheckoutURL)
}

func TestIngestPurchaseFallbackEmailAttribution(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	require.NoError(t, store.AppendCheckoutIntent(ctx, models.CheckoutIntent{
		SessionID: "s-intent", Email: "buyer@example.com", CheckoutURL: "u",
		CreatedAt: time.Now().UTC(),
	}))

	p, err := svc.IngestPurchase(ctx, purchasePayload(nil))
	require.NoError(t, err)
	assert.Equal(t, "s-intent", p.SourceSessionID)
	assert.Equal(t, models.AttributionFallbackEmail, p.AttributionSource)
}

func TestIngestPurchaseHotmartOriginAttribution(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	payload := purchasePayload(nil)
	payload["data"].(map[string]any)["purchase"].(map[string]any)["origin"] = map[string]any{
		"sck": testOriginBlob,
	}

	p, err := svc.IngestPurchase(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "hotmart-origin-HP123", p.SourceSessionID)
	assert.Equal(t, models.AttributionHotmartOrigin, p.AttributionSource)

	rows, err := store.LeadRows(ctx, models.DashboardFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "111", rows[0].CampaignID)
	assert.Equal(t, "Campanha PQ", rows[0].CampaignName)
	assert.Equal(t, "Criativo X", rows[0].CreativeName)
	assert.Equal(t, "fb", rows[0].UTMSource)
	assert.Equal(t, testOriginBlob, rows[0].Xcod)
}

func TestIngestPurchaseUnknownAttribution(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	p, err := svc.IngestPurchase(ctx, purchasePayload(nil))
	require.NoError(t, err)
	assert.Equal(t, "", p.SourceSessionID)
	assert.Equal(t, models.AttributionUnknown, p.AttributionSource)

	// nothing to link: no synthetic intent is written
	intent, err := store.LatestCheckoutIntentByEmail(ctx, "buyer@example.com")
	require.NoError(t, err)
	assert.Nil(t, intent)
}

func TestIngestPurchaseSrcBeatsIntentAndOrigin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	require.NoError(t, store.AppendCheckoutIntent(ctx, models.CheckoutIntent{
		SessionID: "s-intent", Email: "buyer@example.com", CheckoutURL: "u",
		CreatedAt: time.Now().UTC(),
	}))

	payload := purchasePayload(map[string]any{"src": "s-root"})
	payload["data"].(map[string]any)["purchase"].(map[string]any)["origin"] = map[string]any{
		"sck": testOriginBlob,
	}

	p, err := svc.IngestPurchase(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, "s-root", p.SourceSessionID)
	assert.Equal(t, models.AttributionSrc, p.AttributionSource)
}

func TestIngestPurchaseOriginEnrichesSrcSession(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	payload := purchasePayload(map[string]any{"src": "s-src"})
	payload["data"].(map[string]any)["purchase"].(map[string]any)["origin"] = map[string]any{
		"xcod": testOriginBlob,
	}

	_, err := svc.IngestPurchase(ctx, payload)
	require.NoError(t, err)

	rows, err := store.LeadRows(ctx, models.DashboardFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// the origin blob is written onto the src session itself
	assert.Equal(t, "111", rows[0].CampaignID)
}

func TestIngestPurchaseIdempotentRedelivery(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.IngestPurchase(ctx, purchasePayload(nil))
	require.NoError(t, err)
	_, err = svc.IngestPurchase(ctx, purchasePayload(nil))
	require.NoError(t, err)

	rows, err := store.LeadRows(ctx, models.DashboardFilters{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestIngestPurchaseDefaults(t *testing.T) {
	svc, _ := newTestService()

	payload := map[string]any{
		"data": map[string]any{
			"buyer":    map[string]any{"email": "buyer@example.com"},
			"purchase": map[string]any{"transaction": "HP1"},
		},
	}
	p, err := svc.IngestPurchase(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "UNKNOWN", p.Status)
	assert.Equal(t, "BRL", p.Currency)
	assert.Equal(t, "UNKNOWN", p.Event)
	assert.Nil(t, p.ApprovedAt)
	assert.Equal(t, 0.0, p.Amount)
}

func TestIngestPurchaseNumericTransactionID(t *testing.T) {
	svc, _ := newTestService()

	payload := map[string]any{
		"data": map[string]any{
			"buyer":    map[string]any{"email": "buyer@example.com"},
			"purchase": map[string]any{"transaction": float64(12345)},
		},
	}
	p, err := svc.IngestPurchase(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "12345", p.TransactionID)
}

func TestIngestPurchaseValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.IngestPurchase(ctx, map[string]any{
		"data": map[string]any{
			"purchase": map[string]any{"transaction": "HP1"},
		},
	})
	require.ErrorIs(t, err, ErrMissingBuyerEmail)

	_, err = svc.IngestPurchase(ctx, map[string]any{
		"data": map[string]any{
			"buyer": map[string]any{"email": "buyer@example.com"},
		},
	})
	require.ErrorIs(t, err, ErrMissingTransactionID)
}
