package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gringalabs/leadscore/internal/metadata"
	"github.com/gringalabs/leadscore/internal/models"
	"github.com/gringalabs/leadscore/internal/storage"
)

// Synthetic URLs recorded for sessions and intents materialized from webhook
// data alone, with no landing-page visit behind them.
const (
	originWebhookLandingURL = "https://hotmart/origin-webhook"
	checkoutWebhookURL      = "https://hotmart/checkout-webhook"
)

// IngestPurchase resolves attribution for a purchase webhook and persists the
// purchase plus any synthetic session/intent rows needed to keep the email to
// session link queryable.
//
// Session resolution priority: explicit src in the payload, then the buyer's
// most recent checkout intent, then a synthetic session built from the
// webhook's origin tracking blob. Re-delivered webhooks re-run the same
// chain and overwrite the stored row, so ingestion stays idempotent per
// transaction id.
func (s *IngestService) IngestPurchase(ctx context.Context, payload map[string]any) (models.Purchase, error) {
	data := childMap(payload, "data")
	buyer := childMap(data, "buyer")
	purchase := childMap(data, "purchase")
	price := childMap(purchase, "price")
	purchaseOrigin := childMap(purchase, "origin")
	offerTracking := childMap(purchase, "tracking")
	dataTracking := childMap(data, "tracking")

	buyerEmail := storage.NormalizeEmail(optString(buyer["email"]))
	if buyerEmail == "" {
		return models.Purchase{}, ErrMissingBuyerEmail
	}

	transactionID := anyString(purchase["transaction"])
	if transactionID == "" {
		return models.Purchase{}, ErrMissingTransactionID
	}

	srcFromPayload := firstNonEmpty(
		optString(offerTracking["src"]),
		optString(dataTracking["src"]),
		optString(data["src"]),
		optString(payload["src"]),
	)
	originSck := firstNonEmpty(
		optString(purchaseOrigin["sck"]),
		optString(offerTracking["sck"]),
		optString(dataTracking["sck"]),
	)
	originXcod := firstNonEmpty(
		optString(purchaseOrigin["xcod"]),
		optString(offerTracking["xcod"]),
		optString(dataTracking["xcod"]),
	)
	origin := metadata.DecodeOriginBlob(firstNonEmpty(originSck, originXcod))

	sourceSessionID := srcFromPayload
	attribution := models.AttributionUnknown
	if sourceSessionID == "" {
		intent, err := s.store.LatestCheckoutIntentByEmail(ctx, buyerEmail)
		if err != nil {
			return models.Purchase{}, fmt.Errorf("failed to resolve checkout intent: %w", err)
		}
		if intent != nil {
			sourceSessionID = intent.SessionID
			attribution = models.AttributionFallbackEmail
		}
	}
	if srcFromPayload != "" {
		attribution = models.AttributionSrc
	}

	// No src and no intent to match: materialize a session from the origin
	// blob so the purchase still lands on the right creative.
	if sourceSessionID == "" && origin != nil {
		sourceSessionID = "hotmart-origin-" + transactionID
		attribution = models.AttributionHotmartOrigin
	}

	if sourceSessionID != "" && origin != nil {
		session := models.ClickSession{
			SessionID:    sourceSessionID,
			LandingURL:   originWebhookLandingURL,
			UTMSource:    origin.Source,
			UTMCampaign:  metadata.Encode(origin.CampaignName, origin.CampaignID),
			UTMMedium:    metadata.Encode(origin.AdsetName, origin.AdsetID),
			UTMContent:   metadata.Encode(origin.CreativeName, origin.CreativeID),
			UTMTerm:      origin.Placement,
			CampaignID:   origin.CampaignID,
			AdsetID:      origin.AdsetID,
			CreativeID:   origin.CreativeID,
			CampaignName: origin.CampaignName,
			AdsetName:    origin.AdsetName,
			CreativeName: origin.CreativeName,
			Xcod:         firstNonEmpty(originXcod, originSck),
		}
		if err := s.store.UpsertClickSession(ctx, session); err != nil {
			return models.Purchase{}, fmt.Errorf("failed to upsert origin session: %w", err)
		}
	}

	rawPayload, err := json.Marshal(payload)
	if err != nil {
		rawPayload = nil
	}

	p := models.Purchase{
		TransactionID:     transactionID,
		BuyerEmail:        buyerEmail,
		BuyerName:         optString(buyer["name"]),
		Status:            firstNonEmpty(optString(purchase["status"]), "UNKNOWN"),
		Amount:            anyFloat(price["value"]),
		Currency:          firstNonEmpty(optString(price["currency_value"]), "BRL"),
		Event:             firstNonEmpty(optString(payload["event"]), "UNKNOWN"),
		ApprovedAt:        epochMillis(purchase["approved_date"]),
		SourceSessionID:   sourceSessionID,
		AttributionSource: attribution,
		CreatedAt:         time.Now().UTC(),
		PayloadJSON:       string(rawPayload),
	}
	if err := s.store.UpsertPurchase(ctx, p); err != nil {
		return models.Purchase{}, fmt.Errorf("failed to upsert purchase: %w", err)
	}

	// Keep the email to session link queryable even when the buyer never went
	// through the tracked checkout step.
	if sourceSessionID != "" {
		intent := models.CheckoutIntent{
			SessionID:   sourceSessionID,
			Email:       buyerEmail,
			CheckoutURL: checkoutWebhookURL,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.store.AppendCheckoutIntent(ctx, intent); err != nil {
			return models.Purchase{}, fmt.Errorf("failed to append webhook intent: %w", err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordPurchase(string(attribution), p.Event, p.Currency, p.Amount)
	}
	s.cache.Invalidate(ctx)
	s.logger.Info("purchase ingested",
		zap.String("transaction_id", transactionID),
		zap.String("attribution_source", string(attribution)),
		zap.Float64("amount", p.Amount),
	)
	return p, nil
}
