package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gringalabs/leadscore/internal/config"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.Checkout.BaseURL = "https://pay.example.com/offer"
	return NewServer(&Dependencies{Config: cfg, Logger: zap.NewNop()})
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func getJSON(t *testing.T, handler http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t)

	var body map[string]string
	rec := getJSON(t, handler, "/health", &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestTrackClickToDashboardRows(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler, "/api/track-click", `{
		"sessionId": "s1",
		"landingUrl": "https://lp.example.com/?utm_source=fb&utm_campaign=PQ%20Campanha%7C111"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, handler, "/webhook/hotmart", `{
		"event": "PURCHASE_APPROVED",
		"data": {
			"buyer": {"email": "lead@example.com"},
			"purchase": {
				"transaction": "HP1",
				"status": "APPROVED",
				"price": {"value": 497, "currency_value": "BRL"},
				"tracking": {"src": "s1"}
			}
		}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Rows []map[string]any `json:"rows"`
	}
	rec = getJSON(t, handler, "/api/dashboard/rows", &body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "lead@example.com", body.Rows[0]["email"])
	assert.Equal(t, "111", body.Rows[0]["campaignId"])
	assert.Equal(t, "src", body.Rows[0]["attributionSource"])
}

func TestTrackClickMissingLandingURL(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler, "/api/track-click", `{"sessionId": "s1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutIntent(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler, "/api/checkout-intent", `{"sessionId": "s1", "email": "lead@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s1", body["sessionId"])
	assert.Contains(t, body["checkoutUrl"], "src=s1")
}

func TestCheckoutIntentMissingSession(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler, "/api/checkout-intent", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSurveyFormURLEncoded(t *testing.T) {
	handler := newTestHandler(t)

	form := "email=lead%40example.com&experience=6+meses&languageSkill=x&englishLevel=x" +
		"&hasInternationalInterview=x&internationalInterest=x&salaryRange=x&helpText=x"
	req := httptest.NewRequest(http.MethodPost, "/survey", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSurveyMissingRequiredField(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler, "/survey", `{"experience": "6 meses"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardCSVHeaders(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard.csv", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "dashboard-filtrado.csv")
	assert.Equal(t, "sem_dados\n", rec.Body.String())
}

func TestDashboardRejectsPost(t *testing.T) {
	handler := newTestHandler(t)

	rec := postJSON(t, handler, "/api/dashboard", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReportEmpty(t *testing.T) {
	handler := newTestHandler(t)

	var body []map[string]any
	rec := getJSON(t, handler, "/report", &body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, body)
}
