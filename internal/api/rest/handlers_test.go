package rest

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/sentinel-analytics/dqsi-engine/internal/domain/dqsi"
	dqsisvc "github.com/sentinel-analytics/dqsi-engine/internal/service/dqsi"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	service, err := dqsisvc.NewService(domain.DefaultQualityConfig(), nil)
	require.NoError(t, err)
	return NewHandler(service, nil, slog.Default())
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestAssessAlert(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h.AssessAlert, map[string]interface{}{
		"alert_id": "A-100",
		"kde_data": map[string]interface{}{
			"trader_id":  "TRD-001",
			"account_id": "ACC-777",
		},
		"dq_metadata": map[string]interface{}{
			"baseline_volume": 1000.0,
			"current_volume":  950.0,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Greater(t, body["dqsi_score"].(float64), 0.0)
	assert.Equal(t, "fallback", body["dqsi_mode"])
	assert.NotEmpty(t, body["kde_results"])
}

func TestAssessAlertRejectsBadInput(t *testing.T) {
	h := testHandler(t)

	t.Run("missing kde_data", func(t *testing.T) {
		rec := postJSON(t, h.AssessAlert, map[string]interface{}{"alert_id": "A-1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{nope")))
		rec := httptest.NewRecorder()
		h.AssessAlert(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		rec := postJSON(t, h.AssessAlert, map[string]interface{}{
			"kde_data":  map[string]interface{}{"trader_id": "x"},
			"surprises": true,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAssessCase(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h.AssessCase, map[string]interface{}{
		"case_id": "C-9",
		"alerts": []map[string]interface{}{
			{"kde_data": map[string]interface{}{"trader_id": "TRD-001"}},
			{"kde_data": map[string]interface{}{"account_id": "ACC-777"}},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, 2.0, body["case_alert_count"])
}

func TestAssessCaseRequiresAlerts(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h.AssessCase, map[string]interface{}{"case_id": "C-9"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.AssessCase, map[string]interface{}{
		"case_id": "C-9",
		"alerts":  []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateCoverageEndpoint(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h.ValidateCoverage, map[string]interface{}{
		"kde_data": map[string]interface{}{
			"trader_id": "TRD-001",
			"surprise":  1,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Greater(t, body["coverage_ratio"].(float64), 0.0)
	assert.Contains(t, body["missing_critical_kdes"], "account_id")
	assert.Contains(t, body["unexpected_kdes"], "surprise")
}

func TestSimulateImpactEndpoint(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h.SimulateImpact, map[string]interface{}{
		"kde_data": map[string]interface{}{
			"account_id":    "ACC-777",
			"instrument_id": "ISIN1234",
		},
		"modifications": map[string]interface{}{
			"trader_id": "TRD-001",
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Greater(t, body["modified_score"].(float64), body["baseline_score"].(float64))
	assert.NotEmpty(t, body["impact"])
}

func TestRecommendImprovementsEndpoint(t *testing.T) {
	h := testHandler(t)

	rec := postJSON(t, h.RecommendImprovements, map[string]interface{}{
		"kde_data": map[string]interface{}{
			"trader_id": "",
			"notional":  -5.0,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	recommendations, ok := body["recommendations"].([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, recommendations)

	first, ok := recommendations[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "trader_id", first["kde"])
	assert.Equal(t, "critical", first["priority"])
}
