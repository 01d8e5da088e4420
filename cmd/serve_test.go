//go:build !integration

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triangle-intelligence/compliance-cli/internal/alerting"
	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/internal/qualification"
	"github.com/triangle-intelligence/compliance-cli/internal/resolver"
	"github.com/triangle-intelligence/compliance-cli/internal/tariffstore"
	"github.com/triangle-intelligence/compliance-cli/internal/thresholds"
)

func testAPIServer(t *testing.T, records ...model.PolicyTariffRecord) *apiServer {
	t.Helper()
	store := tariffstore.NewMemory()
	_, err := store.Upsert(context.Background(), records)
	require.NoError(t, err)

	api := &apiServer{
		resolver: resolver.New(store, 0),
		table:    thresholds.DefaultTable(),
		notifier: alerting.NewNotifier(""),
		params: qualification.Params{
			Threshold:               62.5,
			BufferMargin:            7.5,
			CountryConcentrationPct: 50,
			ComponentDominancePct:   30,
			MaterialityUSD:          10000,
		},
	}
	api.engine = qualification.New(api.resolver)
	return api
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := testAPIServer(t).routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestResolveEndpoint(t *testing.T) {
	pt25 := 0.25
	h := testAPIServer(t, model.PolicyTariffRecord{
		HSCode: "85444200", OriginCountry: "CN", Section301: &pt25,
	}).routes()

	rec := postJSON(t, h, "/api/resolve", map[string]string{
		"hs_code":        "8544.42.00",
		"origin_country": "CN",
		"field":          "SECTION_301",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var res model.Resolution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, model.SourceExactMatch, res.Source)
	require.NotNil(t, res.Rate)
	assert.Equal(t, 0.25, *res.Rate)
}

func TestResolveEndpoint_BadBody(t *testing.T) {
	h := testAPIServer(t).routes()

	req := httptest.NewRequest(http.MethodPost, "/api/resolve", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRatesEndpoint(t *testing.T) {
	pt25 := 0.25
	h := testAPIServer(t, model.PolicyTariffRecord{
		HSCode: "85444200", OriginCountry: "CN", Section301: &pt25,
	}).routes()

	rec := postJSON(t, h, "/api/rates", map[string]string{
		"hs_code":        "85444200",
		"origin_country": "CN",
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var rates model.PolicyRates
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rates))
	assert.Equal(t, 0.25, rates.TotalPolicyRate)
	assert.Equal(t, model.ConfidenceExact, rates.OverallConfidence)
}

func TestQualifyEndpoint(t *testing.T) {
	h := testAPIServer(t).routes()

	rec := postJSON(t, h, "/api/qualify", map[string]any{
		"threshold_pct": 62.5,
		"components": []map[string]any{
			{"origin_country": "US", "value_share": 40, "hs_code": "85011000"},
			{"origin_country": "MX", "value_share": 22.5, "hs_code": "87083050"},
			{"origin_country": "CN", "value_share": 37.5, "hs_code": "85444200"},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		AnalysisID string `json:"analysis_id"`
		model.QualificationResult
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.AnalysisID)
	assert.True(t, res.Qualifies)
	assert.InDelta(t, 62.5, res.RegionalValueContentPct, 1e-9)
}

func TestQualifyEndpoint_EmptyBOM(t *testing.T) {
	h := testAPIServer(t).routes()

	rec := postJSON(t, h, "/api/qualify", map[string]any{
		"components": []map[string]any{},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		model.QualificationResult
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.InsufficientData)
}

func TestQualifyEndpoint_ProductHSPicksThreshold(t *testing.T) {
	h := testAPIServer(t).routes()

	// Automotive chapter takes the 75% threshold; 62.5% RVC fails it.
	rec := postJSON(t, h, "/api/qualify", map[string]any{
		"product_hs_code": "8708.30.50",
		"components": []map[string]any{
			{"origin_country": "US", "value_share": 62.5, "hs_code": "85011000"},
			{"origin_country": "CN", "value_share": 37.5, "hs_code": "85444200"},
		},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		model.QualificationResult
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 75.0, res.ThresholdUsed)
	assert.False(t, res.Qualifies)
}
