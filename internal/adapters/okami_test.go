package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okamiTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *OkamiAdapter) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a, err := NewOkamiAdapter(OkamiConfig{
		BaseURL:            srv.URL,
		Token:              "test-token",
		TimeoutSeconds:     2,
		RateLimitPerMinute: 6000,
		MaxRetries:         1,
		BackoffBaseMs:      1,
	})
	require.NoError(t, err)
	return srv, a
}

func TestOkami_LatestPriceMidOfBidAsk(t *testing.T) {
	_, a := okamiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/quote/real-time", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-token", body["token"])
		assert.Equal(t, "VIXY", body["ticker"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"bid_price": 50.00,
			"ask_price": 50.10,
			"last":      49.00,
		})
	})

	price, err := a.LatestPrice(context.Background(), "VIXY")
	require.NoError(t, err)
	assert.InDelta(t, 50.05, price, 1e-9)
}

func TestOkami_LatestPriceFallsBackToLast(t *testing.T) {
	_, a := okamiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"last": 49.25})
	})

	price, err := a.LatestPrice(context.Background(), "VIXY")
	require.NoError(t, err)
	assert.Equal(t, 49.25, price)
}

func TestOkami_LatestPriceNoFieldsIsUnavailable(t *testing.T) {
	_, a := okamiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"timestamp": "2025-06-02T14:00:00Z"})
	})

	_, err := a.LatestPrice(context.Background(), "VIXY")
	require.Error(t, err)
	assert.True(t, IsDataUnavailable(err), "empty quote should classify as unavailable, got %v", err)
}

func TestOkami_MinuteSnapshot(t *testing.T) {
	_, a := okamiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote/minute", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"minute_open_price":  50.0,
			"minute_high_price":  50.4,
			"minute_low_price":   49.9,
			"minute_close_price": 50.2,
			"minute_volume":      12000,
			"timestamp":          "2025-06-02T13:31:00Z",
		})
	})

	bar, err := a.MinuteSnapshot(context.Background(), "VIXY")
	require.NoError(t, err)
	assert.Equal(t, 50.4, bar.High)
	assert.Equal(t, 49.9, bar.Low)
	assert.Equal(t, int64(12000), bar.Volume)
	assert.Equal(t, "2025-06-02T13:31:00Z", bar.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"))
}

func TestOkami_MinuteSnapshotMissingBoundsIsUnavailable(t *testing.T) {
	_, a := okamiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"minute_close_price": 50.2})
	})

	_, err := a.MinuteSnapshot(context.Background(), "VIXY")
	require.Error(t, err)
	assert.True(t, IsDataUnavailable(err))
}

func TestOkami_ServerErrorIsProviderError(t *testing.T) {
	_, a := okamiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := a.LatestPrice(context.Background(), "VIXY")
	require.Error(t, err)
	var de *DataError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "provider_error", de.Type)
}

func TestOkami_HistoryNotSupported(t *testing.T) {
	_, a := okamiTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := a.HistoricalMinuteBars(context.Background(), "VIXY", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrHistoryNotSupported)
}

func TestOkami_ConfigValidation(t *testing.T) {
	_, err := NewOkamiAdapter(OkamiConfig{Token: "x"})
	assert.Error(t, err, "missing base URL")

	_, err = NewOkamiAdapter(OkamiConfig{BaseURL: "http://localhost"})
	assert.Error(t, err, "missing token")
}
