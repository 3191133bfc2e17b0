package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openrange/orbbot/internal/adapters"
	"github.com/openrange/orbbot/internal/events"
	"github.com/openrange/orbbot/internal/orb"
	"github.com/openrange/orbbot/internal/strategy"
)

func testServer(t *testing.T) (*httptest.Server, *strategy.Controller, *adapters.MockMarketData) {
	t.Helper()
	data := &adapters.MockMarketData{NoHistory: true}
	ctrl := strategy.New(strategy.Options{
		Symbol:       "VIXY",
		Quantity:     1,
		RangeMinutes: 15,
		Direction:    orb.DirectionBoth,
		Clock:        orb.SessionClock{Location: time.UTC, OpenHour: 9, OpenMinute: 30},
		Now:          func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) },
	}, data, &adapters.MockBroker{}, nil)

	s := NewServer(":0", ctrl, events.NewSSEHub())
	srv := httptest.NewServer(s.http.Handler)
	t.Cleanup(srv.Close)
	return srv, ctrl, data
}

func TestServer_Healthz(t *testing.T) {
	srv, _, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StatusBeforeAndAfterFirstTick(t *testing.T) {
	srv, ctrl, data := testServer(t)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "no decision yet")

	data.Price, data.PriceSet = 50, true
	ctrl.Tick(context.Background())

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res strategy.DecisionResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "VIXY", res.Symbol)
	assert.Equal(t, orb.StatusPre, res.Status)
	assert.NotEmpty(t, res.DecisionID)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_MethodRestrictions(t *testing.T) {
	srv, _, _ := testServer(t)
	resp, err := http.Post(srv.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
