package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/eneskucukk/ParkingLotApp/internal/parking"
	"github.com/eneskucukk/ParkingLotApp/internal/store"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type fixture struct {
	handler http.Handler
	clock   *testClock
	store   *store.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{now: time.Date(2026, 10, 15, 14, 0, 0, 0, time.Local)}
	s := store.NewMemoryStore()
	telemetry := parking.NewTelemetryProviderFrom("parking-test",
		sdktrace.NewTracerProvider(), sdkmetric.NewMeterProvider(), nil)
	t.Cleanup(func() {
		assert.NoError(t, telemetry.Shutdown(context.Background()))
	})

	lot, err := parking.NewInstrumentedParkingLot(parking.NewParkingLot(6, s, parking.WithClock(clock)), telemetry)
	require.NoError(t, err)

	srv := NewServer(lot, Options{Port: "0", ServiceName: "parking-test", Currency: "TL"})
	return &fixture{handler: srv.Handler(), clock: clock, store: s}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "parking-test", resp.Service)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, "req-1", resp.Meta.RequestID)
}

func TestRequestIDGenerated(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodGet, "/api/parking-lot/status", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	require.NotNil(t, resp.Meta)
	assert.Equal(t, w.Header().Get("X-Request-ID"), resp.Meta.RequestID)
}

func TestParkReleaseFlow(t *testing.T) {
	f := newFixture(t)

	w, resp := f.do(t, http.MethodPost, "/api/parking-lot/spots/0/park", `{"plate":"34ABC123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, resp.Success)

	w, resp = f.do(t, http.MethodGet, "/api/parking-lot/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusResponse
	remarshal(t, resp.Data, &status)
	assert.Equal(t, 6, status.Capacity)
	assert.Equal(t, 1, status.Occupied)
	assert.Equal(t, 5, status.Available)
	assert.Equal(t, parking.SpotStateOccupied, status.Spots[0].State)

	f.clock.now = f.clock.now.Add(45 * time.Minute)
	w, resp = f.do(t, http.MethodPost, "/api/parking-lot/spots/0/release", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"fee":10.00`)

	var tx TransactionResponse
	remarshal(t, resp.Data, &tx)
	assert.Equal(t, "34ABC123", tx.Plate)
	assert.Equal(t, 45, tx.DurationMinutes)
	assert.Equal(t, parking.Units(10), tx.Fee)
	assert.Equal(t, "TL", tx.Currency)
	assert.Equal(t, "2026-10-15 14:45:00", tx.ExitTime)
	assert.Equal(t, 1, f.store.Len())
}

func TestLedgerErrorMapping(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/api/parking-lot/spots/1/park", `{"plate":"34ABC123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"index out of range", http.MethodPost, "/api/parking-lot/spots/7/park", `{"plate":"X"}`, http.StatusBadRequest},
		{"negative index", http.MethodPost, "/api/parking-lot/spots/-1/release", "", http.StatusBadRequest},
		{"non numeric index", http.MethodPost, "/api/parking-lot/spots/one/park", `{"plate":"X"}`, http.StatusBadRequest},
		{"empty plate", http.MethodPost, "/api/parking-lot/spots/0/park", `{"plate":" "}`, http.StatusBadRequest},
		{"bad body", http.MethodPost, "/api/parking-lot/spots/0/park", `{`, http.StatusBadRequest},
		{"occupied", http.MethodPost, "/api/parking-lot/spots/1/park", `{"plate":"Y"}`, http.StatusConflict},
		{"empty", http.MethodPost, "/api/parking-lot/spots/2/release", "", http.StatusConflict},
		{"not found", http.MethodGet, "/api/parking-lot/find/NOPE", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}

	assert.Zero(t, f.store.Len())
	w, resp := f.do(t, http.MethodGet, "/api/parking-lot/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusResponse
	remarshal(t, resp.Data, &status)
	assert.Equal(t, 1, status.Occupied)
	assert.Equal(t, "34ABC123", status.Spots[1].Plate)
}

func TestReleaseStoreFailure(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/api/parking-lot/spots/3/park", `{"plate":"34ABC123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	f.store.FailWith(errors.New("disk full"))
	w, resp := f.do(t, http.MethodPost, "/api/parking-lot/spots/3/release", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)

	f.store.FailWith(nil)
	w, _ = f.do(t, http.MethodPost, "/api/parking-lot/spots/3/release", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.store.Len())
}

func TestFindByPlate(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/api/parking-lot/spots/4/park", `{"plate":"06XYZ99"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := f.do(t, http.MethodGet, "/api/parking-lot/find/06XYZ99", "")
	require.Equal(t, http.StatusOK, w.Code)

	var view parking.SpotView
	remarshal(t, resp.Data, &view)
	assert.Equal(t, 4, view.Index)
	assert.Equal(t, "06XYZ99", view.Plate)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/api/parking-lot/spots/0/park", `{"plate":"34ABC123"}`)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "parking_spots_capacity 6")
	assert.Contains(t, body, "parking_spots_occupied 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/parking-lot/status", nil)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func remarshal(t *testing.T, in any, out any) {
	t.Helper()
	b, err := json.Marshal(in)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, out))
}
