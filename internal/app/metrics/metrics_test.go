package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/tracker/internal/events"
)

func TestCanonicalPath(t *testing.T) {
	tests := map[string]string{
		"":             "/",
		"/":            "/",
		"/users/alice": "/users/alice",
		"/projects/6f1c8a36-3c55-4f0e-9a55-1f1d6f5b2b11/bugs": "/projects/:id/bugs",
		"/audit/42": "/audit/:id",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalPath(in), in)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/users/{login}", "200"))
	RecordHTTPRequest("get", "/users/{login}", http.StatusOK, 10*time.Millisecond)
	after := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/users/{login}", "200"))
	assert.Equal(t, before+1, after)
}

func TestRequestStarted(t *testing.T) {
	done := RequestStarted()
	assert.Equal(t, float64(1), testutil.ToFloat64(httpInFlight))
	done()
	assert.Equal(t, float64(0), testutil.ToFloat64(httpInFlight))
}

func TestObserveEvents(t *testing.T) {
	bus := events.NewBus(8)
	stop := ObserveEvents(bus)

	counter := domainEvents.WithLabelValues(string(events.EventTicketCreated))
	before := testutil.ToFloat64(counter)
	bus.Publish(context.Background(), events.Event{Type: events.EventTicketCreated})
	assert.Equal(t, before+1, testutil.ToFloat64(counter))

	stop()
	bus.Publish(context.Background(), events.Event{Type: events.EventTicketCreated})
	assert.Equal(t, before+1, testutil.ToFloat64(counter), "unsubscribed")
}

func TestHandlerExposesRegistry(t *testing.T) {
	RecordCacheLookup(true)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "tracker_cache_lookups_total"))
}
