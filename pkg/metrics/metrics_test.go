package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOrderCounters(t *testing.T) {
	m := New(DefaultConfig())

	m.OrderAccepted("api")
	m.OrderAccepted("api")
	m.OrderAccepted("gossip")
	m.OrderRejected("expired")
	m.OrderRemoved("pruned")
	m.SetOrdersOpen(3)

	if got := testutil.ToFloat64(m.ordersAccepted.WithLabelValues("api")); got != 2 {
		t.Errorf("accepted{api} = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.ordersAccepted.WithLabelValues("gossip")); got != 1 {
		t.Errorf("accepted{gossip} = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.ordersRejected.WithLabelValues("expired")); got != 1 {
		t.Errorf("rejected{expired} = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.ordersRemoved.WithLabelValues("pruned")); got != 1 {
		t.Errorf("removed{pruned} = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.ordersOpen); got != 3 {
		t.Errorf("open = %f, want 3", got)
	}
}

func TestGaugesAndGossip(t *testing.T) {
	m := New(DefaultConfig())

	m.WSConnected()
	m.WSConnected()
	m.WSDisconnected()
	m.GossipPublished()
	m.GossipReceived()
	m.GossipReceived()

	if got := testutil.ToFloat64(m.wsClients); got != 1 {
		t.Errorf("ws clients = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.gossipReceived); got != 2 {
		t.Errorf("gossip received = %f, want 2", got)
	}
}

func TestHandler(t *testing.T) {
	m := New(DefaultConfig())
	m.ObserveRequest("/api/v1/orders", http.StatusCreated, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`puddle_http_requests_total{code="201",route="/api/v1/orders"} 1`,
		`puddle_http_request_duration_seconds_count{route="/api/v1/orders"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
