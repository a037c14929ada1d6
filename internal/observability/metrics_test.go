package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.ObserveAPIRequest("POST", "/api/analyze", 200, 2*time.Second)
	m.ObserveAnalysis("image", "complete")
	m.ObserveAnalysis("image", "complete")
	m.ObserveReprompt("openai", false)

	if got := testutil.ToFloat64(m.analyses.WithLabelValues("image", "complete")); got != 2 {
		t.Fatalf("analyses = %v", got)
	}
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{"persona_api_requests_total", "persona_synthesis_reprompts_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %s", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAPIRequest("GET", "/", 200, time.Millisecond)
	m.IncInflight()
	m.DecInflight()
	m.ObserveAnalysis("video", "timeout")
	if m.Registerer() != nil {
		t.Fatal("nil metrics should have nil registerer")
	}
}
