package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersCollectorsAndObserves(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PipelineRejections.WithLabelValues("XAUUSD", "gate-3-bias").Inc()
	m.SignalsGenerated.WithLabelValues("XAUUSD", "buy").Inc()
	m.ObserveAggregate(2, 1, 1)

	if got := testutil.ToFloat64(m.AccountsTraded); got != 2 {
		t.Fatalf("expected 2 traded accounts recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.AccountsSkipped); got != 1 {
		t.Fatalf("expected 1 skipped account recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.AccountsFailed); got != 1 {
		t.Fatalf("expected 1 failed account recorded, got %v", got)
	}
}
