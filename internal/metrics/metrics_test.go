package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(PipelineValues.WithLabelValues("amount"))
	PipelineValues.WithLabelValues("amount").Add(2)
	if got := testutil.ToFloat64(PipelineValues.WithLabelValues("amount")); got != before+2 {
		t.Fatalf("values_total{kind=amount} = %v, want %v", got, before+2)
	}

	before = testutil.ToFloat64(SyncResults.WithLabelValues(SyncStale))
	SyncResults.WithLabelValues(SyncStale).Inc()
	if got := testutil.ToFloat64(SyncResults.WithLabelValues(SyncStale)); got != before+1 {
		t.Fatalf("sync results = %v, want %v", got, before+1)
	}
}

func TestMetricNames(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"stripbot_pipeline_messages_total",
		"stripbot_pipeline_parse_errors_total",
		"stripbot_ledger_deposits_total",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}
