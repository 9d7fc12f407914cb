package perf

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/odyssey-erp/stockledger/internal/jobs"
	"github.com/odyssey-erp/stockledger/internal/persist"
	"github.com/odyssey-erp/stockledger/internal/platform/kv"
	"github.com/odyssey-erp/stockledger/jobs"
)

func TestLedgerJobThroughputAndReliability(t *testing.T) {
	if testing.Short() {
		t.Skip("perf")
	}
	reg := prometheus.NewRegistry()
	ledger := seededLedger(t, 10000)
	p := persist.New(kv.NewMemory(), "perf", "acme", nil)
	p.Register(ledger)
	tasks := &jobs.LedgerTasks{
		Flusher:   p,
		Ledger:    ledger,
		Snapshots: p,
		Metrics:   jobmetrics.NewMetrics(reg),
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := tasks.HandleSnapshot(ctx, asynq.NewTask(jobs.TaskLedgerSnapshot, nil)); err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if err := tasks.HandleIntegrity(ctx, asynq.NewTask(jobs.TaskLedgerIntegrity, nil)); err != nil {
			t.Fatalf("integrity: %v", err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, job := range []string{jobs.TaskLedgerSnapshot, jobs.TaskLedgerIntegrity} {
		if got := metricValue(t, families, "stockledger_jobs_total", map[string]string{"job": job, "status": "success"}); got != 5 {
			t.Fatalf("%s: expected 5 successful runs, got %v", job, got)
		}
		if mean := histogramMean(t, families, "stockledger_job_duration_seconds", map[string]string{"job": job}); mean > 2.0 {
			t.Fatalf("%s duration above budget: %f", job, mean)
		}
	}
	if drift := metricValue(t, families, "stockledger_integrity_drift", nil); drift != 0 {
		t.Fatalf("snapshot then integrity must not drift, got %v", drift)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok && lp.GetValue() != val {
			return false
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
