package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronMetricsPerJobSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronMetrics(reg, CronJobOrderExpiry, CronJobOutboxRetention)

	m.ObserveCycle(false)
	m.ObserveCycle(true)
	m.ObserveRun(CronJobOrderExpiry, 250*time.Millisecond, 3, "orders_expired", nil)
	m.ObserveRun(CronJobOrderExpiry, 100*time.Millisecond, 1, "orders_expired", errors.New("one order failed"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		name   string
		labels map[string]string
		want   float64
	}{
		{"petfinder_cron_cycles_total", map[string]string{"result": "ran"}, 1},
		{"petfinder_cron_cycles_total", map[string]string{"result": "skipped"}, 1},
		{"petfinder_cron_job_runs_total", map[string]string{"job": CronJobOrderExpiry, "outcome": "ok"}, 1},
		{"petfinder_cron_job_runs_total", map[string]string{"job": CronJobOrderExpiry, "outcome": "failed"}, 1},
		{"petfinder_cron_job_runs_total", map[string]string{"job": CronJobOutboxRetention, "outcome": "ok"}, 0},
		{"petfinder_cron_job_items_total", map[string]string{"job": CronJobOrderExpiry, "unit": "orders_expired"}, 4},
	}
	for _, c := range checks {
		got, err := counterValue(mfs, c.name, c.labels)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s%v: expected %v, got %v", c.name, c.labels, c.want, got)
		}
	}

	if sum, err := histogramSum(mfs, "petfinder_cron_job_duration_seconds", map[string]string{"job": CronJobOrderExpiry}); err != nil {
		t.Fatalf("duration: %v", err)
	} else if sum < 0.35 {
		t.Fatalf("expected both runs in the duration sum, got %f", sum)
	}
	if _, err := counterValue(mfs, "petfinder_cron_job_last_success_timestamp_seconds", map[string]string{"job": CronJobOutboxRetention}); err == nil {
		t.Fatal("outbox retention never succeeded, expected no timestamp series")
	}
}

func TestCronMetricsNilRegistererIsNoop(t *testing.T) {
	m := NewCronMetrics(nil)
	m.ObserveCycle(true)
	m.ObserveRun(CronJobOutboxRetention, time.Second, 10, "events_pruned", nil)

	var nilMetrics *CronMetrics
	nilMetrics.ObserveCycle(false)
}

func counterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric, err := findMetric(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	if g := metric.GetGauge(); g != nil {
		return g.GetValue(), nil
	}
	return metric.GetCounter().GetValue(), nil
}

func histogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	metric, err := findMetric(mfs, name, labels)
	if err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleSum(), nil
}

func findMetric(mfs []*dto.MetricFamily, name string, labels map[string]string) (*dto.Metric, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabels(metric.GetLabel(), labels) {
				return metric, nil
			}
		}
		return nil, fmt.Errorf("metric %q has no series %v", name, labels)
	}
	return nil, fmt.Errorf("metric %q not found", name)
}

func hasLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, p := range pairs {
		if v, ok := want[p.GetName()]; ok && v == p.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
