package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPlatformMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPlatformMetrics(reg)

	metrics.IncMutation("assets", "created")
	metrics.IncMutation("assets", "created")
	metrics.IncAuditWrite("assigned")
	metrics.IncAuditDropped()
	metrics.IncReload("assignments")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "resource_mutations_total", "resource", "assets"); err != nil {
		t.Fatalf("fetch mutations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected mutations=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "audit_writes_total", "action", "assigned"); err != nil {
		t.Fatalf("fetch audit writes: %v", err)
	} else if got != 1 {
		t.Fatalf("expected audit writes=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "snapshot_reloads_total", "resource", "assignments"); err != nil {
		t.Fatalf("fetch reloads: %v", err)
	} else if got != 1 {
		t.Fatalf("expected reloads=1, got %f", got)
	}
}

func TestPlatformMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewPlatformMetrics(nil)
	metrics.IncMutation("assets", "created")
	metrics.IncAuditWrite("created")
	metrics.IncAuditDropped()
	metrics.IncReload("assets")
}

func TestPlatformMetricsNormalizesEmptyLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPlatformMetrics(reg)
	metrics.IncMutation("", "")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "resource_mutations_total", "resource", "unknown"); err != nil {
		t.Fatalf("fetch mutations: %v", err)
	} else if got != 1 {
		t.Fatalf("expected mutations=1, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
