package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PlatformMetrics records registry mutations, audit write outcomes, and
// snapshot reloads.
type PlatformMetrics struct {
	mutations    *prometheus.CounterVec
	auditWrites  *prometheus.CounterVec
	auditDropped prometheus.Counter
	reloads      *prometheus.CounterVec
}

// NewPlatformMetrics registers the platform metrics on the provided registerer.
func NewPlatformMetrics(reg prometheus.Registerer) *PlatformMetrics {
	if reg == nil {
		return &PlatformMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resource_mutations_total",
		Help: "Mutations applied to managed resources, by resource and action.",
	}, []string{"resource", "action"})
	auditWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_writes_total",
		Help: "Audit entries written, by action.",
	}, []string{"action"})
	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_writes_dropped_total",
		Help: "Audit entries that could not be persisted.",
	})
	reloads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_reloads_total",
		Help: "Snapshot reloads triggered, by resource.",
	}, []string{"resource"})
	reg.MustRegister(mutations, auditWrites, auditDropped, reloads)
	return &PlatformMetrics{
		mutations:    mutations,
		auditWrites:  auditWrites,
		auditDropped: auditDropped,
		reloads:      reloads,
	}
}

// IncMutation increments the mutation counter for a resource/action pair.
func (p *PlatformMetrics) IncMutation(resource, action string) {
	if p == nil || p.mutations == nil {
		return
	}
	p.mutations.WithLabelValues(normalizeLabel(resource), normalizeLabel(action)).Inc()
}

// IncAuditWrite increments the audit write counter for the named action.
func (p *PlatformMetrics) IncAuditWrite(action string) {
	if p == nil || p.auditWrites == nil {
		return
	}
	p.auditWrites.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncAuditDropped counts an audit entry that failed to persist.
func (p *PlatformMetrics) IncAuditDropped() {
	if p == nil || p.auditDropped == nil {
		return
	}
	p.auditDropped.Inc()
}

// IncReload increments the snapshot reload counter for the named resource.
func (p *PlatformMetrics) IncReload(resource string) {
	if p == nil || p.reloads == nil {
		return
	}
	p.reloads.WithLabelValues(normalizeLabel(resource)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
