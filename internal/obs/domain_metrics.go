package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingPreviewTotal counts pricing preview requests by outcome.
	PricingPreviewTotal *prometheus.CounterVec
	// RuleSnapshotTotal counts active rule snapshot loads by source.
	RuleSnapshotTotal *prometheus.CounterVec
	// RulesAppliedTotal counts rules applied across all pricing passes.
	RulesAppliedTotal prometheus.Counter
	// PricingPassDuration records the latency of full pricing passes in milliseconds.
	PricingPassDuration prometheus.Histogram
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingPreviewTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_preview_total",
			Help:      "Count of pricing preview requests by outcome.",
		}, []string{"result"})
		RuleSnapshotTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_snapshot_total",
			Help:      "Count of active rule snapshot loads by source.",
		}, []string{"source"})
		RulesAppliedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_applied_total",
			Help:      "Total number of rule applications across pricing passes.",
		})
		PricingPassDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_pass_duration_ms",
			Help:      "Latency of full pricing passes in milliseconds.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		})

		mustRegisterCollector(reg, PricingPreviewTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingPreviewTotal = v
			}
		})
		mustRegisterCollector(reg, RuleSnapshotTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				RuleSnapshotTotal = v
			}
		})
		mustRegisterCollector(reg, RulesAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RulesAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, PricingPassDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				PricingPassDuration = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
