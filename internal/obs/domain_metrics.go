package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// BillReportsTotal counts hospital bill report requests by outcome.
	BillReportsTotal *prometheus.CounterVec
	// BillReportEntries records the number of entries per generated report.
	BillReportEntries prometheus.Histogram
	// BillReportCacheTotal counts report cache lookups by result.
	BillReportCacheTotal *prometheus.CounterVec
	// BalanceSummaryTotal counts balance summary computations.
	BalanceSummaryTotal prometheus.Counter
	// ReportWarmupTotal counts background report warmups by outcome.
	ReportWarmupTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BillReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bill_reports_total",
			Help:      "Count of hospital bill report requests by outcome.",
		}, []string{"result"})
		BillReportEntries = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bill_report_entries",
			Help:      "Number of bill entries in generated reports.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		})
		BillReportCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bill_report_cache_total",
			Help:      "Bill report cache lookups by result.",
		}, []string{"result"})
		BalanceSummaryTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_summary_total",
			Help:      "Total number of balance summaries computed.",
		})
		ReportWarmupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_warmup_total",
			Help:      "Background bill report warmups by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, BillReportsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BillReportsTotal = v
			}
		})
		mustRegisterCollector(reg, BillReportEntries, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				BillReportEntries = v
			}
		})
		mustRegisterCollector(reg, BillReportCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BillReportCacheTotal = v
			}
		})
		mustRegisterCollector(reg, BalanceSummaryTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				BalanceSummaryTotal = v
			}
		})
		mustRegisterCollector(reg, ReportWarmupTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReportWarmupTotal = v
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
