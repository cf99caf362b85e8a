// Package syncer Prometheus 指标导出
package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 同步协调器指标
type Metrics struct {
	// 同步周期指标
	CyclesTotal     prometheus.Counter
	DomainSyncTotal *prometheus.CounterVec
	ForceSyncTotal  *prometheus.CounterVec
	LastSyncTime    prometheus.Gauge

	// 故障指标
	DecodeErrors *prometheus.CounterVec
	WriteErrors  *prometheus.CounterVec

	// 总线指标
	EventsPublished *prometheus.CounterVec
}

// NewMetrics 创建同步协调器指标实例
//
// reg 为 nil 时使用默认注册器；测试中传入独立的 prometheus.NewRegistry()
// 避免重复注册冲突。
func NewMetrics(namespace, source string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	labels := prometheus.Labels{"source": source}

	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "sync_cycles_total",
			Help:        "Total sync cycles executed",
			ConstLabels: labels,
		}),
		DomainSyncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "domain_sync_total",
			Help:        "Total per-domain recomputations",
			ConstLabels: labels,
		}, []string{"domain"}),
		ForceSyncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "force_sync_total",
			Help:        "Total force-sync invocations",
			ConstLabels: labels,
		}, []string{"domain"}),
		LastSyncTime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_sync_timestamp_seconds",
			Help:        "Unix timestamp of the last completed sync cycle",
			ConstLabels: labels,
		}),
		DecodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "decode_errors_total",
			Help:        "Total malformed stored payloads recovered as empty defaults",
			ConstLabels: labels,
		}, []string{"domain"}),
		WriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "write_errors_total",
			Help:        "Total snapshot write failures",
			ConstLabels: labels,
		}, []string{"domain"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "events_published_total",
			Help:        "Total notification bus events published",
			ConstLabels: labels,
		}, []string{"event"}),
	}
}
