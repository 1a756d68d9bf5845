/*
 * @module service/drift/metrics
 * @description 漂移检测Prometheus指标，覆盖事件计数、检测耗时、未解决事件水位、快照规模和告警发送结果
 * @architecture 分层架构 - 可观测层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 检测器回调 -> 指标更新 -> /metrics端点暴露
 * @rules 指标注册幂等，重复创建采集器复用已注册实例
 * @dependencies github.com/prometheus/client_golang/prometheus
 * @refs detector.go, main.go
 */

package drift

import (
	"sync"
	"time"

	"analogcast-service/service/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DriftMetrics 漂移检测指标集
type DriftMetrics struct {
	eventsTotal       *prometheus.CounterVec
	detectionDuration prometheus.Histogram
	detectionsTotal   prometheus.Counter
	unresolvedEvents  *prometheus.GaugeVec
	monitoredFiles    prometheus.Gauge
	monitoredEnvVars  prometheus.Gauge
	schemaFailures    prometheus.Gauge
	snapshotsTotal    prometheus.Counter
	alertsTotal       *prometheus.CounterVec
	monitoringActive  prometheus.Gauge
}

var (
	defaultMetrics     *DriftMetrics
	defaultMetricsOnce sync.Once
)

// NewDriftMetrics 获取默认注册器上的指标集
// 指标名在进程内唯一，重复调用返回同一实例
func NewDriftMetrics() *DriftMetrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = newDriftMetricsWith(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// newDriftMetricsWith 在指定注册器上创建指标，测试时注入独立注册器
func newDriftMetricsWith(reg prometheus.Registerer) *DriftMetrics {
	factory := promauto.With(reg)

	return &DriftMetrics{
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "events_total",
			Help:      "累计检出的漂移事件数，按类型和严重级别分桶",
		}, []string{"drift_type", "severity"}),
		detectionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "detection_duration_seconds",
			Help:      "单次漂移检测耗时分布",
			Buckets:   prometheus.DefBuckets,
		}),
		detectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "detections_total",
			Help:      "累计执行的漂移检测次数",
		}),
		unresolvedEvents: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "unresolved_events",
			Help:      "当前未解决的漂移事件数，按严重级别分桶",
		}, []string{"severity"}),
		monitoredFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "monitored_files",
			Help:      "最近一次快照覆盖的监控文件数",
		}),
		monitoredEnvVars: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "monitored_env_vars",
			Help:      "最近一次快照采集的环境变量数",
		}),
		schemaFailures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "schema_validation_failures",
			Help:      "最近一次快照中结构校验失败的配置数",
		}),
		snapshotsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "snapshots_total",
			Help:      "累计创建的配置快照数",
		}),
		alertsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "alerts_total",
			Help:      "累计告警发送结果，按成败分桶",
		}, []string{"outcome"}),
		monitoringActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "analogcast",
			Subsystem: "drift",
			Name:      "monitoring_active",
			Help:      "监控是否处于运行状态，1为运行",
		}),
	}
}

// ObserveDetection 记录一次检测的耗时和产出事件
func (m *DriftMetrics) ObserveDetection(elapsed time.Duration, events []*models.DriftEvent) {
	m.detectionsTotal.Inc()
	m.detectionDuration.Observe(elapsed.Seconds())
	for _, event := range events {
		m.eventsTotal.WithLabelValues(event.DriftType.String(), event.Severity.String()).Inc()
	}
}

// ObserveSnapshot 记录快照规模
func (m *DriftMetrics) ObserveSnapshot(snapshot *models.ConfigurationSnapshot) {
	m.snapshotsTotal.Inc()
	m.monitoredFiles.Set(float64(snapshot.FileCount()))
	m.monitoredEnvVars.Set(float64(snapshot.EnvVarCount()))
	m.schemaFailures.Set(float64(snapshot.SchemaFailureCount()))
}

// SetUnresolvedCounts 更新各严重级别的未解决事件水位
func (m *DriftMetrics) SetUnresolvedCounts(counts map[models.DriftSeverity]int) {
	for _, severity := range []models.DriftSeverity{
		models.DriftSeverityLow, models.DriftSeverityMedium,
		models.DriftSeverityHigh, models.DriftSeverityCritical,
	} {
		m.unresolvedEvents.WithLabelValues(severity.String()).Set(float64(counts[severity]))
	}
}

// ObserveAlertOutcome 记录告警发送结果
func (m *DriftMetrics) ObserveAlertOutcome(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.alertsTotal.WithLabelValues(outcome).Inc()
}

// SetMonitoringActive 更新监控运行状态
func (m *DriftMetrics) SetMonitoringActive(active bool) {
	if active {
		m.monitoringActive.Set(1)
	} else {
		m.monitoringActive.Set(0)
	}
}
