/*
 * @module service/drift/metrics_test
 * @description 漂移检测指标单元测试，覆盖指标注册、计数更新和文本协议导出
 * @architecture 单元测试
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 独立注册器建指标 -> 观测回调 -> 采集验证
 * @rules 默认注册器上的指标集为进程内单例
 * @dependencies testing, testify, prometheus/client_golang, prometheus/common
 * @refs metrics.go
 */

package drift

import (
	"bytes"
	"testing"
	"time"

	"analogcast-service/service/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriftMetrics_ObserveDetection(t *testing.T) {
	metrics := newDriftMetricsWith(prometheus.NewRegistry())

	events := []*models.DriftEvent{
		{DriftType: models.DriftTypeFileChange, Severity: models.DriftSeverityHigh},
		{DriftType: models.DriftTypeFileChange, Severity: models.DriftSeverityHigh},
		{DriftType: models.DriftTypeSecurityDrift, Severity: models.DriftSeverityCritical},
	}
	metrics.ObserveDetection(120*time.Millisecond, events)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.detectionsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.eventsTotal.WithLabelValues("file_change", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.eventsTotal.WithLabelValues("security_drift", "critical")))
}

func TestDriftMetrics_ObserveSnapshot(t *testing.T) {
	metrics := newDriftMetricsWith(prometheus.NewRegistry())

	snapshot := newSnapshot(
		map[string]string{"configs/data.yaml": "h1", "configs/model.yaml": "h2"},
		map[string]string{"LOG_LEVEL": "info"},
		map[string]bool{"configs/data.yaml": true, "configs/model.yaml": false},
	)
	metrics.ObserveSnapshot(snapshot)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.snapshotsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.monitoredFiles))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.monitoredEnvVars))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.schemaFailures))
}

func TestDriftMetrics_UnresolvedAndAlerts(t *testing.T) {
	metrics := newDriftMetricsWith(prometheus.NewRegistry())

	metrics.SetUnresolvedCounts(map[models.DriftSeverity]int{
		models.DriftSeverityCritical: 2,
		models.DriftSeverityLow:      1,
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.unresolvedEvents.WithLabelValues("critical")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.unresolvedEvents.WithLabelValues("low")))
	// 未给出的级别清零
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.unresolvedEvents.WithLabelValues("high")))

	metrics.ObserveAlertOutcome(true)
	metrics.ObserveAlertOutcome(false)
	metrics.ObserveAlertOutcome(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.alertsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.alertsTotal.WithLabelValues("failure")))

	metrics.SetMonitoringActive(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.monitoringActive))
	metrics.SetMonitoringActive(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.monitoringActive))
}

func TestDriftMetrics_TextExposition(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newDriftMetricsWith(registry)

	metrics.ObserveDetection(50*time.Millisecond, []*models.DriftEvent{
		{DriftType: models.DriftTypeEnvMismatch, Severity: models.DriftSeverityMedium},
	})
	metrics.SetMonitoringActive(true)

	families, err := registry.Gather()
	require.NoError(t, err)

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, family := range families {
		require.NoError(t, encoder.Encode(family))
	}

	exposition := buf.String()
	assert.Contains(t, exposition, "analogcast_drift_detections_total 1")
	assert.Contains(t, exposition, `analogcast_drift_events_total{drift_type="env_mismatch",severity="medium"} 1`)
	assert.Contains(t, exposition, "analogcast_drift_monitoring_active 1")
	assert.Contains(t, exposition, "analogcast_drift_detection_duration_seconds_bucket")
}

func TestNewDriftMetrics_Singleton(t *testing.T) {
	first := NewDriftMetrics()
	second := NewDriftMetrics()
	assert.Same(t, first, second)
}
