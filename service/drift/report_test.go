/*
 * @module service/drift/report_test
 * @description 漂移报告单元测试，覆盖级别过滤、时间窗过滤、来源排名和事件解决
 * @architecture 单元测试
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 填充事件日志 -> 生成报告 -> 验证聚合结果
 * @rules 来源排名计数相同时保持首次出现顺序
 * @dependencies testing, testify
 * @refs report.go
 */

package drift

import (
	"fmt"
	"testing"
	"time"

	"analogcast-service/service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedEvents(detector *DriftDetector, events ...*models.DriftEvent) {
	detector.mutex.Lock()
	detector.events = append(detector.events, events...)
	detector.mutex.Unlock()
}

func testEvent(driftType models.DriftType, severity models.DriftSeverity, source string, age time.Duration) *models.DriftEvent {
	return &models.DriftEvent{
		EventID:     uuid.New().String(),
		DriftType:   driftType,
		Severity:    severity,
		SourcePath:  source,
		Description: fmt.Sprintf("测试事件: %s", source),
		DetectedAt:  time.Now().Add(-age),
	}
}

func TestGetDriftReport_SeverityFilter(t *testing.T) {
	detector, _ := newTestDetector(t)
	seedEvents(detector,
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "a.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityMedium, "b.yaml", 0),
		testEvent(models.DriftTypeEnvMismatch, models.DriftSeverityHigh, "LOG_LEVEL", 0),
		testEvent(models.DriftTypeSecurityDrift, models.DriftSeverityCritical, "API_TOKEN", 0),
	)

	report := detector.GetDriftReport(models.DriftSeverityHigh, 0)

	assert.Equal(t, 2, report.TotalEvents)
	assert.Equal(t, 1, report.SeverityCounts[models.DriftSeverityHigh])
	assert.Equal(t, 1, report.SeverityCounts[models.DriftSeverityCritical])
	assert.Zero(t, report.SeverityCounts[models.DriftSeverityLow])
}

func TestGetDriftReport_TimeWindowFilter(t *testing.T) {
	detector, _ := newTestDetector(t)
	seedEvents(detector,
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "recent.yaml", time.Hour),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "old.yaml", 48*time.Hour),
	)

	report := detector.GetDriftReport("", 24)

	assert.Equal(t, 1, report.TotalEvents)
	require.Len(t, report.RecentEvents, 1)
	assert.Equal(t, "recent.yaml", report.RecentEvents[0].SourcePath)
}

func TestGetDriftReport_TopSourcesRankingAndTies(t *testing.T) {
	detector, _ := newTestDetector(t)
	// frequent出现3次，first与second各2次且first先出现，其余各1次
	seedEvents(detector,
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "first.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "frequent.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "second.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "frequent.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "first.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "second.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "frequent.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "e1.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "e2.yaml", 0),
		testEvent(models.DriftTypeFileChange, models.DriftSeverityLow, "e3.yaml", 0),
	)

	report := detector.GetDriftReport("", 0)

	require.Len(t, report.TopSources, 5)
	assert.Equal(t, "frequent.yaml", report.TopSources[0].SourcePath)
	assert.Equal(t, 3, report.TopSources[0].Count)
	// 计数相同按首次出现顺序
	assert.Equal(t, "first.yaml", report.TopSources[1].SourcePath)
	assert.Equal(t, "second.yaml", report.TopSources[2].SourcePath)
}

func TestGetDriftReport_RecentEventsCapped(t *testing.T) {
	detector, _ := newTestDetector(t)
	for i := 0; i < 15; i++ {
		seedEvents(detector, testEvent(models.DriftTypeFileChange, models.DriftSeverityLow,
			fmt.Sprintf("file-%02d.yaml", i), 0))
	}

	report := detector.GetDriftReport("", 0)

	assert.Equal(t, 15, report.TotalEvents)
	require.Len(t, report.RecentEvents, 10)
	// 取过滤后的末尾十条
	assert.Equal(t, "file-05.yaml", report.RecentEvents[0].SourcePath)
	assert.Equal(t, "file-14.yaml", report.RecentEvents[9].SourcePath)
}

func TestGetDriftReport_UnresolvedCriticalAndRecommendations(t *testing.T) {
	detector, _ := newTestDetector(t)
	resolved := testEvent(models.DriftTypeSecurityDrift, models.DriftSeverityCritical, "JWT_SECRET", 0)
	require.NoError(t, resolved.Resolve("已轮换密钥"))
	seedEvents(detector,
		resolved,
		testEvent(models.DriftTypeSecurityDrift, models.DriftSeverityCritical, "API_TOKEN", 0),
	)

	report := detector.GetDriftReport("", 0)

	require.Len(t, report.UnresolvedCritical, 1)
	assert.Equal(t, "API_TOKEN", report.UnresolvedCritical[0].SourcePath)
	assert.NotEmpty(t, report.Recommendations)
}

func TestResolveDriftEvent(t *testing.T) {
	detector, _ := newTestDetector(t)
	event := testEvent(models.DriftTypeFileChange, models.DriftSeverityHigh, "configs/model.yaml", 0)
	seedEvents(detector, event)

	// 空说明拒绝
	found, err := detector.ResolveDriftEvent(event.EventID, "")
	assert.False(t, found)
	assert.Error(t, err)

	found, err = detector.ResolveDriftEvent(event.EventID, "配置已回滚")
	assert.True(t, found)
	assert.NoError(t, err)
	assert.True(t, detector.Events()[0].Resolved)

	// 不存在的事件返回未找到
	found, err = detector.ResolveDriftEvent("missing-id", "说明")
	assert.False(t, found)
	assert.NoError(t, err)
}
