/*
 * @module service/quality/temporal_test
 * @description 时间分布统计单元测试，覆盖跨度、聚集度和季节多样性计算
 * @architecture 单元测试
 * @documentReference ai_docs/analog_quality_req.md
 * @stateFlow 构造时间戳序列 -> 计算 -> 验证统计量
 * @rules 不足2个时间戳返回保守默认值
 * @dependencies testing, testify
 * @refs temporal.go
 */

package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeTemporalMetrics_TooFewTimestamps(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []time.Time
	}{
		{"空序列", nil},
		{"单个时间戳", []time.Time{time.Now()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := computeTemporalMetrics(tt.timestamps)
			assert.Zero(t, metrics.SpanHours)
			assert.Equal(t, 1.0, metrics.ClusteringScore)
			assert.Zero(t, metrics.SeasonalDiversity)
		})
	}
}

func TestComputeTemporalMetrics_UniformSpacing(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	timestamps := make([]time.Time, 10)
	for i := range timestamps {
		timestamps[i] = base.Add(time.Duration(i) * 24 * time.Hour)
	}

	metrics := computeTemporalMetrics(timestamps)

	assert.InDelta(t, 216, metrics.SpanHours, 1e-9)
	// 完全均匀的间隔聚集度为0
	assert.InDelta(t, 0, metrics.ClusteringScore, 1e-9)
}

func TestComputeTemporalMetrics_BurstClustering(t *testing.T) {
	base := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	// 九个样本挤在一小时内，一个样本在一年后
	timestamps := make([]time.Time, 0, 10)
	for i := 0; i < 9; i++ {
		timestamps = append(timestamps, base.Add(time.Duration(i)*5*time.Minute))
	}
	timestamps = append(timestamps, base.AddDate(1, 0, 0))

	metrics := computeTemporalMetrics(timestamps)

	assert.Equal(t, 1.0, metrics.ClusteringScore)
	assert.Greater(t, metrics.SpanHours, 8000.0)
}

func TestComputeTemporalMetrics_IdenticalTimestamps(t *testing.T) {
	ts := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	metrics := computeTemporalMetrics([]time.Time{ts, ts, ts})

	assert.Zero(t, metrics.SpanHours)
	// 间隔均值为0视为完全聚集
	assert.Equal(t, 1.0, metrics.ClusteringScore)
}

func TestSeasonalDiversity(t *testing.T) {
	singleMonth := make([]time.Time, 0, 6)
	allMonths := make([]time.Time, 0, 12)
	for i := 0; i < 12; i++ {
		allMonths = append(allMonths, time.Date(2023, time.Month(1+i), 10, 0, 0, 0, 0, time.UTC))
		if i < 6 {
			singleMonth = append(singleMonth, time.Date(2023, 7, 1+i, 0, 0, 0, 0, time.UTC))
		}
	}

	// 单一月份多样性为0，十二个月均匀分布为1
	assert.InDelta(t, 0, seasonalDiversity(singleMonth), 1e-9)
	assert.InDelta(t, 1, seasonalDiversity(allMonths), 1e-9)
}
