/*
 * @module service/quality/temporal
 * @description 相似样本时间分布统计，计算时间跨度、聚集度和季节多样性
 * @architecture 分层架构 - 数据质量服务层
 * @documentReference ai_docs/analog_quality_req.md
 * @stateFlow 样本时间戳 -> 排序 -> 间隔统计 -> 月份熵计算
 * @rules 时间戳不足2个时返回保守默认值（跨度0、聚集度1、多样性0），不报错
 * @dependencies gonum.org/v1/gonum/stat, math, sort, time
 * @refs validator.go
 */

package quality

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// TemporalMetrics 时间分布统计结果
type TemporalMetrics struct {
	SpanHours         float64
	ClusteringScore   float64
	SeasonalDiversity float64
}

// degenerateTemporalMetrics 无法评估时间分布时的保守默认值
func degenerateTemporalMetrics() TemporalMetrics {
	return TemporalMetrics{
		SpanHours:         0,
		ClusteringScore:   1, // 视为最大聚集，而非缺失
		SeasonalDiversity: 0,
	}
}

// computeTemporalMetrics 计算样本时间戳的分布统计
func computeTemporalMetrics(timestamps []time.Time) TemporalMetrics {
	if len(timestamps) < 2 {
		return degenerateTemporalMetrics()
	}

	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	span := sorted[len(sorted)-1].Sub(sorted[0]).Hours()

	return TemporalMetrics{
		SpanHours:         span,
		ClusteringScore:   clusteringScore(sorted),
		SeasonalDiversity: seasonalDiversity(sorted),
	}
}

// clusteringScore 计算排序后相邻间隔的变异系数，截断到[0,1]
// 0表示完全均匀分布，越大表示越聚集/突发
func clusteringScore(sorted []time.Time) float64 {
	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, sorted[i].Sub(sorted[i-1]).Hours())
	}

	mean := stat.Mean(gaps, nil)
	if mean <= 0 {
		// 所有样本时间相同，视为完全聚集
		return 1
	}

	cv := stat.StdDev(gaps, nil) / mean
	if math.IsNaN(cv) {
		return 1
	}
	return math.Min(math.Max(cv, 0), 1)
}

// seasonalDiversity 计算月份分布的香农熵，按12个等概率月份的最大熵归一化
func seasonalDiversity(timestamps []time.Time) float64 {
	monthCounts := make(map[time.Month]int)
	for _, ts := range timestamps {
		monthCounts[ts.Month()]++
	}

	total := float64(len(timestamps))
	entropy := 0.0
	for _, count := range monthCounts {
		p := float64(count) / total
		entropy -= p * math.Log(p)
	}

	maxEntropy := math.Log(12)
	return entropy / maxEntropy
}
