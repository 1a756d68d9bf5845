/*
 * @module service/models/quality_models
 * @description 相似样本检索质量相关数据模型，定义检索指标、质量状态和质量阈值
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/analog_quality_req.md
 * @stateFlow 检索结果 -> 统计计算 -> 质量分级 -> 问题列表
 * @rules 检索指标为纯函数输出，每次检索重新计算，不作为可变状态持久化
 * @dependencies time
 * @refs service/quality/
 */

package models

import "time"

// QualityStatus 检索结果质量状态，五级分级
type QualityStatus string

const (
	QualityStatusExcellent QualityStatus = "excellent"
	QualityStatusGood      QualityStatus = "good"
	QualityStatusDegraded  QualityStatus = "degraded"
	QualityStatusPoor      QualityStatus = "poor"
	QualityStatusFailed    QualityStatus = "failed"
)

// qualityStatusRanks 质量状态排序，EXCELLENT最高
var qualityStatusRanks = map[QualityStatus]int{
	QualityStatusExcellent: 5,
	QualityStatusGood:      4,
	QualityStatusDegraded:  3,
	QualityStatusPoor:      2,
	QualityStatusFailed:    1,
}

// Rank 获取质量状态的排序值
func (s QualityStatus) Rank() int {
	return qualityStatusRanks[s]
}

// String 返回质量状态的字符串表示
func (s QualityStatus) String() string {
	return string(s)
}

// AnalogSearchMetrics 单次相似样本检索的派生统计指标，只读
type AnalogSearchMetrics struct {
	RequestedCount  int     `json:"requested_count"`
	ReturnedCount   int     `json:"returned_count"`
	UniqueCount     int     `json:"unique_count"`
	DuplicateCount  int     `json:"duplicate_count"`
	UniquenessRatio float64 `json:"uniqueness_ratio"`

	// 相似度分布统计
	SimilarityMean     float64 `json:"similarity_mean"`
	SimilarityBest     float64 `json:"similarity_best"`
	SimilarityWorst    float64 `json:"similarity_worst"`
	SimilarityStd      float64 `json:"similarity_std"`
	SimilarityVariance float64 `json:"similarity_variance"`
	SimilarityRange    float64 `json:"similarity_range"`
	Skewness           float64 `json:"skewness"`
	Kurtosis           float64 `json:"kurtosis"`
	NormalityPValue    float64 `json:"normality_p_value"`

	// 时间分布统计
	TemporalSpanHours float64 `json:"temporal_span_hours"`
	ClusteringScore   float64 `json:"clustering_score"`   // 0=均匀分布，越大越聚集
	SeasonalDiversity float64 `json:"seasonal_diversity"` // 月份分布的归一化香农熵

	// 综合评价
	OverallQualityScore float64       `json:"overall_quality_score"`
	QualityStatus       QualityStatus `json:"quality_status"`
	QualityIssues       []string      `json:"quality_issues"`

	ElapsedMs  float64   `json:"elapsed_ms"`
	ComputedAt time.Time `json:"computed_at"`
}

// AnalogNeighborMeta 单个相似样本的元数据
type AnalogNeighborMeta struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

// QualityThresholds 质量判定阈值，严格/宽松两种模式仅放宽数值阈值
type QualityThresholds struct {
	MinUniquenessRatio float64 `json:"min_uniqueness_ratio"`
	MinVariance        float64 `json:"min_variance"`
	MinSpanHours       float64 `json:"min_span_hours"`
	MaxClustering      float64 `json:"max_clustering"`
	MaxAbsSkewness     float64 `json:"max_abs_skewness"`
	QualityFloor       float64 `json:"quality_floor"` // DEGRADED判定下限
}

// StrictQualityThresholds 严格模式阈值
func StrictQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinUniquenessRatio: 0.95,
		MinVariance:        1e-5,
		MinSpanHours:       72,
		MaxClustering:      0.7,
		MaxAbsSkewness:     2.0,
		QualityFloor:       0.6,
	}
}

// LenientQualityThresholds 宽松模式阈值
func LenientQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinUniquenessRatio: 0.90,
		MinVariance:        1e-5,
		MinSpanHours:       48,
		MaxClustering:      0.7,
		MaxAbsSkewness:     2.0,
		QualityFloor:       0.6,
	}
}
