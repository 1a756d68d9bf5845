/*
 * @module service/quality/validator
 * @description 相似样本检索质量校验器，对最近邻检索结果计算唯一性、离散度、时间分布和分布形态统计并分级
 * @architecture 分层架构 - 数据质量服务层
 * @documentReference ai_docs/analog_quality_req.md
 * @stateFlow 检索结果 -> 有效样本筛选 -> 统计计算 -> 问题收集 -> 综合评分 -> 状态分级
 * @rules 负索引为未命中哨兵值，除请求/返回计数外一律排除；问题列表可叠加，状态判定按阈值自上而下首个命中
 * @dependencies gonum.org/v1/gonum/stat, analogcast-service/service/models
 * @refs service/validity/, api/controllers/quality_controller.go
 */

package quality

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"analogcast-service/service/models"

	"gonum.org/v1/gonum/stat"
)

// AnalogQualityValidator 相似样本检索质量校验器
type AnalogQualityValidator struct {
	thresholds models.QualityThresholds
	strictMode bool
}

// NewAnalogQualityValidator 创建质量校验器实例
// strictMode为true时使用严格阈值，否则使用宽松阈值
func NewAnalogQualityValidator(strictMode bool) *AnalogQualityValidator {
	thresholds := models.LenientQualityThresholds()
	if strictMode {
		thresholds = models.StrictQualityThresholds()
	}

	return &AnalogQualityValidator{
		thresholds: thresholds,
		strictMode: strictMode,
	}
}

// Thresholds 获取当前生效的阈值
func (v *AnalogQualityValidator) Thresholds() models.QualityThresholds {
	return v.thresholds
}

// ValidateSearchResults 校验一次最近邻检索的原始输出
// similarities与indices按返回槽位对齐，indices<0表示未命中
// neighborMeta以样本索引为键提供时间戳元数据
func (v *AnalogQualityValidator) ValidateSearchResults(
	similarities []float64,
	indices []int,
	neighborMeta map[int]models.AnalogNeighborMeta,
	elapsedMs float64,
) *models.AnalogSearchMetrics {
	requested := len(indices)

	metrics := &models.AnalogSearchMetrics{
		RequestedCount: requested,
		QualityIssues:  []string{},
		ElapsedMs:      elapsedMs,
		ComputedAt:     time.Now(),
	}

	if requested == 0 {
		metrics.QualityStatus = models.QualityStatusFailed
		metrics.QualityIssues = append(metrics.QualityIssues, "检索未返回任何槽位")
		metrics.ClusteringScore = 1
		return metrics
	}

	// 过滤未命中哨兵
	validSims := make([]float64, 0, requested)
	validIndices := make([]int, 0, requested)
	seen := make(map[int]struct{})
	for i, idx := range indices {
		if idx < 0 {
			continue
		}
		validIndices = append(validIndices, idx)
		seen[idx] = struct{}{}
		if i < len(similarities) {
			validSims = append(validSims, similarities[i])
		}
	}

	metrics.ReturnedCount = len(validIndices)
	metrics.UniqueCount = len(seen)
	metrics.DuplicateCount = metrics.ReturnedCount - metrics.UniqueCount
	// 分母使用请求数而非返回数，重复与缺失受到同等惩罚
	metrics.UniquenessRatio = float64(metrics.UniqueCount) / float64(requested)

	v.computeDispersion(metrics, validSims)
	v.computeTemporal(metrics, validIndices, neighborMeta)
	v.collectIssues(metrics)
	v.scoreAndClassify(metrics)

	return metrics
}

// computeDispersion 计算相似度离散统计，有效样本不足3个时高阶矩记0
func (v *AnalogQualityValidator) computeDispersion(metrics *models.AnalogSearchMetrics, sims []float64) {
	if len(sims) == 0 {
		return
	}

	best, worst := sims[0], sims[0]
	for _, s := range sims {
		if s > best {
			best = s
		}
		if s < worst {
			worst = s
		}
	}

	metrics.SimilarityMean = stat.Mean(sims, nil)
	metrics.SimilarityBest = best
	metrics.SimilarityWorst = worst
	metrics.SimilarityRange = best - worst

	if len(sims) >= 2 {
		metrics.SimilarityVariance = stat.Variance(sims, nil)
		metrics.SimilarityStd = math.Sqrt(metrics.SimilarityVariance)
	}

	if len(sims) >= 3 {
		metrics.Skewness = stat.Skew(sims, nil)
		metrics.Kurtosis = stat.ExKurtosis(sims, nil)
		metrics.NormalityPValue = normalityPValue(sims)
	}
}

// computeTemporal 计算时间分布统计，元数据缺失的样本跳过
func (v *AnalogQualityValidator) computeTemporal(metrics *models.AnalogSearchMetrics, indices []int, neighborMeta map[int]models.AnalogNeighborMeta) {
	timestamps := make([]time.Time, 0, len(indices))
	for _, idx := range indices {
		meta, ok := neighborMeta[idx]
		if !ok || meta.Timestamp.IsZero() {
			slog.Debug("样本时间元数据缺失，跳过", "index", idx)
			continue
		}
		timestamps = append(timestamps, meta.Timestamp)
	}

	temporal := computeTemporalMetrics(timestamps)
	metrics.TemporalSpanHours = temporal.SpanHours
	metrics.ClusteringScore = temporal.ClusteringScore
	metrics.SeasonalDiversity = temporal.SeasonalDiversity
}

// collectIssues 按阈值收集质量问题，问题之间不互斥
func (v *AnalogQualityValidator) collectIssues(metrics *models.AnalogSearchMetrics) {
	t := v.thresholds

	if metrics.UniquenessRatio < t.MinUniquenessRatio {
		metrics.QualityIssues = append(metrics.QualityIssues,
			fmt.Sprintf("唯一性比率 %.3f 低于阈值 %.2f", metrics.UniquenessRatio, t.MinUniquenessRatio))
	}
	if metrics.SimilarityVariance < t.MinVariance {
		metrics.QualityIssues = append(metrics.QualityIssues,
			fmt.Sprintf("相似度方差 %.2e 低于下限 %.0e，索引可能存在退化重复行", metrics.SimilarityVariance, t.MinVariance))
	}
	if metrics.TemporalSpanHours < t.MinSpanHours {
		metrics.QualityIssues = append(metrics.QualityIssues,
			fmt.Sprintf("时间跨度 %.1f 小时低于下限 %.0f 小时", metrics.TemporalSpanHours, t.MinSpanHours))
	}
	if metrics.ClusteringScore > t.MaxClustering {
		metrics.QualityIssues = append(metrics.QualityIssues,
			fmt.Sprintf("时间聚集度 %.2f 超过上限 %.1f", metrics.ClusteringScore, t.MaxClustering))
	}
	if math.Abs(metrics.Skewness) > t.MaxAbsSkewness {
		metrics.QualityIssues = append(metrics.QualityIssues,
			fmt.Sprintf("相似度偏度绝对值 %.2f 超过上限 %.1f", math.Abs(metrics.Skewness), t.MaxAbsSkewness))
	}
}

// scoreAndClassify 计算综合评分并分级
// 评分为六个归一化分量的等权平均；状态判定自上而下，首个命中生效
func (v *AnalogQualityValidator) scoreAndClassify(metrics *models.AnalogSearchMetrics) {
	t := v.thresholds

	varianceComponent := 1.0
	if t.MinVariance > 0 {
		varianceComponent = math.Min(metrics.SimilarityVariance/t.MinVariance, 1.0)
	}
	spanComponent := 1.0
	if t.MinSpanHours > 0 {
		spanComponent = math.Min(metrics.TemporalSpanHours/t.MinSpanHours, 1.0)
	}

	components := []float64{
		metrics.UniquenessRatio,
		varianceComponent,
		spanComponent,
		1 - metrics.ClusteringScore,
		metrics.SeasonalDiversity,
		1 / (1 + math.Abs(metrics.Skewness)),
	}

	score := 0.0
	for _, c := range components {
		score += c
	}
	metrics.OverallQualityScore = score / float64(len(components))

	issueCount := len(metrics.QualityIssues)
	switch {
	case metrics.OverallQualityScore >= 0.9 && issueCount == 0:
		metrics.QualityStatus = models.QualityStatusExcellent
	case metrics.OverallQualityScore >= 0.75 && issueCount <= 1:
		metrics.QualityStatus = models.QualityStatusGood
	case metrics.OverallQualityScore >= t.QualityFloor:
		metrics.QualityStatus = models.QualityStatusDegraded
	case metrics.OverallQualityScore >= 0.3:
		metrics.QualityStatus = models.QualityStatusPoor
	default:
		metrics.QualityStatus = models.QualityStatusFailed
	}
}
