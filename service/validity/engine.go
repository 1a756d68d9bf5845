/*
 * @module service/validity/engine
 * @description 预报变量有效性引擎，对各变量的相似样本结果应用阈值判定，聚合时效级置信度并过滤不可展示变量
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/variable_validity_req.md
 * @stateFlow 样本矩阵 -> 单变量校验 -> 时效汇总 -> 变量过滤 -> 历史记录
 * @rules 零值是缺数哨兵而非合法样本；不可展示变量输出显式缺失而非数值默认值；历史记录按环形缓冲限制容量
 * @dependencies analogcast-service/service/models, math, sync
 * @refs service/quality/, api/controllers/validity_controller.go
 */

package validity

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"analogcast-service/service/models"
)

// maxHistoryReports 时效校验报告历史环形缓冲容量
const maxHistoryReports = 100

// lowConfidenceFloor 时效整体置信度低位阈值，低于此值生成建议
const lowConfidenceFloor = 0.5

// ReportSink 报告归档回调，由归档存储注入
type ReportSink func(report *models.HorizonValidityReport)

// ValidityEngine 预报变量有效性引擎
type ValidityEngine struct {
	history    []*models.HorizonValidityReport
	historyPos int
	historyLen int
	mutex      sync.RWMutex

	reportSink ReportSink
}

// NewValidityEngine 创建有效性引擎实例
func NewValidityEngine() *ValidityEngine {
	return &ValidityEngine{
		history: make([]*models.HorizonValidityReport, maxHistoryReports),
	}
}

// SetReportSink 设置报告归档回调
func (e *ValidityEngine) SetReportSink(sink ReportSink) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.reportSink = sink
}

// ValidateVariable 校验单个变量在指定时效下的样本有效性
func (e *ValidityEngine) ValidateVariable(name string, outcomes []float64, horizonHours int) *models.VariableValidityResult {
	totalAvailable := len(outcomes)
	threshold := ThresholdFor(name)

	result := &models.VariableValidityResult{
		Variable:     name,
		HorizonHours: horizonHours,
		Warnings:     []string{},
		Issues:       []string{},
	}

	// 有效性掩码：有限、非零、温度类变量需在物理量程内
	// 零值在本领域一律视为缺数哨兵而非真实观测
	available := 0
	invalidCount := 0
	outOfRangeCount := 0
	for _, v := range outcomes {
		if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
			invalidCount++
			continue
		}
		if threshold.PhysicalRangeCheck && (v < threshold.PhysicalMin || v > threshold.PhysicalMax) {
			outOfRangeCount++
			continue
		}
		available++
	}

	required := CalculateRequiredAnalogs(name, horizonHours, totalAvailable)
	result.AvailableAnalogs = available
	result.RequiredAnalogs = required

	fraction := 1.0
	if required > 0 {
		fraction = float64(available) / float64(required)
	}

	// 可用性状态判定
	switch {
	case available == 0:
		result.Status = models.AvailabilityUnavailable
	case fraction >= 1.0:
		result.Status = models.AvailabilityAvailable
	case fraction >= sparseWarningFloor:
		result.Status = models.AvailabilitySparse
	default:
		result.Status = models.AvailabilityInsufficient
	}

	// 质量等级与状态使用同一占比，但阈值表独立
	result.QualityLevel = qualityLevelForFraction(fraction)

	// 置信度 = 0.7×覆盖占比（封顶1） + 0.3×质量乘数
	result.ConfidenceFactor = 0.7*math.Min(1, fraction) + 0.3*result.QualityLevel.ConfidenceMultiplier()

	if invalidCount > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: %d 个样本为缺数哨兵或非有限值", name, invalidCount))
	}
	if outOfRangeCount > 0 {
		result.Issues = append(result.Issues,
			fmt.Sprintf("%s: %d 个样本超出物理量程 [%.0f, %.0f]", name, outOfRangeCount, threshold.PhysicalMin, threshold.PhysicalMax))
	}
	if result.Status == models.AvailabilitySparse {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: 样本覆盖稀疏 (%d/%d)，降级展示", name, available, required))
	}
	if !result.IsValid() {
		result.Issues = append(result.Issues,
			fmt.Sprintf("%s: 样本不足 (%d/%d)，不可展示", name, available, required))
	}

	return result
}

// sparseWarningFloor 稀疏告警下限，覆盖占比不低于该值时仍允许降级展示
const sparseWarningFloor = 0.6

// qualityLevelForFraction 按覆盖占比查五级质量表
func qualityLevelForFraction(fraction float64) models.VariableQualityLevel {
	switch {
	case fraction >= 0.9:
		return models.VariableQualityHigh
	case fraction >= 0.7:
		return models.VariableQualityGood
	case fraction >= 0.5:
		return models.VariableQualityFair
	case fraction >= 0.3:
		return models.VariableQualityPoor
	default:
		return models.VariableQualityCritical
	}
}

// ValidateHorizonForecast 校验一个预报时效的全部变量
// outcomes以变量名为键，值为该变量的相似样本结果列
func (e *ValidityEngine) ValidateHorizonForecast(outcomes map[string][]float64, horizonHours int) *models.HorizonValidityReport {
	report := &models.HorizonValidityReport{
		HorizonHours:     horizonHours,
		GeneratedAt:      time.Now(),
		Results:          make(map[string]*models.VariableValidityResult),
		QualityHistogram: make(map[models.VariableQualityLevel]int),
		Issues:           []string{},
		Warnings:         []string{},
		Recommendations:  []string{},
	}

	weightedSum := 0.0
	weightTotal := 0.0
	hasCritical := false

	for name, column := range outcomes {
		result := e.ValidateVariable(name, column, horizonHours)
		report.Results[name] = result
		report.QualityHistogram[result.QualityLevel]++

		if result.IsValid() {
			report.ValidCount++
		} else {
			report.InvalidCount++
		}
		if result.QualityLevel == models.VariableQualityCritical {
			hasCritical = true
		}

		weight := ThresholdFor(name).ImportanceWeight
		weightedSum += result.ConfidenceFactor * weight
		weightTotal += weight

		report.Issues = append(report.Issues, result.Issues...)
		report.Warnings = append(report.Warnings, result.Warnings...)
	}

	if weightTotal > 0 {
		report.OverallConfidence = weightedSum / weightTotal
	}

	// 规则触发的建议
	if report.InvalidCount > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d 个变量样本不足，建议增大相似样本检索规模", report.InvalidCount))
	}
	if hasCritical {
		report.Recommendations = append(report.Recommendations, "检测到严重级变量质量，建议检查历史样本库覆盖")
	}
	if report.OverallConfidence < lowConfidenceFloor {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("时效整体置信度较低 (%.2f)，建议对该时效预报降级展示", report.OverallConfidence))
	}

	e.recordReport(report)
	return report
}

// FilterForecastVariables 按校验报告过滤预报变量
// is_valid为false的变量被剔除；未出现在报告中的变量视为不受此门限约束直接透传
// 被剔除变量由下游以显式缺失标记展示，绝不允许数值默认值
func (e *ValidityEngine) FilterForecastVariables(
	values map[string]float64,
	intervals map[string][2]float64,
	report *models.HorizonValidityReport,
) (map[string]float64, map[string][2]float64) {
	filteredValues := make(map[string]float64, len(values))
	filteredIntervals := make(map[string][2]float64, len(intervals))

	for name, value := range values {
		result := report.ResultFor(name)
		if result != nil && !result.IsValid() {
			slog.Info("变量样本不足，已从预报输出中剔除", "variable", name, "horizon_hours", report.HorizonHours,
				"available", result.AvailableAnalogs, "required", result.RequiredAnalogs)
			continue
		}
		filteredValues[name] = value
		if interval, ok := intervals[name]; ok {
			filteredIntervals[name] = interval
		}
	}

	return filteredValues, filteredIntervals
}

// recordReport 将报告写入环形历史缓冲并触发归档回调
func (e *ValidityEngine) recordReport(report *models.HorizonValidityReport) {
	e.mutex.Lock()
	e.history[e.historyPos] = report
	e.historyPos = (e.historyPos + 1) % maxHistoryReports
	if e.historyLen < maxHistoryReports {
		e.historyLen++
	}
	sink := e.reportSink
	e.mutex.Unlock()

	if sink != nil {
		sink(report)
	}
}

// ValidationHistory 获取历史报告，按时间从旧到新
func (e *ValidityEngine) ValidationHistory() []*models.HorizonValidityReport {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	reports := make([]*models.HorizonValidityReport, 0, e.historyLen)
	start := e.historyPos - e.historyLen
	for i := 0; i < e.historyLen; i++ {
		idx := (start + i + maxHistoryReports) % maxHistoryReports
		reports = append(reports, e.history[idx])
	}
	return reports
}
