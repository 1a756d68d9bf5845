/*
 * @module service/models/validity_models
 * @description 预报变量有效性相关数据模型，定义可用性状态、质量等级、单变量校验结果和时效校验报告
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/variable_validity_req.md
 * @stateFlow 样本结果 -> 有效性掩码 -> 状态分级 -> 置信度计算 -> 时效汇总
 * @rules is_valid 当且仅当状态为 AVAILABLE 或 SPARSE；不可展示的变量必须以显式缺失标记输出
 * @dependencies time
 * @refs service/validity/
 */

package models

import "time"

// AvailabilityStatus 变量样本可用性状态
type AvailabilityStatus string

const (
	AvailabilityAvailable    AvailabilityStatus = "available"
	AvailabilitySparse       AvailabilityStatus = "sparse"
	AvailabilityInsufficient AvailabilityStatus = "insufficient"
	AvailabilityUnavailable  AvailabilityStatus = "unavailable"
)

// String 返回可用性状态的字符串表示
func (s AvailabilityStatus) String() string {
	return string(s)
}

// VariableQualityLevel 变量质量等级，五级
type VariableQualityLevel string

const (
	VariableQualityHigh     VariableQualityLevel = "high"
	VariableQualityGood     VariableQualityLevel = "good"
	VariableQualityFair     VariableQualityLevel = "fair"
	VariableQualityPoor     VariableQualityLevel = "poor"
	VariableQualityCritical VariableQualityLevel = "critical"
)

// ConfidenceMultiplier 获取质量等级对应的置信度乘数
func (l VariableQualityLevel) ConfidenceMultiplier() float64 {
	switch l {
	case VariableQualityHigh:
		return 1.0
	case VariableQualityGood:
		return 0.9
	case VariableQualityFair:
		return 0.7
	case VariableQualityPoor:
		return 0.5
	default:
		return 0.2
	}
}

// String 返回质量等级的字符串表示
func (l VariableQualityLevel) String() string {
	return string(l)
}

// VariableValidityResult 单变量单时效的校验结果
type VariableValidityResult struct {
	Variable         string               `json:"variable"`
	HorizonHours     int                  `json:"horizon_hours"`
	Status           AvailabilityStatus   `json:"status"`
	QualityLevel     VariableQualityLevel `json:"quality_level"`
	AvailableAnalogs int                  `json:"available_analogs"`
	RequiredAnalogs  int                  `json:"required_analogs"`
	ConfidenceFactor float64              `json:"confidence_factor"` // [0,1]
	Warnings         []string             `json:"warnings,omitempty"`
	Issues           []string             `json:"issues,omitempty"`
}

// IsValid 判断变量是否可展示，SPARSE允许降级展示
func (r *VariableValidityResult) IsValid() bool {
	return r.Status == AvailabilityAvailable || r.Status == AvailabilitySparse
}

// HorizonValidityReport 单个预报时效的变量有效性汇总报告
type HorizonValidityReport struct {
	HorizonHours      int                                `json:"horizon_hours"`
	GeneratedAt       time.Time                          `json:"generated_at"`
	Results           map[string]*VariableValidityResult `json:"results"`
	ValidCount        int                                `json:"valid_count"`
	InvalidCount      int                                `json:"invalid_count"`
	OverallConfidence float64                            `json:"overall_confidence"` // 重要性加权平均
	QualityHistogram  map[VariableQualityLevel]int       `json:"quality_histogram"`
	Issues            []string                           `json:"issues,omitempty"`
	Warnings          []string                           `json:"warnings,omitempty"`
	Recommendations   []string                           `json:"recommendations,omitempty"`
}

// ResultFor 获取指定变量的校验结果，不存在返回nil
func (r *HorizonValidityReport) ResultFor(variable string) *VariableValidityResult {
	if r == nil {
		return nil
	}
	return r.Results[variable]
}
