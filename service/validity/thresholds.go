/*
 * @module service/validity/thresholds
 * @description 预报变量有效性阈值表，定义各变量的最低样本要求、重要性权重和时效衰减因子
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/variable_validity_req.md
 * @stateFlow 变量名 -> 阈值查询 -> 时效因子调整 -> 所需样本数
 * @rules 核心变量（温度）要求高于稀疏变量（对流有效位能）；时效越长阈值因子单调递减
 * @dependencies math
 * @refs engine.go
 */

package validity

import "math"

// VariableThreshold 单变量有效性阈值
type VariableThreshold struct {
	Name               string  `json:"name"`
	AbsoluteMinimum    int     `json:"absolute_minimum"`     // 最低绝对样本数
	FractionMinimum    float64 `json:"fraction_minimum"`     // 最低样本占比
	ImportanceWeight   float64 `json:"importance_weight"`    // 时效汇总时的重要性权重
	PhysicalRangeCheck bool    `json:"physical_range_check"` // 是否启用物理量程校验（温度类变量）
	PhysicalMin        float64 `json:"physical_min"`
	PhysicalMax        float64 `json:"physical_max"`
}

// defaultVariableThresholds 领域调优的默认变量阈值表
// 温度是核心展示变量要求最高，对流有效位能经常缺报要求最低
var defaultVariableThresholds = map[string]VariableThreshold{
	"temperature": {
		Name:               "temperature",
		AbsoluteMinimum:    20,
		FractionMinimum:    0.8,
		ImportanceWeight:   1.0,
		PhysicalRangeCheck: true,
		PhysicalMin:        150, // Kelvin
		PhysicalMax:        350,
	},
	"wind_speed": {
		Name:             "wind_speed",
		AbsoluteMinimum:  15,
		FractionMinimum:  0.7,
		ImportanceWeight: 0.8,
	},
	"precipitation": {
		Name:             "precipitation",
		AbsoluteMinimum:  12,
		FractionMinimum:  0.6,
		ImportanceWeight: 0.9,
	},
	"pressure": {
		Name:             "pressure",
		AbsoluteMinimum:  15,
		FractionMinimum:  0.7,
		ImportanceWeight: 0.7,
	},
	"humidity": {
		Name:             "humidity",
		AbsoluteMinimum:  12,
		FractionMinimum:  0.6,
		ImportanceWeight: 0.6,
	},
	"cape": {
		Name:             "cape",
		AbsoluteMinimum:  8,
		FractionMinimum:  0.4,
		ImportanceWeight: 0.5,
	},
}

// fallbackThreshold 未登记变量使用的兜底阈值
var fallbackThreshold = VariableThreshold{
	AbsoluteMinimum:  10,
	FractionMinimum:  0.5,
	ImportanceWeight: 0.5,
}

// horizonFactorTable 时效衰减因子表，时效越长允许的样本覆盖越稀疏
var horizonFactorTable = []struct {
	MaxHours int
	Factor   float64
}{
	{6, 1.0},
	{12, 0.95},
	{24, 0.85},
	{48, 0.7},
}

// ThresholdFor 查询变量阈值，未登记变量返回兜底阈值
func ThresholdFor(variable string) VariableThreshold {
	if t, ok := defaultVariableThresholds[variable]; ok {
		return t
	}
	t := fallbackThreshold
	t.Name = variable
	return t
}

// HorizonFactor 查询时效衰减因子，超出表范围使用最长时效的因子
func HorizonFactor(horizonHours int) float64 {
	for _, entry := range horizonFactorTable {
		if horizonHours <= entry.MaxHours {
			return entry.Factor
		}
	}
	return horizonFactorTable[len(horizonFactorTable)-1].Factor
}

// CalculateRequiredAnalogs 计算变量在指定时效下所需的相似样本数
// 取绝对下限与占比下限的较大者，经时效因子调整后不超过总可用数
func CalculateRequiredAnalogs(variable string, horizonHours, totalAvailable int) int {
	if totalAvailable <= 0 {
		return 0
	}

	t := ThresholdFor(variable)
	factor := HorizonFactor(horizonHours)

	absRequired := math.Ceil(float64(t.AbsoluteMinimum) * factor)
	fracRequired := math.Ceil(float64(totalAvailable) * t.FractionMinimum * factor)

	required := int(math.Max(absRequired, fracRequired))
	if required > totalAvailable {
		required = totalAvailable
	}
	return required
}
