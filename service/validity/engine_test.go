/*
 * @module service/validity/engine_test
 * @description 有效性引擎单元测试，覆盖单变量判定、哨兵过滤、物理量程、时效汇总、变量过滤和历史缓冲
 * @architecture 单元测试
 * @documentReference ai_docs/variable_validity_req.md
 * @stateFlow 构造样本列 -> 校验 -> 验证状态与置信度
 * @rules 零值视为缺数哨兵；不可展示变量必须被过滤而非填充默认值
 * @dependencies testing, testify
 * @refs engine.go
 */

package validity

import (
	"math"
	"strings"
	"testing"

	"analogcast-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// temperatureColumn 生成量程内的温度样本列（开尔文），前valid个为有效值其余为缺数哨兵
func temperatureColumn(total, valid int) []float64 {
	column := make([]float64, total)
	for i := 0; i < valid; i++ {
		column[i] = 280 + float64(i)*0.5
	}
	return column
}

func TestValidateVariable_AvailableWithSentinels(t *testing.T) {
	engine := NewValidityEngine()

	// 25个样本槽位中20个有效，5个为缺数哨兵(0)
	result := engine.ValidateVariable("temperature", temperatureColumn(25, 20), 24)

	assert.Equal(t, 20, result.AvailableAnalogs)
	assert.Equal(t, 17, result.RequiredAnalogs)
	assert.Equal(t, models.AvailabilityAvailable, result.Status)
	assert.Equal(t, models.VariableQualityHigh, result.QualityLevel)
	assert.InDelta(t, 1.0, result.ConfidenceFactor, 1e-9)
	assert.True(t, result.IsValid())
	// 哨兵产生告警但不产生问题
	assert.Len(t, result.Warnings, 1)
	assert.Empty(t, result.Issues)
}

func TestValidateVariable_NonFiniteTreatedAsMissing(t *testing.T) {
	engine := NewValidityEngine()

	column := temperatureColumn(25, 25)
	column[0] = math.NaN()
	column[1] = math.Inf(1)
	column[2] = math.Inf(-1)
	column[3] = 0

	result := engine.ValidateVariable("temperature", column, 24)

	assert.Equal(t, 21, result.AvailableAnalogs)
	assert.Equal(t, models.AvailabilityAvailable, result.Status)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateVariable_PhysicalRangeEnforced(t *testing.T) {
	engine := NewValidityEngine()

	// 温度启用物理量程校验[150, 350]K，超程值既不可用又产生问题
	column := temperatureColumn(25, 25)
	for i := 0; i < 10; i++ {
		column[i] = 9999
	}

	result := engine.ValidateVariable("temperature", column, 24)

	assert.Equal(t, 15, result.AvailableAnalogs)
	assert.NotEmpty(t, result.Issues)

	// 风速未启用量程校验，相同数值不会被剔除
	wind := make([]float64, 25)
	for i := range wind {
		wind[i] = 9999
	}
	windResult := engine.ValidateVariable("wind_speed", wind, 24)
	assert.Equal(t, 25, windResult.AvailableAnalogs)
}

func TestValidateVariable_StatusLadder(t *testing.T) {
	engine := NewValidityEngine()

	tests := []struct {
		name       string
		valid      int
		wantStatus models.AvailabilityStatus
		wantValid  bool
	}{
		// 温度6小时时效，25个槽位所需20个
		{"覆盖充足", 22, models.AvailabilityAvailable, true},
		{"覆盖稀疏降级展示", 14, models.AvailabilitySparse, true},
		{"覆盖不足不可展示", 8, models.AvailabilityInsufficient, false},
		{"全部缺数", 0, models.AvailabilityUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.ValidateVariable("temperature", temperatureColumn(25, tt.valid), 6)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantValid, result.IsValid())
		})
	}
}

func TestValidateVariable_ConfidenceFormula(t *testing.T) {
	engine := NewValidityEngine()

	// 温度6小时时效：所需20，可用14，占比0.7 -> good(乘数0.9)
	result := engine.ValidateVariable("temperature", temperatureColumn(25, 14), 6)

	require.Equal(t, 20, result.RequiredAnalogs)
	assert.Equal(t, models.VariableQualityGood, result.QualityLevel)
	assert.InDelta(t, 0.7*0.7+0.3*0.9, result.ConfidenceFactor, 1e-9)
}

func TestValidateHorizonForecast_Aggregation(t *testing.T) {
	engine := NewValidityEngine()

	cape := make([]float64, 25)
	cape[0] = 500
	cape[1] = 1200

	report := engine.ValidateHorizonForecast(map[string][]float64{
		"temperature": temperatureColumn(25, 25),
		"cape":        cape,
	}, 24)

	assert.Equal(t, 1, report.ValidCount)
	assert.Equal(t, 1, report.InvalidCount)
	assert.Equal(t, 1, report.QualityHistogram[models.VariableQualityHigh])
	assert.Equal(t, 1, report.QualityHistogram[models.VariableQualityCritical])

	// 重要性加权：温度(1.0, 权重1.0) + cape(0.7*2/9+0.06, 权重0.5)
	assert.InDelta(t, 0.739, report.OverallConfidence, 0.01)

	// 样本不足与严重级质量各触发一条建议
	require.Len(t, report.Recommendations, 2)
	assert.NotEmpty(t, report.Issues)
}

func TestValidateHorizonForecast_LowConfidenceRecommendation(t *testing.T) {
	engine := NewValidityEngine()

	// 单变量全缺数：置信度0.06，触发低置信度降级建议
	report := engine.ValidateHorizonForecast(map[string][]float64{
		"temperature": temperatureColumn(25, 0),
	}, 24)

	assert.Less(t, report.OverallConfidence, lowConfidenceFloor)
	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "置信度较低") {
			found = true
		}
	}
	assert.True(t, found, "应生成低置信度降级建议")
}

func TestFilterForecastVariables(t *testing.T) {
	engine := NewValidityEngine()

	cape := make([]float64, 25)
	cape[0] = 500

	report := engine.ValidateHorizonForecast(map[string][]float64{
		"temperature": temperatureColumn(25, 25),
		"cape":        cape,
	}, 24)
	require.False(t, report.ResultFor("cape").IsValid())

	values := map[string]float64{
		"temperature": 285.5,
		"cape":        800,
		"humidity":    0.65, // 未参与校验的变量直接透传
	}
	intervals := map[string][2]float64{
		"temperature": {283.0, 288.0},
		"cape":        {400, 1200},
	}

	filteredValues, filteredIntervals := engine.FilterForecastVariables(values, intervals, report)

	assert.Equal(t, 285.5, filteredValues["temperature"])
	assert.Equal(t, 0.65, filteredValues["humidity"])
	// 不可展示变量必须显式缺失，绝不允许数值默认值
	_, exists := filteredValues["cape"]
	assert.False(t, exists)
	_, exists = filteredIntervals["cape"]
	assert.False(t, exists)
	assert.Contains(t, filteredIntervals, "temperature")
}

func TestValidationHistory_RingBuffer(t *testing.T) {
	engine := NewValidityEngine()

	// 写入超出容量的报告，验证环形缓冲只保留最近maxHistoryReports条且从旧到新
	total := maxHistoryReports + 5
	for i := 0; i < total; i++ {
		engine.ValidateHorizonForecast(map[string][]float64{
			"temperature": {280},
		}, i+1)
	}

	history := engine.ValidationHistory()
	require.Len(t, history, maxHistoryReports)
	assert.Equal(t, 6, history[0].HorizonHours)
	assert.Equal(t, total, history[len(history)-1].HorizonHours)
}

func TestSetReportSink(t *testing.T) {
	engine := NewValidityEngine()

	var captured *models.HorizonValidityReport
	engine.SetReportSink(func(report *models.HorizonValidityReport) {
		captured = report
	})

	engine.ValidateHorizonForecast(map[string][]float64{
		"temperature": temperatureColumn(25, 25),
	}, 12)

	require.NotNil(t, captured)
	assert.Equal(t, 12, captured.HorizonHours)
}
