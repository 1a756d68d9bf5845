/*
 * @module service/quality/normality_test
 * @description 正态性检验单元测试，覆盖小样本Shapiro-Wilk与大样本Jarque-Bera路径
 * @architecture 单元测试
 * @documentReference ai_docs/analog_quality_req.md
 * @stateFlow 构造样本 -> 检验 -> 验证p值范围
 * @rules p值必须落在[0,1]；样本不足或零方差返回0
 * @dependencies testing, testify
 * @refs normality.go
 */

package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gonum.org/v1/gonum/stat/distuv"
)

func TestNormalityPValue_DegenerateSamples(t *testing.T) {
	// 样本不足3个返回0
	assert.Zero(t, normalityPValue(nil))
	assert.Zero(t, normalityPValue([]float64{1}))
	assert.Zero(t, normalityPValue([]float64{1, 2}))
	// 零方差样本返回0
	assert.Zero(t, normalityPValue([]float64{5, 5, 5, 5, 5}))
}

func TestNormalityPValue_NormalQuantileSample(t *testing.T) {
	// 按标准正态分位数构造的样本是"完美"正态顺序统计量，p值应很高
	n := 20
	dist := distuv.Normal{Mu: 0, Sigma: 1}
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		samples[i] = dist.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
	}

	p := normalityPValue(samples)
	assert.Greater(t, p, 0.5)
	assert.LessOrEqual(t, p, 1.0)
}

func TestNormalityPValue_ExtremeOutlierRejected(t *testing.T) {
	// 一个巨大离群点严重偏离正态，p值应接近0
	samples := []float64{1.0, 1.1, 0.9, 1.05, 0.95, 1.02, 0.98, 1.01, 0.99, 1000}

	p := normalityPValue(samples)
	assert.Less(t, p, 0.05)
	assert.GreaterOrEqual(t, p, 0.0)
}

func TestNormalityPValue_SmallestSupportedSample(t *testing.T) {
	// n=3走专用解析式
	p := normalityPValue([]float64{1, 2, 3})
	assert.GreaterOrEqual(t, p, 0.0)
	assert.LessOrEqual(t, p, 1.0)
}

func TestJarqueBeraPValue(t *testing.T) {
	// 对称无峰度偏离的样本JB统计量接近0，p值接近1
	symmetric := []float64{-2, -1, 0, 1, 2, -2, -1, 0, 1, 2}
	p := jarqueBeraPValue(symmetric)
	assert.Greater(t, p, 0.5)

	// 强偏样本p值显著更低
	skewed := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 100}
	assert.Less(t, jarqueBeraPValue(skewed), p)
}
