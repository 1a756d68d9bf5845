/*
 * @module service/quality/normality
 * @description 相似度分布正态性检验，小样本使用Shapiro-Wilk（Royston AS R94近似），大样本使用Jarque-Bera
 * @architecture 分层架构 - 数据质量服务层
 * @documentReference ai_docs/analog_quality_req.md
 * @stateFlow 样本排序 -> 统计量计算 -> p值换算
 * @rules 仅返回p值，不暴露检验统计量；样本不足3个时返回0
 * @dependencies gonum.org/v1/gonum/stat, gonum.org/v1/gonum/stat/distuv
 * @refs validator.go
 */

package quality

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// shapiroWilkCutoff Shapiro-Wilk适用的样本量上限，超过改用Jarque-Bera
const shapiroWilkCutoff = 5000

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// normalityPValue 计算正态性检验p值
func normalityPValue(samples []float64) float64 {
	n := len(samples)
	if n < 3 {
		return 0
	}

	if n <= shapiroWilkCutoff {
		return shapiroWilkPValue(samples)
	}
	return jarqueBeraPValue(samples)
}

// jarqueBeraPValue 基于偏度和超额峰度的大样本检验
func jarqueBeraPValue(samples []float64) float64 {
	n := float64(len(samples))
	skew := stat.Skew(samples, nil)
	exKurt := stat.ExKurtosis(samples, nil)

	jb := n / 6 * (skew*skew + exKurt*exKurt/4)
	chi2 := distuv.ChiSquared{K: 2}
	return 1 - chi2.CDF(jb)
}

// shapiroWilkPValue Royston(1995)近似的Shapiro-Wilk检验
func shapiroWilkPValue(samples []float64) float64 {
	n := len(samples)
	x := make([]float64, n)
	copy(x, samples)
	sort.Float64s(x)

	// 零方差样本无法检验，按强烈偏离正态处理
	if x[n-1] == x[0] {
		return 0
	}

	w := shapiroWilkW(x)
	if w >= 1 {
		return 1
	}

	nf := float64(n)
	switch {
	case n == 3:
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		return math.Min(math.Max(p, 0), 1)
	case n <= 11:
		gamma := -2.273 + 0.459*nf
		lw := -math.Log(gamma - math.Log(1-w))
		mu := 0.5440 - 0.39978*nf + 0.025054*nf*nf - 0.0006714*nf*nf*nf
		sigma := math.Exp(1.3822 - 0.77857*nf + 0.062767*nf*nf - 0.0020322*nf*nf*nf)
		z := (lw - mu) / sigma
		return 1 - stdNormal.CDF(z)
	default:
		logN := math.Log(nf)
		lw := math.Log(1 - w)
		mu := 0.0038915*logN*logN*logN - 0.083751*logN*logN - 0.31082*logN - 1.5861
		sigma := math.Exp(0.0030302*logN*logN - 0.082676*logN - 0.4803)
		z := (lw - mu) / sigma
		return 1 - stdNormal.CDF(z)
	}
}

// shapiroWilkW 计算W统计量
func shapiroWilkW(sorted []float64) float64 {
	n := len(sorted)
	nf := float64(n)

	// Blom得分作为期望正态顺序统计量近似
	m := make([]float64, n)
	mSum := 0.0
	for i := 0; i < n; i++ {
		m[i] = stdNormal.Quantile((float64(i+1) - 0.375) / (nf + 0.25))
		mSum += m[i] * m[i]
	}

	u := 1 / math.Sqrt(nf)
	a := make([]float64, n)

	if n <= 5 {
		cn := m[n-1] / math.Sqrt(mSum)
		an := cn + 0.221157*u - 0.147981*u*u - 2.071190*u*u*u +
			4.434685*u*u*u*u - 2.706056*u*u*u*u*u
		phi := (mSum - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
		for i := 1; i < n-1; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
		a[n-1] = an
		a[0] = -an
	} else {
		cn := m[n-1] / math.Sqrt(mSum)
		cn1 := m[n-2] / math.Sqrt(mSum)
		an := cn + 0.221157*u - 0.147981*u*u - 2.071190*u*u*u +
			4.434685*u*u*u*u - 2.706056*u*u*u*u*u
		an1 := cn1 + 0.042981*u - 0.293762*u*u - 1.752461*u*u*u +
			5.682633*u*u*u*u - 3.582633*u*u*u*u*u
		phi := (mSum - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) /
			(1 - 2*an*an - 2*an1*an1)
		for i := 2; i < n-2; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
		a[n-1] = an
		a[n-2] = an1
		a[0] = -an
		a[1] = -an1
	}

	mean := stat.Mean(sorted, nil)
	numerator := 0.0
	denominator := 0.0
	for i := 0; i < n; i++ {
		numerator += a[i] * sorted[i]
		d := sorted[i] - mean
		denominator += d * d
	}

	if denominator == 0 {
		return 0
	}
	return numerator * numerator / denominator
}
