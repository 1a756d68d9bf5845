/*
 * @module service/drift/token_analyzer
 * @description 令牌强度分析器，从长度、香农熵、字符类别多样性和弱模式四个维度评估凭据质量
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 令牌 -> 四维度检查 -> 违规计数 -> 强度分级 -> 整改建议
 * @rules 分级仅由违规数量决定：0项excellent，1项strong，2项fair，其余weak；分析结果不包含令牌原文
 * @dependencies math, strings, unicode
 * @refs detector.go
 */

package drift

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

// TokenStrength 令牌强度等级
type TokenStrength string

const (
	TokenStrengthWeak      TokenStrength = "weak"
	TokenStrengthFair      TokenStrength = "fair"
	TokenStrengthStrong    TokenStrength = "strong"
	TokenStrengthExcellent TokenStrength = "excellent"
)

// TokenAnalysis 令牌分析结果，不携带令牌原文
type TokenAnalysis struct {
	Strength        TokenStrength `json:"strength"`
	Length          int           `json:"length"`
	EntropyBits     float64       `json:"entropy_bits"`
	CharClassCount  int           `json:"char_class_count"`
	HasWeakPattern  bool          `json:"has_weak_pattern"`
	Violations      []string      `json:"violations"`
	Recommendations []string      `json:"recommendations"`
}

// 令牌强度判定参数
const (
	tokenMinLength     = 32
	tokenMinEntropyBit = 128.0
	tokenMinCharClass  = 3
)

// AnalyzeTokenStrength 分析令牌强度
func AnalyzeTokenStrength(token string) *TokenAnalysis {
	analysis := &TokenAnalysis{
		Length:          len(token),
		EntropyBits:     shannonEntropyBits(token),
		CharClassCount:  countCharClasses(token),
		HasWeakPattern:  hasWeakPattern(token),
		Violations:      []string{},
		Recommendations: []string{},
	}

	if analysis.Length < tokenMinLength {
		analysis.Violations = append(analysis.Violations,
			fmt.Sprintf("长度 %d 低于最低要求 %d", analysis.Length, tokenMinLength))
		analysis.Recommendations = append(analysis.Recommendations,
			fmt.Sprintf("将令牌长度增加到至少 %d 个字符", tokenMinLength))
	}
	if analysis.EntropyBits < tokenMinEntropyBit {
		analysis.Violations = append(analysis.Violations,
			fmt.Sprintf("香农熵 %.1f 比特低于最低要求 %.0f 比特", analysis.EntropyBits, tokenMinEntropyBit))
		analysis.Recommendations = append(analysis.Recommendations,
			"使用密码学安全随机源生成令牌以提高熵")
	}
	if analysis.CharClassCount < tokenMinCharClass {
		analysis.Violations = append(analysis.Violations,
			fmt.Sprintf("字符类别 %d 种低于最低要求 %d 种", analysis.CharClassCount, tokenMinCharClass))
		analysis.Recommendations = append(analysis.Recommendations,
			"混合使用大写字母、小写字母、数字和特殊字符")
	}
	if analysis.HasWeakPattern {
		analysis.Violations = append(analysis.Violations, "包含重复或顺序字符等弱模式")
		analysis.Recommendations = append(analysis.Recommendations,
			"避免重复字符和键盘顺序片段")
	}

	switch len(analysis.Violations) {
	case 0:
		analysis.Strength = TokenStrengthExcellent
	case 1:
		analysis.Strength = TokenStrengthStrong
	case 2:
		analysis.Strength = TokenStrengthFair
	default:
		analysis.Strength = TokenStrengthWeak
	}

	return analysis
}

// shannonEntropyBits 计算令牌的香农熵总比特数（每字符熵×长度）
func shannonEntropyBits(token string) float64 {
	if token == "" {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range token {
		counts[r]++
		total++
	}

	perChar := 0.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		perChar -= p * math.Log2(p)
	}
	return perChar * float64(total)
}

// countCharClasses 统计令牌覆盖的字符类别数：大写、小写、数字、特殊
func countCharClasses(token string) int {
	var upper, lower, digit, special bool
	for _, r := range token {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}

	count := 0
	for _, present := range []bool{upper, lower, digit, special} {
		if present {
			count++
		}
	}
	return count
}

// hasWeakPattern 检测连续重复字符（3个及以上）或顺序字符片段
func hasWeakPattern(token string) bool {
	runes := []rune(strings.ToLower(token))
	if len(runes) < 3 {
		return false
	}

	for i := 0; i+2 < len(runes); i++ {
		a, b, c := runes[i], runes[i+1], runes[i+2]
		if a == b && b == c {
			return true
		}
		if b == a+1 && c == b+1 {
			return true
		}
		if b == a-1 && c == b-1 {
			return true
		}
	}
	return false
}
