/*
 * @module service/drift/report
 * @description 漂移汇总报告生成与事件解决，支持按最低严重级别和时间窗过滤
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 事件日志 -> 过滤 -> 计数聚合 -> 来源排名 -> 建议生成 -> 报告
 * @rules 来源排名前五，计数相同时按首次出现顺序；最近事件取过滤后的末尾十条；建议由规则触发而非固定文案
 * @dependencies analogcast-service/service/models, sort
 * @refs detector.go
 */

package drift

import (
	"fmt"
	"sort"
	"time"

	"analogcast-service/service/models"
)

// 报告截断参数
const (
	reportTopSourceLimit   = 5
	reportRecentEventLimit = 10
)

// GetDriftReport 生成漂移汇总报告
// minSeverity过滤低于该级别的事件；hoursBack>0时仅统计该时间窗内的事件
func (d *DriftDetector) GetDriftReport(minSeverity models.DriftSeverity, hoursBack int) *models.DriftReport {
	d.mutex.RLock()
	all := make([]*models.DriftEvent, len(d.events))
	copy(all, d.events)
	d.mutex.RUnlock()

	var cutoff time.Time
	if hoursBack > 0 {
		cutoff = time.Now().Add(-time.Duration(hoursBack) * time.Hour)
	}

	filtered := make([]*models.DriftEvent, 0, len(all))
	for _, event := range all {
		if minSeverity.IsValid() && !event.Severity.AtLeast(minSeverity) {
			continue
		}
		if hoursBack > 0 && event.DetectedAt.Before(cutoff) {
			continue
		}
		filtered = append(filtered, event)
	}

	report := &models.DriftReport{
		GeneratedAt:        time.Now(),
		TotalEvents:        len(filtered),
		SeverityCounts:     make(map[models.DriftSeverity]int),
		TypeCounts:         make(map[models.DriftType]int),
		TopSources:         []models.SourceCount{},
		RecentEvents:       []*models.DriftEvent{},
		UnresolvedCritical: []*models.DriftEvent{},
		Recommendations:    []string{},
	}

	sourceCounts := make(map[string]int)
	sourceOrder := make([]string, 0)
	for _, event := range filtered {
		report.SeverityCounts[event.Severity]++
		report.TypeCounts[event.DriftType]++
		if _, seen := sourceCounts[event.SourcePath]; !seen {
			sourceOrder = append(sourceOrder, event.SourcePath)
		}
		sourceCounts[event.SourcePath]++

		if event.IsCritical() && !event.Resolved {
			report.UnresolvedCritical = append(report.UnresolvedCritical, event)
		}
	}

	report.TopSources = rankSources(sourceCounts, sourceOrder)

	recentStart := len(filtered) - reportRecentEventLimit
	if recentStart < 0 {
		recentStart = 0
	}
	report.RecentEvents = append(report.RecentEvents, filtered[recentStart:]...)

	report.Recommendations = buildRecommendations(report)
	return report
}

// rankSources 按计数降序排名来源，计数相同保持首次出现顺序，截取前五
func rankSources(counts map[string]int, order []string) []models.SourceCount {
	ranked := make([]models.SourceCount, 0, len(order))
	for _, source := range order {
		ranked = append(ranked, models.SourceCount{SourcePath: source, Count: counts[source]})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if len(ranked) > reportTopSourceLimit {
		ranked = ranked[:reportTopSourceLimit]
	}
	return ranked
}

// buildRecommendations 按报告内容生成整改建议
func buildRecommendations(report *models.DriftReport) []string {
	recommendations := make([]string, 0)

	if n := len(report.UnresolvedCritical); n > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("存在 %d 条未解决的严重漂移事件，建议立即处理", n))
	}
	if n := report.TypeCounts[models.DriftTypeSecurityDrift]; n > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("检测到 %d 条安全漂移，建议轮换相关凭据并复核密钥管理流程", n))
	}
	if n := report.TypeCounts[models.DriftTypeSchemaViolation]; n > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("检测到 %d 条配置结构违规，建议校验配置文件后重新发布", n))
	}
	if len(report.TopSources) > 0 && report.TopSources[0].Count >= 5 {
		recommendations = append(recommendations,
			fmt.Sprintf("来源 %s 漂移频繁 (%d 次)，建议将其纳入变更审批流程",
				report.TopSources[0].SourcePath, report.TopSources[0].Count))
	}
	if report.TotalEvents > 0 && len(recommendations) == 0 {
		recommendations = append(recommendations, "定期复核漂移事件并更新基线快照")
	}

	return recommendations
}

// ResolveDriftEvent 按事件ID标记事件为已解决
// 返回是否找到并成功解决该事件
func (d *DriftDetector) ResolveDriftEvent(eventID, notes string) (bool, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for _, event := range d.events {
		if event.EventID != eventID {
			continue
		}
		if err := event.Resolve(notes); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}
