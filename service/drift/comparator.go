/*
 * @module service/drift/comparator
 * @description 快照比对器，对两个配置快照做文件哈希、环境变量和结构校验的差异分析并生成漂移事件
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 旧快照+新快照 -> 键集合求交并 -> 差异识别 -> 严重级别判定 -> 脱敏 -> 漂移事件
 * @rules 仅对双方都存在的键报告值变化，新增和消失的键不产生事件；严重级别按模式表自上而下首个命中；敏感值进入事件前必须脱敏
 * @dependencies github.com/google/uuid, analogcast-service/service/utils
 * @refs snapshot_engine.go, detector.go
 */

package drift

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"analogcast-service/service/models"
	"analogcast-service/service/utils"

	"github.com/google/uuid"
)

// severityPattern 严重级别判定模式，Substrings任一命中即生效
type severityPattern struct {
	Severity   models.DriftSeverity
	Substrings []string
}

// fileSeverityPatterns 文件路径严重级别模式表，按严重级别从高到低排列，首个命中生效
var fileSeverityPatterns = []severityPattern{
	{models.DriftSeverityCritical, []string{
		"docker-compose", "dockerfile", "k8s", "kubernetes", "terraform", ".tf",
		"security", ".env.prod", ".env.production",
	}},
	{models.DriftSeverityHigh, []string{
		"model.yaml", "model.yml", "data.yaml", "data.yml", "training",
		"prometheus", "alertmanager",
	}},
	{models.DriftSeverityMedium, []string{
		".env", "config", "settings",
	}},
}

// envSeverityPatterns 环境变量名严重级别模式表，规则同文件表
var envSeverityPatterns = []severityPattern{
	{models.DriftSeverityCritical, []string{
		"token", "secret", "password", "pwd", "database_url", "jwt",
		"aws_", "gcp_", "azure_",
	}},
	{models.DriftSeverityHigh, []string{
		"environment", "log_level", "debug", "cors", "rate_limit",
		"model_path", "data_path",
	}},
	{models.DriftSeverityMedium, []string{
		"base_url", "timeout", "worker", "batch_size",
	}},
}

// classifyBySubstring 按模式表判定严重级别，未命中返回LOW
func classifyBySubstring(name string, patterns []severityPattern) models.DriftSeverity {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		for _, sub := range p.Substrings {
			if strings.Contains(lower, sub) {
				return p.Severity
			}
		}
	}
	return models.DriftSeverityLow
}

// ClassifyFileSeverity 判定文件路径变化的严重级别
func ClassifyFileSeverity(relPath string) models.DriftSeverity {
	return classifyBySubstring(relPath, fileSeverityPatterns)
}

// ClassifyEnvSeverity 判定环境变量变化的严重级别
func ClassifyEnvSeverity(name string) models.DriftSeverity {
	return classifyBySubstring(name, envSeverityPatterns)
}

// CompareSnapshots 比对两个快照并返回漂移事件
// 事件时间戳取比对时刻而非快照时刻；输出按来源路径排序保证确定性
func CompareSnapshots(old, current *models.ConfigurationSnapshot) []*models.DriftEvent {
	if old == nil || current == nil {
		return nil
	}

	now := time.Now()
	events := make([]*models.DriftEvent, 0)

	events = append(events, compareFileHashes(old, current, now)...)
	events = append(events, compareEnvironmentVars(old, current, now)...)
	events = append(events, compareSchemaValidation(old, current, now)...)

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].SourcePath < events[j].SourcePath
	})
	return events
}

// compareFileHashes 比对文件哈希，仅报告双方都存在且哈希不同的文件
func compareFileHashes(old, current *models.ConfigurationSnapshot, now time.Time) []*models.DriftEvent {
	events := make([]*models.DriftEvent, 0)
	for path, oldHash := range old.FileHashes {
		newHash, ok := current.FileHashes[path]
		if !ok || newHash == oldHash {
			continue
		}
		events = append(events, &models.DriftEvent{
			EventID:     uuid.New().String(),
			DriftType:   models.DriftTypeFileChange,
			Severity:    ClassifyFileSeverity(path),
			SourcePath:  path,
			Description: fmt.Sprintf("监控文件内容发生变化: %s", path),
			DetectedAt:  now,
			OldValue:    oldHash,
			NewValue:    newHash,
		})
	}
	return events
}

// compareEnvironmentVars 比对环境变量，仅报告双方都存在且值不同的变量
// 敏感变量的新旧值写入事件前脱敏
func compareEnvironmentVars(old, current *models.ConfigurationSnapshot, now time.Time) []*models.DriftEvent {
	events := make([]*models.DriftEvent, 0)
	for name, oldValue := range old.EnvironmentVars {
		newValue, ok := current.EnvironmentVars[name]
		if !ok || newValue == oldValue {
			continue
		}
		events = append(events, &models.DriftEvent{
			EventID:     uuid.New().String(),
			DriftType:   models.DriftTypeEnvMismatch,
			Severity:    ClassifyEnvSeverity(name),
			SourcePath:  name,
			Description: fmt.Sprintf("环境变量值发生变化: %s", name),
			DetectedAt:  now,
			OldValue:    utils.MaskIfSensitive(name, oldValue),
			NewValue:    utils.MaskIfSensitive(name, newValue),
		})
	}
	return events
}

// compareSchemaValidation 比对结构校验结果，通过转失败报HIGH，失败转通过报LOW
func compareSchemaValidation(old, current *models.ConfigurationSnapshot, now time.Time) []*models.DriftEvent {
	events := make([]*models.DriftEvent, 0)
	for path, oldPassed := range old.SchemaValidation {
		newPassed, ok := current.SchemaValidation[path]
		if !ok || newPassed == oldPassed {
			continue
		}

		severity := models.DriftSeverityLow
		description := fmt.Sprintf("配置结构校验恢复通过: %s", path)
		if !newPassed {
			severity = models.DriftSeverityHigh
			description = fmt.Sprintf("配置结构校验由通过转为失败: %s", path)
		}

		events = append(events, &models.DriftEvent{
			EventID:     uuid.New().String(),
			DriftType:   models.DriftTypeSchemaViolation,
			Severity:    severity,
			SourcePath:  path,
			Description: description,
			DetectedAt:  now,
			OldValue:    fmt.Sprintf("%t", oldPassed),
			NewValue:    fmt.Sprintf("%t", newPassed),
		})
	}
	return events
}
