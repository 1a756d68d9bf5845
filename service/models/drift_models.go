/*
 * @module service/models/drift_models
 * @description 配置漂移检测相关数据模型，定义漂移严重级别、漂移类型、配置快照和漂移事件
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 快照创建 -> 快照比对 -> 漂移事件生成 -> 事件解决
 * @rules 快照为不可变值对象，漂移事件仅通过显式解决调用修改
 * @dependencies encoding/json, time
 * @refs service/drift/
 */

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DriftSeverity 漂移严重级别
type DriftSeverity string

const (
	DriftSeverityLow      DriftSeverity = "low"
	DriftSeverityMedium   DriftSeverity = "medium"
	DriftSeverityHigh     DriftSeverity = "high"
	DriftSeverityCritical DriftSeverity = "critical"
)

// severityPriorities 严重级别优先级映射，LOW < MEDIUM < HIGH < CRITICAL
var severityPriorities = map[DriftSeverity]int{
	DriftSeverityLow:      1,
	DriftSeverityMedium:   2,
	DriftSeverityHigh:     3,
	DriftSeverityCritical: 4,
}

// Priority 获取严重级别的优先级整数，用于最低级别过滤和升级比较
func (s DriftSeverity) Priority() int {
	return severityPriorities[s]
}

// IsValid 检查严重级别是否有效
func (s DriftSeverity) IsValid() bool {
	_, ok := severityPriorities[s]
	return ok
}

// AtLeast 判断当前级别是否不低于给定级别
func (s DriftSeverity) AtLeast(other DriftSeverity) bool {
	return s.Priority() >= other.Priority()
}

// String 返回严重级别的字符串表示
func (s DriftSeverity) String() string {
	return string(s)
}

// DriftType 漂移类型
type DriftType string

const (
	DriftTypeFileChange         DriftType = "file_change"
	DriftTypeEnvMismatch        DriftType = "env_mismatch"
	DriftTypeSchemaViolation    DriftType = "schema_violation"
	DriftTypeUnauthorizedAccess DriftType = "unauthorized_access"
	DriftTypeBaselineDeviation  DriftType = "baseline_deviation"
	DriftTypeCrossEnvironment   DriftType = "cross_environment"
	DriftTypeSecurityDrift      DriftType = "security_drift"
	DriftTypeDependencyMismatch DriftType = "dependency_mismatch"
)

// IsValid 检查漂移类型是否有效
func (t DriftType) IsValid() bool {
	switch t {
	case DriftTypeFileChange, DriftTypeEnvMismatch, DriftTypeSchemaViolation,
		DriftTypeUnauthorizedAccess, DriftTypeBaselineDeviation,
		DriftTypeCrossEnvironment, DriftTypeSecurityDrift, DriftTypeDependencyMismatch:
		return true
	default:
		return false
	}
}

// String 返回漂移类型的字符串表示
func (t DriftType) String() string {
	return string(t)
}

// ConfigurationSnapshot 配置快照，创建后不可变
type ConfigurationSnapshot struct {
	SnapshotID       string            `json:"snapshot_id"`
	Timestamp        time.Time         `json:"timestamp"`
	FileHashes       map[string]string `json:"file_hashes"`       // 相对路径 -> 内容哈希
	EnvironmentVars  map[string]string `json:"environment_vars"`  // 变量名 -> 原始值（仅展示时脱敏）
	SchemaValidation map[string]bool   `json:"schema_validation"` // 配置路径 -> 校验是否通过
}

// FileCount 获取快照中监控的文件数量
func (s *ConfigurationSnapshot) FileCount() int {
	return len(s.FileHashes)
}

// EnvVarCount 获取快照中采样的环境变量数量
func (s *ConfigurationSnapshot) EnvVarCount() int {
	return len(s.EnvironmentVars)
}

// SchemaFailureCount 获取快照中校验失败的配置数量
func (s *ConfigurationSnapshot) SchemaFailureCount() int {
	count := 0
	for _, ok := range s.SchemaValidation {
		if !ok {
			count++
		}
	}
	return count
}

// DriftEvent 漂移事件
type DriftEvent struct {
	EventID         string                 `json:"event_id"`
	DriftType       DriftType              `json:"drift_type"`
	Severity        DriftSeverity          `json:"severity"`
	SourcePath      string                 `json:"source_path"`
	Description     string                 `json:"description"`
	DetectedAt      time.Time              `json:"detected_at"`
	OldValue        string                 `json:"old_value,omitempty"` // 敏感值已脱敏
	NewValue        string                 `json:"new_value,omitempty"` // 敏感值已脱敏
	Metadata        map[string]interface{} `json:"metadata,omitempty"`  // 开放扩展字段，如令牌熵分析结果
	Resolved        bool                   `json:"resolved"`
	ResolutionNotes string                 `json:"resolution_notes,omitempty"`
}

// Resolve 标记事件为已解决，解决说明不能为空
func (e *DriftEvent) Resolve(notes string) error {
	if notes == "" {
		return fmt.Errorf("解决说明不能为空")
	}
	e.Resolved = true
	e.ResolutionNotes = notes
	return nil
}

// IsCritical 判断事件是否为严重级别
func (e *DriftEvent) IsCritical() bool {
	return e.Severity == DriftSeverityCritical
}

// DriftReport 漂移汇总报告
type DriftReport struct {
	GeneratedAt        time.Time             `json:"generated_at"`
	TotalEvents        int                   `json:"total_events"`
	SeverityCounts     map[DriftSeverity]int `json:"severity_counts"`
	TypeCounts         map[DriftType]int     `json:"type_counts"`
	TopSources         []SourceCount         `json:"top_sources"`
	RecentEvents       []*DriftEvent         `json:"recent_events"`
	UnresolvedCritical []*DriftEvent         `json:"unresolved_critical"`
	Recommendations    []string              `json:"recommendations"`
}

// SourceCount 按来源统计的漂移次数
type SourceCount struct {
	SourcePath string `json:"source_path"`
	Count      int    `json:"count"`
}

// DriftState JSON持久化状态，序列化/反序列化必须无损往返
type DriftState struct {
	Baseline  *ConfigurationSnapshot   `json:"baseline,omitempty"`
	Snapshots []*ConfigurationSnapshot `json:"snapshots"`
	Events    []*DriftEvent            `json:"events"`
	SavedAt   time.Time                `json:"saved_at"`
}

// Marshal 序列化持久化状态
func (s *DriftState) Marshal() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// UnmarshalDriftState 反序列化持久化状态
func UnmarshalDriftState(data []byte) (*DriftState, error) {
	var state DriftState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("解析漂移状态失败: %w", err)
	}
	return &state, nil
}
