/*
 * @module service/models/archive_models
 * @description 归档存储数据模型，定义漂移事件和时效校验报告的落库结构
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 内存淘汰/报告生成 -> 归档写入 -> 历史查询
 * @rules 枚举按字符串名称落库，元数据按JSON文本落库
 * @dependencies gorm.io/gorm, encoding/json, time
 * @refs service/database/archive_store.go
 */

package models

import (
	"encoding/json"
	"time"
)

// DriftEventArchive 漂移事件归档记录
type DriftEventArchive struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID         string    `gorm:"size:64;uniqueIndex" json:"event_id"`
	DriftType       string    `gorm:"size:32;index" json:"drift_type"`
	Severity        string    `gorm:"size:16;index" json:"severity"`
	SourcePath      string    `gorm:"size:512" json:"source_path"`
	Description     string    `gorm:"type:text" json:"description"`
	DetectedAt      time.Time `gorm:"index" json:"detected_at"`
	OldValue        string    `gorm:"type:text" json:"old_value"`
	NewValue        string    `gorm:"type:text" json:"new_value"`
	MetadataJSON    string    `gorm:"type:text" json:"metadata_json"`
	Resolved        bool      `json:"resolved"`
	ResolutionNotes string    `gorm:"type:text" json:"resolution_notes"`
	ArchivedAt      time.Time `gorm:"autoCreateTime" json:"archived_at"`
}

// TableName 指定归档表名
func (DriftEventArchive) TableName() string {
	return "drift_event_archive"
}

// NewDriftEventArchive 由漂移事件构建归档记录
func NewDriftEventArchive(event *DriftEvent) *DriftEventArchive {
	metadataJSON := ""
	if len(event.Metadata) > 0 {
		if data, err := json.Marshal(event.Metadata); err == nil {
			metadataJSON = string(data)
		}
	}

	return &DriftEventArchive{
		EventID:         event.EventID,
		DriftType:       event.DriftType.String(),
		Severity:        event.Severity.String(),
		SourcePath:      event.SourcePath,
		Description:     event.Description,
		DetectedAt:      event.DetectedAt,
		OldValue:        event.OldValue,
		NewValue:        event.NewValue,
		MetadataJSON:    metadataJSON,
		Resolved:        event.Resolved,
		ResolutionNotes: event.ResolutionNotes,
	}
}

// HorizonReportArchive 时效校验报告归档记录
type HorizonReportArchive struct {
	ID                uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	HorizonHours      int       `gorm:"index" json:"horizon_hours"`
	GeneratedAt       time.Time `gorm:"index" json:"generated_at"`
	ValidCount        int       `json:"valid_count"`
	InvalidCount      int       `json:"invalid_count"`
	OverallConfidence float64   `json:"overall_confidence"`
	ReportJSON        string    `gorm:"type:text" json:"report_json"`
	ArchivedAt        time.Time `gorm:"autoCreateTime" json:"archived_at"`
}

// TableName 指定归档表名
func (HorizonReportArchive) TableName() string {
	return "horizon_report_archive"
}

// NewHorizonReportArchive 由时效校验报告构建归档记录
func NewHorizonReportArchive(report *HorizonValidityReport) (*HorizonReportArchive, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}

	return &HorizonReportArchive{
		HorizonHours:      report.HorizonHours,
		GeneratedAt:       report.GeneratedAt,
		ValidCount:        report.ValidCount,
		InvalidCount:      report.InvalidCount,
		OverallConfidence: report.OverallConfidence,
		ReportJSON:        string(data),
	}, nil
}
