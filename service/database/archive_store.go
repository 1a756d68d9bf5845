/*
 * @module service/database/archive_store
 * @description 归档存储，基于GORM+SQLite持久化FIFO淘汰的漂移事件和时效校验报告，提供历史查询
 * @architecture 分层架构 - 数据持久层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 打开数据库 -> 自动迁移 -> 归档写入 -> 条件查询
 * @rules 归档写入幂等，事件ID冲突时忽略而非报错；查询默认按时间倒序
 * @dependencies gorm.io/gorm, gorm.io/driver/sqlite
 * @refs service/drift/detector.go, service/validity/engine.go
 */

package database

import (
	"fmt"
	"log/slog"
	"time"

	"analogcast-service/service/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ArchiveStore 归档存储
type ArchiveStore struct {
	db *gorm.DB
}

// NewArchiveStore 打开归档数据库并执行自动迁移
func NewArchiveStore(dbPath string) (*ArchiveStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开归档数据库失败 %s: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&models.DriftEventArchive{}, &models.HorizonReportArchive{}); err != nil {
		return nil, fmt.Errorf("归档表迁移失败: %w", err)
	}

	slog.Info("归档数据库已就绪", "path", dbPath)
	return &ArchiveStore{db: db}, nil
}

// ArchiveEvent 归档单条漂移事件，事件ID冲突时忽略
func (s *ArchiveStore) ArchiveEvent(event *models.DriftEvent) error {
	record := models.NewDriftEventArchive(event)
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error; err != nil {
		return fmt.Errorf("归档漂移事件失败 %s: %w", event.EventID, err)
	}
	return nil
}

// ArchiveReport 归档时效校验报告
func (s *ArchiveStore) ArchiveReport(report *models.HorizonValidityReport) error {
	record, err := models.NewHorizonReportArchive(report)
	if err != nil {
		return fmt.Errorf("构建报告归档记录失败: %w", err)
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("归档时效校验报告失败: %w", err)
	}
	return nil
}

// QueryEvents 按条件查询归档事件，severity和driftType为空时不过滤
func (s *ArchiveStore) QueryEvents(severity, driftType string, since time.Time, limit int) ([]*models.DriftEventArchive, error) {
	if limit <= 0 {
		limit = 100
	}

	query := s.db.Model(&models.DriftEventArchive{})
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if driftType != "" {
		query = query.Where("drift_type = ?", driftType)
	}
	if !since.IsZero() {
		query = query.Where("detected_at >= ?", since)
	}

	var records []*models.DriftEventArchive
	if err := query.Order("detected_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询归档事件失败: %w", err)
	}
	return records, nil
}

// QueryReports 按时效查询归档报告，horizonHours<=0时不过滤
func (s *ArchiveStore) QueryReports(horizonHours, limit int) ([]*models.HorizonReportArchive, error) {
	if limit <= 0 {
		limit = 50
	}

	query := s.db.Model(&models.HorizonReportArchive{})
	if horizonHours > 0 {
		query = query.Where("horizon_hours = ?", horizonHours)
	}

	var records []*models.HorizonReportArchive
	if err := query.Order("generated_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("查询归档报告失败: %w", err)
	}
	return records, nil
}

// EventCount 统计归档事件总数
func (s *ArchiveStore) EventCount() (int64, error) {
	var count int64
	if err := s.db.Model(&models.DriftEventArchive{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计归档事件失败: %w", err)
	}
	return count, nil
}

// Close 关闭底层数据库连接
func (s *ArchiveStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
