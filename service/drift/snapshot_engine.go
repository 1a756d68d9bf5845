/*
 * @module service/drift/snapshot_engine
 * @description 配置快照引擎，按glob模式采集文件哈希、按白名单采集环境变量并执行配置结构校验
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 目录遍历 -> 模式匹配 -> 内容哈希 -> 环境变量采样 -> 结构校验 -> 不可变快照
 * @rules 排除模式优先于包含模式；不可读文件跳过并记日志而非中断；白名单外环境变量一律不采集
 * @dependencies github.com/bmatcuk/doublestar/v4, github.com/google/uuid, gopkg.in/yaml.v3
 * @refs comparator.go, detector.go
 */

package drift

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"analogcast-service/service/models"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SnapshotEngine 配置快照引擎
type SnapshotEngine struct {
	config *DriftConfig
}

// NewSnapshotEngine 创建快照引擎实例
func NewSnapshotEngine(config *DriftConfig) *SnapshotEngine {
	return &SnapshotEngine{config: config}
}

// CreateSnapshot 创建当前配置状态的不可变快照
func (e *SnapshotEngine) CreateSnapshot() (*models.ConfigurationSnapshot, error) {
	files, err := e.collectFileHashes()
	if err != nil {
		return nil, fmt.Errorf("采集文件哈希失败: %w", err)
	}

	snapshot := &models.ConfigurationSnapshot{
		SnapshotID:       uuid.New().String(),
		Timestamp:        time.Now(),
		FileHashes:       files,
		EnvironmentVars:  e.collectEnvironmentVars(),
		SchemaValidation: e.validateSchemas(),
	}

	slog.Debug("配置快照已创建", "snapshot_id", snapshot.SnapshotID,
		"file_count", snapshot.FileCount(), "env_var_count", snapshot.EnvVarCount(),
		"schema_failures", snapshot.SchemaFailureCount())

	return snapshot, nil
}

// collectFileHashes 遍历根目录采集匹配文件的SHA-256哈希
func (e *SnapshotEngine) collectFileHashes() (map[string]string, error) {
	hashes := make(map[string]string)

	root := e.config.RootDir
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("监控根目录不可访问 %s: %w", root, err)
	}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			slog.Warn("目录遍历出错，跳过", "path", path, "error", walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && e.matchesAny(rel+"/", e.config.ExcludePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if !e.ShouldMonitor(rel) {
			return nil
		}

		sum, err := hashFile(path)
		if err != nil {
			// 竞争删除或权限问题不应使整个快照失败
			slog.Warn("文件不可读，跳过哈希", "path", rel, "error", err)
			return nil
		}
		hashes[rel] = sum
		return nil
	})
	if err != nil {
		return nil, err
	}

	return hashes, nil
}

// ShouldMonitor 判断相对路径是否在监控范围内，排除模式优先
func (e *SnapshotEngine) ShouldMonitor(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	if e.matchesAny(relPath, e.config.ExcludePatterns) {
		return false
	}
	return e.matchesAny(relPath, e.config.IncludePatterns)
}

// matchesAny 路径是否匹配任一glob模式，同时尝试裸文件名以支持 .env* 这类模式
func (e *SnapshotEngine) matchesAny(relPath string, patterns []string) bool {
	base := filepath.Base(relPath)
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return true
			}
		}
	}
	return false
}

// hashFile 计算文件内容的SHA-256十六进制摘要
func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// collectEnvironmentVars 按白名单采集环境变量
// 未设置的变量不会出现在结果中，与空字符串值严格区分
func (e *SnapshotEngine) collectEnvironmentVars() map[string]string {
	vars := make(map[string]string)
	for _, name := range e.config.MonitoredEnvVars {
		if value, ok := os.LookupEnv(name); ok {
			vars[name] = value
		}
	}
	return vars
}

// validateSchemas 对登记的配置路径执行结构校验
// 文件不存在的路径不参与校验，结果中不出现对应键
func (e *SnapshotEngine) validateSchemas() map[string]bool {
	results := make(map[string]bool)
	for _, rel := range e.config.SchemaCheckPaths {
		path := filepath.Join(e.config.RootDir, filepath.FromSlash(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		results[rel] = e.validateSchemaContent(rel, data)
	}
	return results
}

// validateSchemaContent 按配置路径分派结构校验规则
func (e *SnapshotEngine) validateSchemaContent(rel string, data []byte) bool {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("配置文件解析失败", "path", rel, "error", err)
		return false
	}

	switch {
	case strings.HasSuffix(rel, "data.yaml"):
		return validateDataSchema(doc)
	case strings.HasSuffix(rel, "model.yaml"):
		return validateModelSchema(doc)
	default:
		// 未登记专用规则的路径只要求YAML可解析
		return true
	}
}

// validateDataSchema 数据配置要求region节下lat/lon为数值
func validateDataSchema(doc map[string]interface{}) bool {
	region, ok := doc["region"].(map[string]interface{})
	if !ok {
		return false
	}
	return isNumeric(region["lat"]) && isNumeric(region["lon"])
}

// modelSchemaRequiredSections 模型配置必需的顶层节
var modelSchemaRequiredSections = []string{"model", "training", "features"}

// validateModelSchema 模型配置要求全部必需顶层节存在
func validateModelSchema(doc map[string]interface{}) bool {
	for _, section := range modelSchemaRequiredSections {
		if _, ok := doc[section]; !ok {
			return false
		}
	}
	return true
}

// isNumeric 判断YAML解析值是否为数值类型
func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int64, float64, float32:
		return true
	default:
		return false
	}
}
