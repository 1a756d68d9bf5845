/*
 * @module service/drift/config
 * @description 漂移检测配置，定义监控文件模式、环境变量白名单、检查周期和持久化路径
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 配置加载 -> 默认值填充 -> 检测器初始化
 * @rules 排除模式优先于包含模式；环境变量仅读取固定白名单
 * @dependencies analogcast-service/service/models, time
 * @refs detector.go, snapshot_engine.go
 */

package drift

import (
	"fmt"
	"time"

	"analogcast-service/service/models"
)

// DriftConfig 漂移检测配置
type DriftConfig struct {
	RootDir string `json:"root_dir" yaml:"root_dir"` // 监控根目录

	IncludePatterns  []string `json:"include_patterns" yaml:"include_patterns"`   // 包含glob模式
	ExcludePatterns  []string `json:"exclude_patterns" yaml:"exclude_patterns"`   // 排除glob模式，优先生效
	MonitoredEnvVars []string `json:"monitored_env_vars" yaml:"monitored_env_vars"` // 环境变量白名单

	SchemaCheckPaths []string `json:"schema_check_paths" yaml:"schema_check_paths"` // 结构校验的配置路径

	CheckInterval time.Duration `json:"check_interval" yaml:"check_interval"` // 周期检查间隔
	CronSpec      string        `json:"cron_spec" yaml:"cron_spec"`           // 可选cron表达式调度
	WatchEnabled  bool          `json:"watch_enabled" yaml:"watch_enabled"`   // 是否启用文件系统监听
	WatchDebounce time.Duration `json:"watch_debounce" yaml:"watch_debounce"` // 监听事件去抖窗口

	RetentionDays int `json:"retention_days" yaml:"retention_days"` // 快照保留天数
	MaxEvents     int `json:"max_events" yaml:"max_events"`         // 事件日志容量上限，FIFO淘汰

	StateDir      string `json:"state_dir" yaml:"state_dir"`           // JSON持久化目录
	EncryptionKey string `json:"encryption_key" yaml:"encryption_key"` // 持久化敏感值加密密钥

	Webhook    models.WebhookConfig    `json:"webhook" yaml:"webhook"`
	KafkaAlert models.KafkaAlertConfig `json:"kafka_alert" yaml:"kafka_alert"`
	MQTTAlert  models.MQTTAlertConfig  `json:"mqtt_alert" yaml:"mqtt_alert"`
	RedisAlert models.RedisAlertConfig `json:"redis_alert" yaml:"redis_alert"`

	RuleScripts []string `json:"rule_scripts" yaml:"rule_scripts"` // 自定义规则脚本源码
}

// DefaultDriftConfig 获取默认漂移检测配置
func DefaultDriftConfig(rootDir string) *DriftConfig {
	return &DriftConfig{
		RootDir: rootDir,
		IncludePatterns: []string{
			"**/*.yaml",
			"**/*.yml",
			"**/*.json",
			"**/*.toml",
			".env*",
			"docker-compose*.yml",
			"Dockerfile*",
			"**/*.tf",
		},
		ExcludePatterns: []string{
			"node_modules/**",
			".git/**",
			"**/__pycache__/**",
			"**/.cache/**",
			"build/**",
			"dist/**",
			"versions/**",
		},
		MonitoredEnvVars: []string{
			"ENVIRONMENT",
			"LOG_LEVEL",
			"DEBUG",
			"API_TOKEN",
			"JWT_SECRET",
			"DATABASE_URL",
			"WEBHOOK_SECRET",
			"MODEL_PATH",
			"DATA_PATH",
			"API_BASE_URL",
			"REQUEST_TIMEOUT",
			"WORKER_COUNT",
			"BATCH_SIZE",
			"CORS_ORIGINS",
			"RATE_LIMIT",
		},
		SchemaCheckPaths: []string{
			"configs/data.yaml",
			"configs/model.yaml",
		},
		CheckInterval: 60 * time.Second,
		WatchEnabled:  false,
		WatchDebounce: 500 * time.Millisecond,
		RetentionDays: 30,
		MaxEvents:     1000,
		StateDir:      "versions",
		Webhook: models.WebhookConfig{
			Timeout:    10 * time.Second,
			RetryCount: 3,
		},
	}
}

// Validate 校验配置合法性
func (c *DriftConfig) Validate() error {
	if c.RootDir == "" {
		return fmt.Errorf("监控根目录不能为空")
	}
	if c.CheckInterval < time.Second {
		return fmt.Errorf("检查间隔不能小于1秒")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("快照保留天数不能小于1天")
	}
	if c.MaxEvents < 1 {
		return fmt.Errorf("事件容量上限不能小于1")
	}
	return nil
}
