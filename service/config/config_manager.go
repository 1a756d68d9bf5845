/*
 * @module service/config/config_manager
 * @description 应用配置管理器，负责配置文件加载、环境变量覆盖和运行时只读访问
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 默认配置 -> 文件加载(json/yaml) -> 环境变量覆盖 -> 校验 -> 只读访问
 * @rules 环境变量覆盖优先于配置文件；读取通过读写锁保护
 * @dependencies github.com/spf13/cast, gopkg.in/yaml.v3
 * @refs main.go, service/drift/config.go
 */

package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// envPrefix 环境变量覆盖前缀
const envPrefix = "ANALOGCAST_"

// AppConfig 应用配置
type AppConfig struct {
	Name        string `json:"name" yaml:"name"`
	Environment string `json:"environment" yaml:"environment"`
	Debug       bool   `json:"debug" yaml:"debug"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port        int    `json:"port" yaml:"port"`
	BaseContext string `json:"base_context" yaml:"base_context"`
	APIKeyHash  string `json:"api_key_hash" yaml:"api_key_hash"` // bcrypt哈希，空值关闭鉴权
}

// DriftSection 漂移检测配置节
type DriftSection struct {
	RootDir       string        `json:"root_dir" yaml:"root_dir"`
	CheckInterval time.Duration `json:"check_interval" yaml:"check_interval"`
	CronSpec      string        `json:"cron_spec" yaml:"cron_spec"`
	WatchEnabled  bool          `json:"watch_enabled" yaml:"watch_enabled"`
	StateDir      string        `json:"state_dir" yaml:"state_dir"`
	EncryptionKey string        `json:"encryption_key" yaml:"encryption_key"`
	WebhookURL    string        `json:"webhook_url" yaml:"webhook_url"`
}

// QualitySection 质量校验配置节
type QualitySection struct {
	StrictMode bool `json:"strict_mode" yaml:"strict_mode"`
}

// ArchiveSection 归档存储配置节
type ArchiveSection struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"db_path" yaml:"db_path"`
}

// ApplicationConfig 应用全量配置
type ApplicationConfig struct {
	App     AppConfig      `json:"app" yaml:"app"`
	Server  ServerConfig   `json:"server" yaml:"server"`
	Drift   DriftSection   `json:"drift" yaml:"drift"`
	Quality QualitySection `json:"quality" yaml:"quality"`
	Archive ArchiveSection `json:"archive" yaml:"archive"`
}

// ConfigManager 配置管理器
type ConfigManager struct {
	config     *ApplicationConfig
	configLock sync.RWMutex
}

// NewConfigManager 创建配置管理器并填充默认配置
func NewConfigManager() *ConfigManager {
	return &ConfigManager{
		config: defaultApplicationConfig(),
	}
}

// defaultApplicationConfig 默认应用配置
func defaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		App: AppConfig{
			Name:        "analogcast-service",
			Environment: "development",
		},
		Server: ServerConfig{
			Port:        80,
			BaseContext: "/analogcast-service",
		},
		Drift: DriftSection{
			RootDir:       ".",
			CheckInterval: 60 * time.Second,
			StateDir:      "versions",
		},
		Quality: QualitySection{
			StrictMode: false,
		},
		Archive: ArchiveSection{
			Enabled: true,
			DBPath:  "versions/archive.db",
		},
	}
}

// LoadFromFile 从配置文件加载，按扩展名选择解析器
func (m *ConfigManager) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败 %s: %w", path, err)
	}

	m.configLock.Lock()
	defer m.configLock.Unlock()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, m.config); err != nil {
			return fmt.Errorf("解析JSON配置失败 %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, m.config); err != nil {
			return fmt.Errorf("解析YAML配置失败 %s: %w", path, err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s", path)
	}

	slog.Info("配置文件已加载", "path", path)
	return nil
}

// ApplyEnvOverrides 应用环境变量覆盖
// 支持的覆盖项以ANALOGCAST_为前缀，布尔和整型值经cast转换
func (m *ConfigManager) ApplyEnvOverrides() {
	m.configLock.Lock()
	defer m.configLock.Unlock()

	if v, ok := os.LookupEnv(envPrefix + "ENVIRONMENT"); ok {
		m.config.App.Environment = v
	}
	if v, ok := os.LookupEnv(envPrefix + "DEBUG"); ok {
		m.config.App.Debug = cast.ToBool(v)
	}
	if v, ok := os.LookupEnv("LISTEN_PORT"); ok {
		if port := cast.ToInt(v); port > 0 {
			m.config.Server.Port = port
		}
	}
	if v, ok := os.LookupEnv("BASE_CONTEXT"); ok {
		m.config.Server.BaseContext = v
	}
	if v, ok := os.LookupEnv(envPrefix + "API_KEY_HASH"); ok {
		m.config.Server.APIKeyHash = v
	}
	if v, ok := os.LookupEnv(envPrefix + "DRIFT_ROOT"); ok {
		m.config.Drift.RootDir = v
	}
	if v, ok := os.LookupEnv(envPrefix + "DRIFT_INTERVAL"); ok {
		if d := cast.ToDuration(v); d > 0 {
			m.config.Drift.CheckInterval = d
		}
	}
	if v, ok := os.LookupEnv(envPrefix + "DRIFT_CRON"); ok {
		m.config.Drift.CronSpec = v
	}
	if v, ok := os.LookupEnv(envPrefix + "DRIFT_WATCH"); ok {
		m.config.Drift.WatchEnabled = cast.ToBool(v)
	}
	if v, ok := os.LookupEnv(envPrefix + "STATE_DIR"); ok {
		m.config.Drift.StateDir = v
	}
	if v, ok := os.LookupEnv(envPrefix + "ENCRYPTION_KEY"); ok {
		m.config.Drift.EncryptionKey = v
	}
	if v, ok := os.LookupEnv(envPrefix + "WEBHOOK_URL"); ok {
		m.config.Drift.WebhookURL = v
	}
	if v, ok := os.LookupEnv(envPrefix + "QUALITY_STRICT"); ok {
		m.config.Quality.StrictMode = cast.ToBool(v)
	}
	if v, ok := os.LookupEnv(envPrefix + "ARCHIVE_DB"); ok {
		m.config.Archive.DBPath = v
	}
}

// GetConfig 获取配置副本，调用方修改副本不影响运行配置
func (m *ConfigManager) GetConfig() ApplicationConfig {
	m.configLock.RLock()
	defer m.configLock.RUnlock()
	return *m.config
}
