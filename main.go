package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"analogcast-service/api"
	"analogcast-service/client/connectors"
	_ "analogcast-service/docs"
	"analogcast-service/logger"
	"analogcast-service/service/config"
	"analogcast-service/service/database"
	"analogcast-service/service/drift"
	"analogcast-service/service/models"
	"analogcast-service/service/quality"
	"analogcast-service/service/validity"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title 相似预报质量服务 API
// @version 1.0
// @description 气象相似预报支撑服务，提供配置漂移检测、相似样本检索质量校验和预报变量有效性判定功能
// @BasePath /swagger/analogcast-service
func main() {
	logger.InitLogger()

	configManager := config.NewConfigManager()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := configManager.LoadFromFile(path); err != nil {
			slog.Warn("配置文件加载失败，使用默认配置", "path", path, "error", err)
		}
	}
	configManager.ApplyEnvOverrides()
	cfg := configManager.GetConfig()

	// 归档存储
	var archive *database.ArchiveStore
	if cfg.Archive.Enabled {
		store, err := database.NewArchiveStore(cfg.Archive.DBPath)
		if err != nil {
			slog.Warn("归档存储初始化失败，归档功能关闭", "error", err)
		} else {
			archive = store
			defer archive.Close()
		}
	}

	// 漂移检测器
	driftConfig := drift.DefaultDriftConfig(cfg.Drift.RootDir)
	driftConfig.CheckInterval = cfg.Drift.CheckInterval
	driftConfig.CronSpec = cfg.Drift.CronSpec
	driftConfig.WatchEnabled = cfg.Drift.WatchEnabled
	driftConfig.StateDir = cfg.Drift.StateDir
	driftConfig.EncryptionKey = cfg.Drift.EncryptionKey
	if cfg.Drift.WebhookURL != "" {
		driftConfig.Webhook.URL = cfg.Drift.WebhookURL
		driftConfig.Webhook.Enabled = true
	}

	detector, err := drift.NewDriftDetector(driftConfig)
	if err != nil {
		log.Fatalf("初始化漂移检测器失败: %v", err)
	}
	registerAlertChannels(detector, driftConfig)

	// 样本质量校验器与有效性引擎
	validator := quality.NewAnalogQualityValidator(cfg.Quality.StrictMode)
	engine := validity.NewValidityEngine()

	if archive != nil {
		detector.SetArchiveSink(func(event *models.DriftEvent) {
			if err := archive.ArchiveEvent(event); err != nil {
				slog.Warn("淘汰事件归档失败", "event_id", event.EventID, "error", err)
			}
		})
		engine.SetReportSink(func(report *models.HorizonValidityReport) {
			if err := archive.ArchiveReport(report); err != nil {
				slog.Warn("校验报告归档失败", "error", err)
			}
		})
	}

	if err := detector.StartMonitoring(context.Background()); err != nil {
		slog.Warn("漂移监控自动启动失败，可通过API手动启动", "error", err)
	}

	mux := chi.NewRouter()
	services := &api.Services{
		Detector:   detector,
		Validator:  validator,
		Engine:     engine,
		Archive:    archive,
		APIKeyHash: cfg.Server.APIKeyHash,
	}

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if cfg.Server.BaseContext != "" {
		mux.Route(cfg.Server.BaseContext, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux, services)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux, services)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(cfg.Server.Port), mux)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("error: %v", err)
	}
}

// registerAlertChannels 按配置注册消息类告警渠道
func registerAlertChannels(detector *drift.DriftDetector, cfg *drift.DriftConfig) {
	if kafkaChannel := connectors.NewKafkaAlertConnector(cfg.KafkaAlert); kafkaChannel.IsEnabled() {
		detector.RegisterNotificationChannel(kafkaChannel)
	}
	if mqttChannel := connectors.NewMQTTAlertConnector(cfg.MQTTAlert); mqttChannel.IsEnabled() {
		detector.RegisterNotificationChannel(mqttChannel)
	}
	if redisChannel := connectors.NewRedisAlertConnector(cfg.RedisAlert); redisChannel.IsEnabled() {
		detector.RegisterNotificationChannel(redisChannel)
	}
}
