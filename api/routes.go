/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers/
 */

package api

import (
	"analogcast-service/api/controllers"
	appmiddleware "analogcast-service/api/middleware"
	"analogcast-service/service/database"
	"analogcast-service/service/drift"
	"analogcast-service/service/quality"
	"analogcast-service/service/validity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// Services 路由依赖的业务服务集合
type Services struct {
	Detector   *drift.DriftDetector
	Validator  *quality.AnalogQualityValidator
	Engine     *validity.ValidityEngine
	Archive    *database.ArchiveStore // 可为nil
	APIKeyHash string                 // bcrypt哈希，空值关闭鉴权
}

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux, services *Services) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController()
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// 配置漂移
	r.Route("/drift", func(r chi.Router) {
		r.Use(appmiddleware.APIKeyAuth(services.APIKeyHash))

		driftController := controllers.NewDriftController(services.Detector, services.Archive)
		r.Post("/start", driftController.StartMonitoring)
		r.Post("/stop", driftController.StopMonitoring)
		r.Post("/detect", driftController.DetectDrift)
		r.Get("/status", driftController.GetStatus)
		r.Get("/report", driftController.GetReport)
		r.Get("/archive", driftController.GetArchivedEvents)
		r.Post("/events/{id}/resolve", driftController.ResolveEvent)
	})

	// 相似样本质量
	r.Route("/quality", func(r chi.Router) {
		qualityController := controllers.NewQualityController(services.Validator)
		r.Post("/validate-search", qualityController.ValidateSearch)
		r.Get("/thresholds", qualityController.GetThresholds)
	})

	// 变量有效性
	r.Route("/validity", func(r chi.Router) {
		validityController := controllers.NewValidityController(services.Engine, services.Archive)
		r.Post("/validate", validityController.ValidateHorizon)
		r.Post("/filter", validityController.FilterForecast)
		r.Get("/history", validityController.GetHistory)
		r.Get("/archive", validityController.GetArchivedReports)
	})
}
