/*
 * @module api/controllers/drift_controller
 * @description 配置漂移控制器，提供监控启停、漂移检测、报告查询、事件解决和归档查询接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 请求接收 -> 参数解析 -> 检测器调用 -> 统一响应返回
 * @rules 事件值在进入检测器时已脱敏，控制器不做二次处理
 * @dependencies analogcast-service/service/drift, analogcast-service/service/database
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"strconv"
	"time"

	"analogcast-service/service/database"
	"analogcast-service/service/drift"
	"analogcast-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// DriftController 配置漂移控制器
type DriftController struct {
	detector *drift.DriftDetector
	archive  *database.ArchiveStore
}

// NewDriftController 创建配置漂移控制器实例，archive可为nil表示未启用归档
func NewDriftController(detector *drift.DriftDetector, archive *database.ArchiveStore) *DriftController {
	return &DriftController{
		detector: detector,
		archive:  archive,
	}
}

// StartMonitoring 启动漂移监控
// @Summary 启动配置漂移监控
// @Description 建立基线快照并启动周期检测，已在监控中时返回错误
// @Tags 配置漂移
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /drift/start [post]
func (c *DriftController) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	if err := c.detector.StartMonitoring(r.Context()); err != nil {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, Fail(http.StatusConflict, err.Error()))
		return
	}
	render.JSON(w, r, OK("漂移监控已启动", map[string]interface{}{
		"baseline_id": c.detector.Baseline().SnapshotID,
	}))
}

// StopMonitoring 停止漂移监控
// @Summary 停止配置漂移监控
// @Description 停止周期检测并持久化当前状态
// @Tags 配置漂移
// @Produce json
// @Success 200 {object} APIResponse
// @Failure 409 {object} APIResponse
// @Router /drift/stop [post]
func (c *DriftController) StopMonitoring(w http.ResponseWriter, r *http.Request) {
	if err := c.detector.StopMonitoring(); err != nil {
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, Fail(http.StatusConflict, err.Error()))
		return
	}
	render.JSON(w, r, OK("漂移监控已停止", nil))
}

// DetectDrift 执行一次漂移检测
// @Summary 立即执行漂移检测
// @Description 创建当前快照并与基线及上一快照比对，返回本次新产生的事件
// @Tags 配置漂移
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.DriftEvent}
// @Failure 500 {object} APIResponse
// @Router /drift/detect [post]
func (c *DriftController) DetectDrift(w http.ResponseWriter, r *http.Request) {
	events, err := c.detector.DetectDrift()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, Fail(http.StatusInternalServerError, err.Error()))
		return
	}
	render.JSON(w, r, OK("漂移检测完成", events))
}

// GetStatus 获取监控状态
// @Summary 获取漂移监控状态
// @Description 返回检测器运行状态和基线信息
// @Tags 配置漂移
// @Produce json
// @Success 200 {object} APIResponse
// @Router /drift/status [get]
func (c *DriftController) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": c.detector.Status(),
	}
	if baseline := c.detector.Baseline(); baseline != nil {
		status["baseline_id"] = baseline.SnapshotID
		status["baseline_at"] = baseline.Timestamp
		status["file_count"] = baseline.FileCount()
		status["env_var_count"] = baseline.EnvVarCount()
	}
	render.JSON(w, r, OK("获取监控状态成功", status))
}

// GetReport 获取漂移汇总报告
// @Summary 获取漂移汇总报告
// @Description 按最低严重级别和回溯小时数过滤事件后聚合
// @Tags 配置漂移
// @Produce json
// @Param min_severity query string false "最低严重级别" Enums(low,medium,high,critical)
// @Param hours_back query int false "回溯小时数，0表示不限"
// @Success 200 {object} APIResponse{data=models.DriftReport}
// @Router /drift/report [get]
func (c *DriftController) GetReport(w http.ResponseWriter, r *http.Request) {
	minSeverity := models.DriftSeverity(r.URL.Query().Get("min_severity"))
	hoursBack, _ := strconv.Atoi(r.URL.Query().Get("hours_back"))

	report := c.detector.GetDriftReport(minSeverity, hoursBack)
	render.JSON(w, r, OK("获取漂移报告成功", report))
}

// resolveRequest 事件解决请求体
type resolveRequest struct {
	Notes string `json:"notes"`
}

// ResolveEvent 标记漂移事件为已解决
// @Summary 解决漂移事件
// @Description 按事件ID标记为已解决，解决说明不能为空
// @Tags 配置漂移
// @Accept json
// @Produce json
// @Param id path string true "事件ID"
// @Param body body resolveRequest true "解决说明"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /drift/events/{id}/resolve [post]
func (c *DriftController) ResolveEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	var req resolveRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, "请求体解析失败"))
		return
	}

	found, err := c.detector.ResolveDriftEvent(eventID, req.Notes)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, err.Error()))
		return
	}
	if !found {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, Fail(http.StatusNotFound, "事件不存在"))
		return
	}
	render.JSON(w, r, OK("事件已标记为解决", nil))
}

// GetArchivedEvents 查询归档事件
// @Summary 查询归档漂移事件
// @Description 查询FIFO淘汰后落库的历史事件
// @Tags 配置漂移
// @Produce json
// @Param severity query string false "严重级别过滤"
// @Param drift_type query string false "漂移类型过滤"
// @Param hours_back query int false "回溯小时数"
// @Param limit query int false "返回条数上限" default(100)
// @Success 200 {object} APIResponse{data=[]models.DriftEventArchive}
// @Failure 503 {object} APIResponse
// @Router /drift/archive [get]
func (c *DriftController) GetArchivedEvents(w http.ResponseWriter, r *http.Request) {
	if c.archive == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, Fail(http.StatusServiceUnavailable, "归档存储未启用"))
		return
	}

	var since time.Time
	if hoursBack, _ := strconv.Atoi(r.URL.Query().Get("hours_back")); hoursBack > 0 {
		since = time.Now().Add(-time.Duration(hoursBack) * time.Hour)
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := c.archive.QueryEvents(
		r.URL.Query().Get("severity"),
		r.URL.Query().Get("drift_type"),
		since, limit)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, Fail(http.StatusInternalServerError, err.Error()))
		return
	}
	render.JSON(w, r, OK("查询归档事件成功", records))
}
