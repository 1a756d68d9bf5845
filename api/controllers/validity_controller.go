/*
 * @module api/controllers/validity_controller
 * @description 变量有效性控制器，提供时效级变量校验、预报输出过滤和历史报告查询接口
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/variable_validity_req.md
 * @stateFlow 请求接收 -> 样本矩阵解析 -> 有效性引擎调用 -> 统一响应返回
 * @rules 被剔除变量在响应中以缺失列表显式呈现而非数值默认值
 * @dependencies analogcast-service/service/validity, analogcast-service/service/database
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"analogcast-service/service/database"
	"analogcast-service/service/validity"

	"github.com/go-chi/render"
)

// ValidityController 变量有效性控制器
type ValidityController struct {
	engine  *validity.ValidityEngine
	archive *database.ArchiveStore
}

// NewValidityController 创建有效性控制器实例，archive可为nil表示未启用归档
func NewValidityController(engine *validity.ValidityEngine, archive *database.ArchiveStore) *ValidityController {
	return &ValidityController{
		engine:  engine,
		archive: archive,
	}
}

// validateHorizonRequest 时效校验请求体
type validateHorizonRequest struct {
	HorizonHours int                  `json:"horizon_hours"`
	Outcomes     map[string][]float64 `json:"outcomes"`
}

// ValidateHorizon 校验一个预报时效的全部变量
// @Summary 校验预报时效变量有效性
// @Description 对各变量的相似样本结果列应用阈值判定并聚合时效级置信度
// @Tags 变量有效性
// @Accept json
// @Produce json
// @Param body body validateHorizonRequest true "变量样本矩阵"
// @Success 200 {object} APIResponse{data=models.HorizonValidityReport}
// @Failure 400 {object} APIResponse
// @Router /validity/validate [post]
func (c *ValidityController) ValidateHorizon(w http.ResponseWriter, r *http.Request) {
	var req validateHorizonRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, "请求体解析失败"))
		return
	}
	if req.HorizonHours <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, "预报时效必须为正数"))
		return
	}

	report := c.engine.ValidateHorizonForecast(req.Outcomes, req.HorizonHours)
	render.JSON(w, r, OK("时效校验完成", report))
}

// filterForecastRequest 预报输出过滤请求体
type filterForecastRequest struct {
	HorizonHours int                   `json:"horizon_hours"`
	Outcomes     map[string][]float64  `json:"outcomes"`
	Values       map[string]float64    `json:"values"`
	Intervals    map[string][2]float64 `json:"intervals"`
}

// filterForecastResponse 预报输出过滤响应体
type filterForecastResponse struct {
	Values    map[string]float64    `json:"values"`
	Intervals map[string][2]float64 `json:"intervals"`
	Dropped   []string              `json:"dropped"` // 被剔除变量，显式缺失
}

// FilterForecast 按有效性报告过滤预报输出
// @Summary 过滤预报输出变量
// @Description 先对样本矩阵执行时效校验，再剔除不可展示变量并返回显式缺失列表
// @Tags 变量有效性
// @Accept json
// @Produce json
// @Param body body filterForecastRequest true "预报输出与样本矩阵"
// @Success 200 {object} APIResponse{data=filterForecastResponse}
// @Failure 400 {object} APIResponse
// @Router /validity/filter [post]
func (c *ValidityController) FilterForecast(w http.ResponseWriter, r *http.Request) {
	var req filterForecastRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, "请求体解析失败"))
		return
	}
	if req.HorizonHours <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, "预报时效必须为正数"))
		return
	}

	report := c.engine.ValidateHorizonForecast(req.Outcomes, req.HorizonHours)
	values, intervals := c.engine.FilterForecastVariables(req.Values, req.Intervals, report)

	dropped := make([]string, 0)
	for name := range req.Values {
		if _, kept := values[name]; !kept {
			dropped = append(dropped, name)
		}
	}

	render.JSON(w, r, OK("预报输出过滤完成", filterForecastResponse{
		Values:    values,
		Intervals: intervals,
		Dropped:   dropped,
	}))
}

// GetHistory 获取历史校验报告
// @Summary 获取时效校验历史
// @Description 返回内存中保留的最近校验报告，从旧到新
// @Tags 变量有效性
// @Produce json
// @Success 200 {object} APIResponse{data=[]models.HorizonValidityReport}
// @Router /validity/history [get]
func (c *ValidityController) GetHistory(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK("获取校验历史成功", c.engine.ValidationHistory()))
}

// GetArchivedReports 查询归档报告
// @Summary 查询归档时效校验报告
// @Description 查询落库的历史校验报告
// @Tags 变量有效性
// @Produce json
// @Param horizon_hours query int false "时效过滤，0表示不限"
// @Param limit query int false "返回条数上限" default(50)
// @Success 200 {object} APIResponse{data=[]models.HorizonReportArchive}
// @Failure 503 {object} APIResponse
// @Router /validity/archive [get]
func (c *ValidityController) GetArchivedReports(w http.ResponseWriter, r *http.Request) {
	if c.archive == nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, Fail(http.StatusServiceUnavailable, "归档存储未启用"))
		return
	}

	horizonHours, _ := strconv.Atoi(r.URL.Query().Get("horizon_hours"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := c.archive.QueryReports(horizonHours, limit)
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, Fail(http.StatusInternalServerError, err.Error()))
		return
	}
	render.JSON(w, r, OK("查询归档报告成功", records))
}
