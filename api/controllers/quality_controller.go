/*
 * @module api/controllers/quality_controller
 * @description 相似样本质量控制器，接收最近邻检索原始输出并返回质量指标与分级
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/analog_quality_req.md
 * @stateFlow 请求接收 -> 检索结果解析 -> 质量校验 -> 统一响应返回
 * @rules similarities与indices按槽位对齐，长度不一致时按indices长度截断
 * @dependencies analogcast-service/service/quality
 * @refs api/routes.go
 */

package controllers

import (
	"net/http"
	"time"

	"analogcast-service/service/models"
	"analogcast-service/service/quality"

	"github.com/go-chi/render"
)

// QualityController 相似样本质量控制器
type QualityController struct {
	validator *quality.AnalogQualityValidator
}

// NewQualityController 创建质量控制器实例
func NewQualityController(validator *quality.AnalogQualityValidator) *QualityController {
	return &QualityController{validator: validator}
}

// validateSearchRequest 检索质量校验请求体
type validateSearchRequest struct {
	Similarities []float64           `json:"similarities"`
	Indices      []int               `json:"indices"`
	Neighbors    []neighborMetaEntry `json:"neighbors"`
	ElapsedMs    float64             `json:"elapsed_ms"`
}

// neighborMetaEntry 样本元数据条目
type neighborMetaEntry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidateSearch 校验一次相似样本检索的质量
// @Summary 校验相似样本检索质量
// @Description 对最近邻检索的相似度与索引输出计算唯一性、离散度、时间分布统计并分级
// @Tags 样本质量
// @Accept json
// @Produce json
// @Param body body validateSearchRequest true "检索原始输出"
// @Success 200 {object} APIResponse{data=models.AnalogSearchMetrics}
// @Failure 400 {object} APIResponse
// @Router /quality/validate-search [post]
func (c *QualityController) ValidateSearch(w http.ResponseWriter, r *http.Request) {
	var req validateSearchRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Fail(http.StatusBadRequest, "请求体解析失败"))
		return
	}

	neighborMeta := make(map[int]models.AnalogNeighborMeta, len(req.Neighbors))
	for _, entry := range req.Neighbors {
		neighborMeta[entry.Index] = models.AnalogNeighborMeta{
			Index:     entry.Index,
			Timestamp: entry.Timestamp,
		}
	}

	metrics := c.validator.ValidateSearchResults(req.Similarities, req.Indices, neighborMeta, req.ElapsedMs)
	render.JSON(w, r, OK("质量校验完成", metrics))
}

// GetThresholds 获取当前生效的质量阈值
// @Summary 获取质量阈值
// @Description 返回校验器当前使用的阈值集合
// @Tags 样本质量
// @Produce json
// @Success 200 {object} APIResponse{data=models.QualityThresholds}
// @Router /quality/thresholds [get]
func (c *QualityController) GetThresholds(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, OK("获取质量阈值成功", c.validator.Thresholds()))
}
