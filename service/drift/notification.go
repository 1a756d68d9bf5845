/*
 * @module service/drift/notification
 * @description 漂移告警通知，定义通知渠道接口、webhook渠道实现与多渠道分发器
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 严重事件 -> 告警载荷构建 -> 启用渠道遍历 -> 指数退避重试发送
 * @rules 单渠道失败不阻断其他渠道；webhook发送按配置次数指数退避重试；载荷中的值已在事件生成时脱敏
 * @dependencies github.com/cenkalti/backoff/v4, net/http
 * @refs detector.go, client/connectors/
 */

package drift

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"analogcast-service/service/models"

	"github.com/cenkalti/backoff/v4"
)

// NotificationSender 告警通知渠道接口
type NotificationSender interface {
	// Send 发送告警载荷
	Send(payload *models.AlertPayload) error
	// GetChannelType 获取渠道类型标识
	GetChannelType() string
	// IsEnabled 渠道是否启用
	IsEnabled() bool
}

// severityColors 各严重级别对应的告警颜色
var severityColors = map[models.DriftSeverity]string{
	models.DriftSeverityLow:      "#36a64f",
	models.DriftSeverityMedium:   "#ffcc00",
	models.DriftSeverityHigh:     "#ff9900",
	models.DriftSeverityCritical: "#ff0000",
}

// BuildAlertPayload 将漂移事件转换为告警载荷
func BuildAlertPayload(event *models.DriftEvent) *models.AlertPayload {
	fields := []models.AlertField{
		{Title: "类型", Value: event.DriftType.String(), Short: true},
		{Title: "级别", Value: strings.ToUpper(event.Severity.String()), Short: true},
		{Title: "来源", Value: event.SourcePath, Short: false},
	}
	if event.OldValue != "" {
		fields = append(fields, models.AlertField{Title: "旧值", Value: event.OldValue, Short: true})
	}
	if event.NewValue != "" {
		fields = append(fields, models.AlertField{Title: "新值", Value: event.NewValue, Short: true})
	}

	return &models.AlertPayload{
		Text: fmt.Sprintf("检测到配置漂移: %s", event.Description),
		Attachments: []models.AlertAttachment{
			{
				Color:  severityColors[event.Severity],
				Title:  event.Description,
				Fields: fields,
				Footer: "analogcast 漂移检测",
				Ts:     event.DetectedAt.Unix(),
			},
		},
	}
}

// WebhookChannel webhook告警渠道
type WebhookChannel struct {
	config models.WebhookConfig
	client *http.Client
}

// NewWebhookChannel 创建webhook告警渠道
func NewWebhookChannel(config models.WebhookConfig) *WebhookChannel {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// GetChannelType 获取渠道类型标识
func (c *WebhookChannel) GetChannelType() string {
	return "webhook"
}

// IsEnabled 渠道是否启用
func (c *WebhookChannel) IsEnabled() bool {
	return c.config.Enabled && c.config.URL != ""
}

// Send 发送告警，按配置次数指数退避重试
func (c *WebhookChannel) Send(payload *models.AlertPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化告警载荷失败: %w", err)
	}

	operation := func() error {
		resp, err := c.client.Post(c.config.URL, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("webhook返回状态码 %d", resp.StatusCode)
		}
		return nil
	}

	// RetryCount为总尝试次数，首次发送之外的重试次数少一
	attempts := c.config.RetryCount
	if attempts <= 0 {
		attempts = 3
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(attempts-1))

	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("webhook告警发送失败: %w", err)
	}
	return nil
}

// AlertDispatcher 多渠道告警分发器
type AlertDispatcher struct {
	channels []NotificationSender
}

// NewAlertDispatcher 创建分发器，webhook渠道按配置内建，消息渠道由外部注册
func NewAlertDispatcher(config *DriftConfig) *AlertDispatcher {
	d := &AlertDispatcher{channels: make([]NotificationSender, 0)}
	d.Register(NewWebhookChannel(config.Webhook))
	return d
}

// Register 注册通知渠道
func (d *AlertDispatcher) Register(sender NotificationSender) {
	if sender == nil {
		return
	}
	d.channels = append(d.channels, sender)
}

// Dispatch 向所有启用渠道分发事件告警
// 部分渠道失败时继续其余渠道，返回聚合错误
func (d *AlertDispatcher) Dispatch(event *models.DriftEvent) error {
	payload := BuildAlertPayload(event)

	var failures []string
	for _, channel := range d.channels {
		if !channel.IsEnabled() {
			continue
		}
		if err := channel.Send(payload); err != nil {
			slog.Error("告警渠道发送失败", "channel", channel.GetChannelType(),
				"event_id", event.EventID, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", channel.GetChannelType(), err))
			continue
		}
		slog.Info("告警已发送", "channel", channel.GetChannelType(), "event_id", event.EventID)
	}

	if len(failures) > 0 {
		return fmt.Errorf("部分告警渠道发送失败: %s", strings.Join(failures, "; "))
	}
	return nil
}
