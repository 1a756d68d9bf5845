/*
 * @module service/models/notification_models
 * @description 告警通知相关数据模型，定义告警载荷结构和各通知渠道配置
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 漂移事件 -> 告警载荷构建 -> 渠道发送
 * @rules 告警载荷遵循webhook外部接口约定：text + attachments(color/title/fields/footer/ts)
 * @dependencies time
 * @refs service/drift/notification.go, client/connectors/
 */

package models

import "time"

// AlertPayload webhook告警载荷
type AlertPayload struct {
	Text        string            `json:"text"`
	Attachments []AlertAttachment `json:"attachments"`
}

// AlertAttachment 告警附件
type AlertAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []AlertField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

// AlertField 告警字段
type AlertField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// WebhookConfig webhook通知渠道配置
type WebhookConfig struct {
	URL        string        `json:"url" yaml:"url"`
	Enabled    bool          `json:"enabled" yaml:"enabled"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	RetryCount int           `json:"retry_count" yaml:"retry_count"`
}

// KafkaAlertConfig Kafka告警渠道配置
type KafkaAlertConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers"`
	Topic   string   `json:"topic" yaml:"topic"`
	Enabled bool     `json:"enabled" yaml:"enabled"`
}

// MQTTAlertConfig MQTT告警渠道配置
type MQTTAlertConfig struct {
	BrokerURL string        `json:"broker_url" yaml:"broker_url"`
	Topic     string        `json:"topic" yaml:"topic"`
	ClientID  string        `json:"client_id" yaml:"client_id"`
	Username  string        `json:"username" yaml:"username"`
	Password  string        `json:"password" yaml:"password"`
	QoS       byte          `json:"qos" yaml:"qos"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	Enabled   bool          `json:"enabled" yaml:"enabled"`
}

// RedisAlertConfig Redis发布订阅告警渠道配置
type RedisAlertConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Channel  string `json:"channel" yaml:"channel"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
}
