/*
 * @module client/connectors/kafka_connector
 * @description Kafka告警连接器，将漂移告警载荷序列化后写入告警主题
 * @architecture 发布订阅模式 - 作为生产者向Kafka broker写消息
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 创建writer -> 告警序列化 -> 写入主题 -> 关闭
 * @rules 写入超时受调用方context约束；连接惰性建立，未启用时不持有连接
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/drift/notification.go
 */

package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"analogcast-service/service/models"

	"github.com/segmentio/kafka-go"
)

// KafkaAlertConnector Kafka告警连接器
type KafkaAlertConnector struct {
	config models.KafkaAlertConfig
	writer *kafka.Writer
}

// NewKafkaAlertConnector 创建Kafka告警连接器
func NewKafkaAlertConnector(config models.KafkaAlertConfig) *KafkaAlertConnector {
	c := &KafkaAlertConnector{config: config}
	if c.IsEnabled() {
		c.writer = &kafka.Writer{
			Addr:         kafka.TCP(config.Brokers...),
			Topic:        config.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 100 * time.Millisecond,
		}
	}
	return c
}

// GetChannelType 获取渠道类型标识
func (c *KafkaAlertConnector) GetChannelType() string {
	return "kafka"
}

// IsEnabled 渠道是否启用
func (c *KafkaAlertConnector) IsEnabled() bool {
	return c.config.Enabled && len(c.config.Brokers) > 0 && c.config.Topic != ""
}

// Send 将告警写入Kafka主题，键为告警文本便于同源告警落入同一分区
func (c *KafkaAlertConnector) Send(payload *models.AlertPayload) error {
	if c.writer == nil {
		return fmt.Errorf("kafka告警连接器未启用")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化kafka告警失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payload.Text),
		Value: body,
	}); err != nil {
		return fmt.Errorf("写入kafka告警主题失败: %w", err)
	}
	return nil
}

// Close 关闭底层writer
func (c *KafkaAlertConnector) Close() error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Close()
}
