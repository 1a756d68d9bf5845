/*
 * @module client/connectors/redis_connector
 * @description Redis告警连接器，通过发布订阅通道广播漂移告警，供同集群的消费端实时订阅
 * @architecture 发布订阅模式 - Redis PUBLISH广播
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 创建客户端 -> 告警序列化 -> PUBLISH通道 -> 关闭
 * @rules 发布是即发即弃语义，无订阅者时消息丢弃不算失败
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/drift/notification.go
 */

package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"analogcast-service/service/models"

	"github.com/go-redis/redis/v8"
)

// RedisAlertConnector Redis发布订阅告警连接器
type RedisAlertConnector struct {
	config models.RedisAlertConfig
	client *redis.Client
}

// NewRedisAlertConnector 创建Redis告警连接器
func NewRedisAlertConnector(config models.RedisAlertConfig) *RedisAlertConnector {
	c := &RedisAlertConnector{config: config}
	if c.IsEnabled() {
		c.client = redis.NewClient(&redis.Options{
			Addr:     config.Addr,
			Password: config.Password,
			DB:       config.DB,
		})
	}
	return c
}

// GetChannelType 获取渠道类型标识
func (c *RedisAlertConnector) GetChannelType() string {
	return "redis"
}

// IsEnabled 渠道是否启用
func (c *RedisAlertConnector) IsEnabled() bool {
	return c.config.Enabled && c.config.Addr != "" && c.config.Channel != ""
}

// Send 向告警通道发布漂移告警
func (c *RedisAlertConnector) Send(payload *models.AlertPayload) error {
	if c.client == nil {
		return fmt.Errorf("redis告警连接器未启用")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化redis告警失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.client.Publish(ctx, c.config.Channel, body).Err(); err != nil {
		return fmt.Errorf("发布redis告警失败: %w", err)
	}
	return nil
}

// Close 关闭Redis客户端
func (c *RedisAlertConnector) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
