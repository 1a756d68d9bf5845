/*
 * @module client/connectors/mqtt_connector
 * @description MQTT告警连接器，作为客户端连接broker并向告警主题发布漂移告警
 * @architecture 发布订阅模式 - 连接MQTT broker发布消息
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 惰性连接 -> 告警序列化 -> 发布主题 -> 等待确认 -> 断开
 * @rules 支持QoS配置和自动重连；连接失败的发送返回错误由分发器记录
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/drift/notification.go
 */

package connectors

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"analogcast-service/service/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTAlertConnector MQTT告警连接器
type MQTTAlertConnector struct {
	config models.MQTTAlertConfig
	client mqtt.Client
	mu     sync.Mutex
}

// NewMQTTAlertConnector 创建MQTT告警连接器，连接在首次发送时惰性建立
func NewMQTTAlertConnector(config models.MQTTAlertConfig) *MQTTAlertConnector {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &MQTTAlertConnector{config: config}
}

// GetChannelType 获取渠道类型标识
func (c *MQTTAlertConnector) GetChannelType() string {
	return "mqtt"
}

// IsEnabled 渠道是否启用
func (c *MQTTAlertConnector) IsEnabled() bool {
	return c.config.Enabled && c.config.BrokerURL != "" && c.config.Topic != ""
}

// ensureConnected 惰性建立连接，已连接时直接复用
func (c *MQTTAlertConnector) ensureConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.client.IsConnected() {
		return nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(c.config.BrokerURL).
		SetClientID(c.config.ClientID).
		SetUsername(c.config.Username).
		SetPassword(c.config.Password).
		SetConnectTimeout(c.config.Timeout).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(c.config.Timeout) {
		return fmt.Errorf("连接MQTT broker超时: %s", c.config.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("连接MQTT broker失败: %w", err)
	}

	c.client = client
	return nil
}

// Send 向告警主题发布漂移告警
func (c *MQTTAlertConnector) Send(payload *models.AlertPayload) error {
	if err := c.ensureConnected(); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化mqtt告警失败: %w", err)
	}

	token := c.client.Publish(c.config.Topic, c.config.QoS, false, body)
	if !token.WaitTimeout(c.config.Timeout) {
		return fmt.Errorf("发布MQTT告警超时: %s", c.config.Topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("发布MQTT告警失败: %w", err)
	}
	return nil
}

// Close 断开broker连接
func (c *MQTTAlertConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
	return nil
}
