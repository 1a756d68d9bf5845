/*
 * @module service/drift/notification_test
 * @description 告警通知单元测试，覆盖载荷构建、webhook发送尝试次数和多渠道分发
 * @architecture 单元测试
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 构造事件 -> 载荷构建 -> 模拟webhook端点 -> 验证尝试次数与结果
 * @rules RetryCount为总尝试次数；单渠道失败不阻断其余渠道
 * @dependencies testing, testify, net/http/httptest
 * @refs notification.go
 */

package drift

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"analogcast-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotifyEvent() *models.DriftEvent {
	return &models.DriftEvent{
		EventID:     "notify-1",
		DriftType:   models.DriftTypeSecurityDrift,
		Severity:    models.DriftSeverityCritical,
		SourcePath:  "API_TOKEN",
		Description: "敏感变量使用了不安全的占位值",
		DetectedAt:  time.Now(),
		OldValue:    "old****",
		NewValue:    "new****",
	}
}

func TestBuildAlertPayload(t *testing.T) {
	payload := BuildAlertPayload(testNotifyEvent())

	assert.Contains(t, payload.Text, "敏感变量使用了不安全的占位值")
	require.Len(t, payload.Attachments, 1)
	assert.Equal(t, severityColors[models.DriftSeverityCritical], payload.Attachments[0].Color)

	titles := make([]string, 0)
	for _, field := range payload.Attachments[0].Fields {
		titles = append(titles, field.Title)
	}
	assert.Contains(t, titles, "类型")
	assert.Contains(t, titles, "级别")
	assert.Contains(t, titles, "来源")
	assert.Contains(t, titles, "旧值")
	assert.Contains(t, titles, "新值")
}

func TestWebhookChannel_SendSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var payload models.AlertPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.NotEmpty(t, payload.Text)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	channel := NewWebhookChannel(models.WebhookConfig{
		Enabled:    true,
		URL:        server.URL,
		RetryCount: 3,
	})

	require.NoError(t, channel.Send(BuildAlertPayload(testNotifyEvent())))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWebhookChannel_RetryCountIsTotalAttempts(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// RetryCount=1表示总共只尝试一次，失败后不再重试
	channel := NewWebhookChannel(models.WebhookConfig{
		Enabled:    true,
		URL:        server.URL,
		RetryCount: 1,
	})

	assert.Error(t, channel.Send(BuildAlertPayload(testNotifyEvent())))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAlertDispatcher_PartialFailure(t *testing.T) {
	dispatcher := &AlertDispatcher{channels: make([]NotificationSender, 0)}
	failing := &stubChannel{channelType: "failing", enabled: true, err: assert.AnError}
	healthy := &stubChannel{channelType: "healthy", enabled: true}
	disabled := &stubChannel{channelType: "disabled", enabled: false}
	dispatcher.Register(failing)
	dispatcher.Register(healthy)
	dispatcher.Register(disabled)

	err := dispatcher.Dispatch(testNotifyEvent())

	// 单渠道失败返回聚合错误，但不阻断其余渠道
	assert.Error(t, err)
	assert.Equal(t, 1, failing.sent)
	assert.Equal(t, 1, healthy.sent)
	assert.Equal(t, 0, disabled.sent)
}

// stubChannel 测试用通知渠道
type stubChannel struct {
	channelType string
	enabled     bool
	err         error
	sent        int
}

func (s *stubChannel) Send(payload *models.AlertPayload) error {
	s.sent++
	return s.err
}

func (s *stubChannel) GetChannelType() string { return s.channelType }

func (s *stubChannel) IsEnabled() bool { return s.enabled }
