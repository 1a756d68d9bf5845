/*
 * @module service/drift/store_test
 * @description 状态存储单元测试，覆盖序列化往返、敏感值落盘加密和缺失文件处理
 * @architecture 单元测试
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 构造状态 -> 保存 -> 加载 -> 验证往返无损
 * @rules 敏感环境变量不得以明文落盘
 * @dependencies testing, testify
 * @refs store.go
 */

package drift

import (
	"os"
	"testing"
	"time"

	"analogcast-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore_RoundTrip(t *testing.T) {
	store, err := NewStateStore(t.TempDir(), "test-key")
	require.NoError(t, err)

	baseline := newSnapshot(
		map[string]string{"configs/data.yaml": "hash-a"},
		map[string]string{"LOG_LEVEL": "info", "API_TOKEN": "secret-token-value-123"},
		map[string]bool{"configs/data.yaml": true},
	)
	event := &models.DriftEvent{
		EventID:     "event-1",
		DriftType:   models.DriftTypeFileChange,
		Severity:    models.DriftSeverityHigh,
		SourcePath:  "configs/data.yaml",
		Description: "测试事件",
		DetectedAt:  time.Now().Truncate(time.Second),
	}

	state := &models.DriftState{
		Baseline:  baseline,
		Snapshots: []*models.ConfigurationSnapshot{baseline},
		Events:    []*models.DriftEvent{event},
		SavedAt:   time.Now().Truncate(time.Second),
	}

	require.NoError(t, store.Save(state))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, baseline.SnapshotID, loaded.Baseline.SnapshotID)
	assert.Equal(t, baseline.FileHashes, loaded.Baseline.FileHashes)
	// 敏感值往返无损
	assert.Equal(t, "secret-token-value-123", loaded.Baseline.EnvironmentVars["API_TOKEN"])
	assert.Equal(t, "info", loaded.Baseline.EnvironmentVars["LOG_LEVEL"])
	require.Len(t, loaded.Events, 1)
	assert.Equal(t, event.EventID, loaded.Events[0].EventID)
	assert.Equal(t, event.Severity, loaded.Events[0].Severity)
}

func TestStateStore_SensitiveValuesEncryptedOnDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStateStore(dir, "test-key")
	require.NoError(t, err)

	baseline := newSnapshot(nil,
		map[string]string{"API_TOKEN": "plaintext-should-not-appear"}, nil)
	require.NoError(t, store.Save(&models.DriftState{
		Baseline: baseline,
		SavedAt:  time.Now(),
	}))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "plaintext-should-not-appear")
	assert.Contains(t, string(raw), encryptedValuePrefix)

	// 加密不修改内存中的快照
	assert.Equal(t, "plaintext-should-not-appear", baseline.EnvironmentVars["API_TOKEN"])
}

func TestStateStore_LoadMissingReturnsNil(t *testing.T) {
	store, err := NewStateStore(t.TempDir(), "")
	require.NoError(t, err)

	state, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, state)
}
