/*
 * @module service/drift/snapshot_engine_test
 * @description 快照引擎单元测试，覆盖glob匹配、排除优先、环境变量白名单和结构校验
 * @architecture 单元测试
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 准备临时目录 -> 创建快照 -> 验证采集结果
 * @rules 未设置的环境变量不出现在快照中，与空字符串值严格区分
 * @dependencies testing, testify
 * @refs snapshot_engine.go
 */

package drift

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSnapshotEngine_CreateSnapshot(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "configs/data.yaml", "region:\n  lat: 39.9\n  lon: 116.4\n")
	writeTestFile(t, root, "settings.json", `{"debug": false}`)
	writeTestFile(t, root, "node_modules/pkg/config.yaml", "ignored: true\n")
	writeTestFile(t, root, "notes.txt", "not monitored")

	engine := NewSnapshotEngine(DefaultDriftConfig(root))
	snapshot, err := engine.CreateSnapshot()
	require.NoError(t, err)

	assert.NotEmpty(t, snapshot.SnapshotID)
	assert.Contains(t, snapshot.FileHashes, "configs/data.yaml")
	assert.Contains(t, snapshot.FileHashes, "settings.json")
	// 排除模式优先于包含模式
	assert.NotContains(t, snapshot.FileHashes, "node_modules/pkg/config.yaml")
	// 未匹配包含模式的文件不采集
	assert.NotContains(t, snapshot.FileHashes, "notes.txt")
	assert.Len(t, snapshot.FileHashes["configs/data.yaml"], 64)
}

func TestSnapshotEngine_HashChangesWithContent(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "configs/data.yaml", "region:\n  lat: 39.9\n  lon: 116.4\n")

	engine := NewSnapshotEngine(DefaultDriftConfig(root))
	first, err := engine.CreateSnapshot()
	require.NoError(t, err)

	writeTestFile(t, root, "configs/data.yaml", "region:\n  lat: 31.2\n  lon: 121.5\n")
	second, err := engine.CreateSnapshot()
	require.NoError(t, err)

	assert.NotEqual(t, first.FileHashes["configs/data.yaml"], second.FileHashes["configs/data.yaml"])
}

func TestSnapshotEngine_EnvWhitelist(t *testing.T) {
	root := t.TempDir()
	config := DefaultDriftConfig(root)
	config.MonitoredEnvVars = []string{"ANALOG_TEST_PRESENT", "ANALOG_TEST_EMPTY", "ANALOG_TEST_ABSENT"}

	t.Setenv("ANALOG_TEST_PRESENT", "value")
	t.Setenv("ANALOG_TEST_EMPTY", "")
	os.Unsetenv("ANALOG_TEST_ABSENT")

	engine := NewSnapshotEngine(config)
	snapshot, err := engine.CreateSnapshot()
	require.NoError(t, err)

	assert.Equal(t, "value", snapshot.EnvironmentVars["ANALOG_TEST_PRESENT"])
	// 空字符串值与未设置严格区分
	empty, ok := snapshot.EnvironmentVars["ANALOG_TEST_EMPTY"]
	assert.True(t, ok)
	assert.Equal(t, "", empty)
	_, ok = snapshot.EnvironmentVars["ANALOG_TEST_ABSENT"]
	assert.False(t, ok)
}

func TestSnapshotEngine_SchemaValidation(t *testing.T) {
	tests := []struct {
		name     string
		rel      string
		content  string
		expected bool
	}{
		{"数据配置合法", "configs/data.yaml", "region:\n  lat: 39.9\n  lon: 116.4\n", true},
		{"数据配置缺少lon", "configs/data.yaml", "region:\n  lat: 39.9\n", false},
		{"数据配置坐标非数值", "configs/data.yaml", "region:\n  lat: north\n  lon: east\n", false},
		{"数据配置缺少region", "configs/data.yaml", "other: 1\n", false},
		{"模型配置齐全", "configs/model.yaml", "model:\n  type: knn\ntraining:\n  epochs: 10\nfeatures:\n  - temperature\n", true},
		{"模型配置缺少training", "configs/model.yaml", "model:\n  type: knn\nfeatures: []\n", false},
		{"YAML不可解析", "configs/model.yaml", "model: [unclosed\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeTestFile(t, root, tt.rel, tt.content)

			engine := NewSnapshotEngine(DefaultDriftConfig(root))
			snapshot, err := engine.CreateSnapshot()
			require.NoError(t, err)

			result, ok := snapshot.SchemaValidation[tt.rel]
			assert.True(t, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSnapshotEngine_SchemaPathMissingNotValidated(t *testing.T) {
	root := t.TempDir()

	engine := NewSnapshotEngine(DefaultDriftConfig(root))
	snapshot, err := engine.CreateSnapshot()
	require.NoError(t, err)

	// 不存在的配置路径不参与校验
	assert.Empty(t, snapshot.SchemaValidation)
}

func TestSnapshotEngine_ShouldMonitor(t *testing.T) {
	engine := NewSnapshotEngine(DefaultDriftConfig(t.TempDir()))

	tests := []struct {
		path     string
		expected bool
	}{
		{"configs/data.yaml", true},
		{".env", true},
		{".env.production", true},
		{"docker-compose.yml", true},
		{"deep/nested/settings.json", true},
		{"node_modules/a/b.yaml", false},
		{".git/config.yaml", false},
		{"versions/drift_state.json", false},
		{"main.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, engine.ShouldMonitor(tt.path))
		})
	}
}

func TestSnapshotEngine_MissingRootFails(t *testing.T) {
	engine := NewSnapshotEngine(DefaultDriftConfig(filepath.Join(t.TempDir(), "missing")))
	_, err := engine.CreateSnapshot()
	assert.Error(t, err)
}
