/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数，提供内存数据库、事件/快照工厂和HTTP断言工具
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"analogcast-service/service/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建内存测试数据库并迁移归档模型
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	if err := db.AutoMigrate(
		&models.DriftEventArchive{},
		&models.HorizonReportArchive{},
	); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// Close 关闭测试数据库
func (t *TestDB) Close() {
	if sqlDB, err := t.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

// CreateTestEvent 创建测试漂移事件
func CreateTestEvent(driftType models.DriftType, severity models.DriftSeverity, source string) *models.DriftEvent {
	return &models.DriftEvent{
		EventID:     uuid.New().String(),
		DriftType:   driftType,
		Severity:    severity,
		SourcePath:  source,
		Description: fmt.Sprintf("测试事件: %s", source),
		DetectedAt:  time.Now(),
	}
}

// CreateTestSnapshot 创建测试配置快照
func CreateTestSnapshot(files map[string]string, envVars map[string]string) *models.ConfigurationSnapshot {
	if files == nil {
		files = map[string]string{}
	}
	if envVars == nil {
		envVars = map[string]string{}
	}
	return &models.ConfigurationSnapshot{
		SnapshotID:       uuid.New().String(),
		Timestamp:        time.Now(),
		FileHashes:       files,
		EnvironmentVars:  envVars,
		SchemaValidation: map[string]bool{},
	}
}

// DoJSONRequest 执行JSON请求并返回记录器
func DoJSONRequest(handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

// AssertJSONStatus 断言响应状态码并解码响应体
func AssertJSONStatus(t *testing.T, recorder *httptest.ResponseRecorder, expectedCode int, out interface{}) {
	t.Helper()
	assert.Equal(t, expectedCode, recorder.Code)
	if out != nil {
		assert.NoError(t, json.Unmarshal(recorder.Body.Bytes(), out))
	}
}
