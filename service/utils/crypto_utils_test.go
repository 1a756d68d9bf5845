/*
 * @module service/utils/crypto_utils_test
 * @description 加密工具单元测试，覆盖敏感名称识别、展示脱敏和加解密往返
 * @architecture 单元测试
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 准备测试数据 -> 执行测试 -> 验证结果
 * @rules 覆盖所有公共方法和边界场景
 * @dependencies testing, testify
 * @refs crypto_utils.go
 */

package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSensitiveName(t *testing.T) {
	tests := []struct {
		name     string
		varName  string
		expected bool
	}{
		{"包含token", "API_TOKEN", true},
		{"包含secret", "JWT_SECRET", true},
		{"包含key大小写混合", "Encryption_Key", true},
		{"包含password", "DB_PASSWORD", true},
		{"包含pwd", "REDIS_PWD", true},
		{"普通变量", "LOG_LEVEL", false},
		{"空名称", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSensitiveName(tt.varName))
		})
	}
}

func TestMaskSensitiveValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"长值保留首尾各4位", "abcd1234efgh5678", "abcd********5678"},
		{"短值全部替换", "abc123", "******"},
		{"恰好8位全部替换", "12345678", "********"},
		{"空值", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskSensitiveValue(tt.value))
		})
	}
}

func TestMaskIfSensitive(t *testing.T) {
	// 敏感名称脱敏，普通名称透传
	assert.NotContains(t, MaskIfSensitive("API_TOKEN", "super-secret-value-123"), "secret")
	assert.Equal(t, "info", MaskIfSensitive("LOG_LEVEL", "info"))
}

func TestCryptoUtils_AESRoundTrip(t *testing.T) {
	cu := NewCryptoUtils("test-encryption-key")

	plaintexts := []string{
		"simple-value",
		"包含中文的配置值",
		"",
		strings.Repeat("x", 1024),
	}

	for _, plaintext := range plaintexts {
		encrypted, err := cu.AESEncrypt(plaintext)
		assert.NoError(t, err)
		assert.NotEqual(t, plaintext, encrypted)

		decrypted, err := cu.AESDecrypt(encrypted)
		assert.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestCryptoUtils_DecryptInvalid(t *testing.T) {
	cu := NewCryptoUtils("test-encryption-key")

	_, err := cu.AESDecrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = cu.AESDecrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	// 同值同指纹，异值异指纹，指纹不含原文
	assert.Equal(t, Fingerprint("value-a"), Fingerprint("value-a"))
	assert.NotEqual(t, Fingerprint("value-a"), Fingerprint("value-b"))
	assert.NotContains(t, Fingerprint("value-a"), "value")
	assert.Len(t, Fingerprint("value-a"), 64)
}
