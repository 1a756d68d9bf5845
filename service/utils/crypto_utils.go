/**
 * @module crypto_utils
 * @description 加密工具模块，负责敏感环境变量的展示脱敏、持久化加密和密钥派生
 * @architecture 加密工具集模式，提供脱敏和加解密方法
 * @documentReference 参考 ai_docs/drift_detection_req.md 第7.2节
 * @stateFlow 无状态加密：明文 -> 加密算法 -> 密文 / 密文 -> 解密算法 -> 明文
 * @rules
 *   - 脱敏仅用于展示，存储中保留原始值或密文
 *   - 名称包含敏感标记的变量值必须脱敏后才能进入事件字段
 *   - 加密算法使用业界标准（AES-256 + PBKDF2密钥派生）
 * @dependencies
 *   - crypto/*: 加密算法
 *   - golang.org/x/crypto/pbkdf2: 密钥派生
 * @refs
 *   - service/drift/comparator.go: 事件值脱敏
 *   - service/drift/store.go: 持久化加密
 */

package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// sensitiveMarkers 敏感变量名标记子串，命中任意一个即视为敏感
var sensitiveMarkers = []string{"token", "secret", "key", "password", "pwd"}

// pbkdf2Salt 密钥派生盐值，与持久化格式版本绑定
var pbkdf2Salt = []byte("analogcast-drift-v1")

// CryptoUtils 加密工具
type CryptoUtils struct {
	defaultKey []byte
}

// NewCryptoUtils 创建新的加密工具实例
func NewCryptoUtils(key string) *CryptoUtils {
	if key == "" {
		key = "analogcast-default-key-32-chars!"
	}

	// PBKDF2派生32字节密钥（AES-256）
	defaultKey := pbkdf2.Key([]byte(key), pbkdf2Salt, 4096, 32, sha256.New)

	return &CryptoUtils{
		defaultKey: defaultKey,
	}
}

// IsSensitiveName 判断变量名是否包含敏感标记（不区分大小写）
func IsSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// MaskSensitiveValue 敏感值展示脱敏
// 长度大于8时保留前4位和后4位，否则整体替换为等长星号
func MaskSensitiveValue(value string) string {
	runes := []rune(value)
	if len(runes) > 8 {
		return string(runes[:4]) + strings.Repeat("*", len(runes)-8) + string(runes[len(runes)-4:])
	}
	return strings.Repeat("*", len(runes))
}

// MaskIfSensitive 按变量名判断是否脱敏
func MaskIfSensitive(name, value string) string {
	if IsSensitiveName(name) {
		return MaskSensitiveValue(value)
	}
	return value
}

// Fingerprint 计算值的SHA-256指纹，用于去重比较而不留存原文
func Fingerprint(value string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(value)))
}

// AESEncrypt AES加密，返回base64编码的IV+密文
func (cu *CryptoUtils) AESEncrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(cu.defaultKey)
	if err != nil {
		return "", fmt.Errorf("创建AES块失败: %v", err)
	}

	// 生成随机IV
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("生成IV失败: %v", err)
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, []byte(plaintext))

	result := append(iv, ciphertext...)
	return base64.StdEncoding.EncodeToString(result), nil
}

// AESDecrypt AES解密base64编码的IV+密文
func (cu *CryptoUtils) AESDecrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64解码失败: %v", err)
	}

	if len(data) < aes.BlockSize {
		return "", fmt.Errorf("密文长度不足")
	}

	block, err := aes.NewCipher(cu.defaultKey)
	if err != nil {
		return "", fmt.Errorf("创建AES块失败: %v", err)
	}

	iv := data[:aes.BlockSize]
	ciphertext := data[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)

	return string(plaintext), nil
}
