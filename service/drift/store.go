/*
 * @module service/drift/store
 * @description 漂移状态存储，将基线、快照链和事件日志持久化为JSON文件，敏感环境变量值加密后落盘
 * @architecture 分层架构 - 数据持久层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 内存状态 -> 敏感值加密 -> 临时文件写入 -> 原子重命名 / 文件读取 -> 敏感值解密 -> 内存状态
 * @rules 序列化往返必须无损；敏感值以密文落盘、解密失败的值保留密文并记日志而非中断加载
 * @dependencies analogcast-service/service/utils, encoding/json, os
 * @refs detector.go
 */

package drift

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"analogcast-service/service/models"
	"analogcast-service/service/utils"
)

// stateFileName 持久化状态文件名
const stateFileName = "drift_state.json"

// encryptedValuePrefix 密文值标记前缀，区分明文与密文
const encryptedValuePrefix = "enc:"

// StateStore 漂移状态JSON存储
type StateStore struct {
	dir    string
	crypto *utils.CryptoUtils
}

// NewStateStore 创建状态存储，目录不存在时自动创建
func NewStateStore(dir, encryptionKey string) (*StateStore, error) {
	if dir == "" {
		dir = "versions"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建状态目录失败 %s: %w", dir, err)
	}

	return &StateStore{
		dir:    dir,
		crypto: utils.NewCryptoUtils(encryptionKey),
	}, nil
}

// Path 获取状态文件完整路径
func (s *StateStore) Path() string {
	return filepath.Join(s.dir, stateFileName)
}

// Save 持久化漂移状态，写临时文件后原子重命名
func (s *StateStore) Save(state *models.DriftState) error {
	encrypted := s.encryptState(state)

	data, err := encrypted.Marshal()
	if err != nil {
		return fmt.Errorf("序列化漂移状态失败: %w", err)
	}

	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入状态临时文件失败: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		return fmt.Errorf("状态文件原子替换失败: %w", err)
	}
	return nil
}

// Load 加载漂移状态，文件不存在时返回nil而非错误
func (s *StateStore) Load() (*models.DriftState, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取状态文件失败: %w", err)
	}

	state, err := models.UnmarshalDriftState(data)
	if err != nil {
		return nil, err
	}

	s.decryptState(state)
	return state, nil
}

// encryptState 返回敏感值加密后的状态副本，内存状态不被修改
func (s *StateStore) encryptState(state *models.DriftState) *models.DriftState {
	out := &models.DriftState{
		Baseline:  s.encryptSnapshot(state.Baseline),
		Snapshots: make([]*models.ConfigurationSnapshot, 0, len(state.Snapshots)),
		Events:    state.Events,
		SavedAt:   state.SavedAt,
	}
	for _, snapshot := range state.Snapshots {
		out.Snapshots = append(out.Snapshots, s.encryptSnapshot(snapshot))
	}
	return out
}

// encryptSnapshot 返回敏感环境变量值加密后的快照副本
func (s *StateStore) encryptSnapshot(snapshot *models.ConfigurationSnapshot) *models.ConfigurationSnapshot {
	if snapshot == nil {
		return nil
	}

	vars := make(map[string]string, len(snapshot.EnvironmentVars))
	for name, value := range snapshot.EnvironmentVars {
		if !utils.IsSensitiveName(name) {
			vars[name] = value
			continue
		}
		ciphertext, err := s.crypto.AESEncrypt(value)
		if err != nil {
			slog.Warn("敏感值加密失败，落盘时脱敏处理", "name", name, "error", err)
			vars[name] = utils.MaskSensitiveValue(value)
			continue
		}
		vars[name] = encryptedValuePrefix + ciphertext
	}

	out := *snapshot
	out.EnvironmentVars = vars
	return &out
}

// decryptState 就地解密状态中的敏感环境变量值
func (s *StateStore) decryptState(state *models.DriftState) {
	s.decryptSnapshot(state.Baseline)
	for _, snapshot := range state.Snapshots {
		s.decryptSnapshot(snapshot)
	}
}

// decryptSnapshot 就地解密快照中标记为密文的值，解密失败保留密文
func (s *StateStore) decryptSnapshot(snapshot *models.ConfigurationSnapshot) {
	if snapshot == nil {
		return
	}
	for name, value := range snapshot.EnvironmentVars {
		if len(value) <= len(encryptedValuePrefix) || value[:len(encryptedValuePrefix)] != encryptedValuePrefix {
			continue
		}
		plaintext, err := s.crypto.AESDecrypt(value[len(encryptedValuePrefix):])
		if err != nil {
			slog.Warn("敏感值解密失败，保留密文", "name", name, "error", err)
			continue
		}
		snapshot.EnvironmentVars[name] = plaintext
	}
}
