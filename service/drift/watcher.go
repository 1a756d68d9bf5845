/*
 * @module service/drift/watcher
 * @description 配置文件系统监听器，基于fsnotify递归监听监控目录，事件按路径去抖后触发检测
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow fsnotify事件 -> 模式过滤 -> 按路径去抖 -> 检测触发回调
 * @rules 每个路径独立去抖定时器，窗口期内重复事件只触发一次；新建目录动态纳入监听
 * @dependencies github.com/fsnotify/fsnotify
 * @refs detector.go, snapshot_engine.go
 */

package drift

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// CheckTrigger 检测触发回调，reason用于日志追溯
type CheckTrigger func(reason string)

// ConfigWatcher 配置文件系统监听器
type ConfigWatcher struct {
	config  *DriftConfig
	engine  *SnapshotEngine
	trigger CheckTrigger

	watcher  *fsnotify.Watcher
	debounce map[string]*time.Timer
	mutex    sync.Mutex
	wg       sync.WaitGroup
}

// NewConfigWatcher 创建监听器并递归注册监控目录
func NewConfigWatcher(config *DriftConfig, engine *SnapshotEngine, trigger CheckTrigger) (*ConfigWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件系统监听器失败: %w", err)
	}

	w := &ConfigWatcher{
		config:   config,
		engine:   engine,
		trigger:  trigger,
		watcher:  fsWatcher,
		debounce: make(map[string]*time.Timer),
	}

	if err := w.addRecursive(config.RootDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// addRecursive 递归注册目录，排除模式命中的子树不注册
func (w *ConfigWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && w.engine.matchesAny(filepath.ToSlash(rel)+"/", w.config.ExcludePatterns) {
			return filepath.SkipDir
		}
		if addErr := w.watcher.Add(path); addErr != nil {
			slog.Warn("目录注册监听失败", "path", path, "error", addErr)
		}
		return nil
	})
}

// Start 启动监听循环
func (w *ConfigWatcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	slog.Info("配置文件系统监听已启动", "root", w.config.RootDir,
		"debounce_ms", w.config.WatchDebounce.Milliseconds())
}

// Stop 停止监听并释放去抖定时器
func (w *ConfigWatcher) Stop() {
	w.watcher.Close()
	w.wg.Wait()

	w.mutex.Lock()
	for _, timer := range w.debounce {
		timer.Stop()
	}
	w.debounce = make(map[string]*time.Timer)
	w.mutex.Unlock()
}

// run 监听事件主循环
func (w *ConfigWatcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("文件系统监听错误", "error", err)
		}
	}
}

// handleEvent 处理单个fsnotify事件
func (w *ConfigWatcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.config.RootDir, event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	// 新建目录动态纳入监听
	if event.Op.Has(fsnotify.Create) {
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			if addErr := w.watcher.Add(event.Name); addErr == nil {
				slog.Debug("新目录已纳入监听", "path", rel)
			}
			return
		}
	}

	if !w.engine.ShouldMonitor(rel) {
		return
	}
	if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	w.debounceTrigger(rel)
}

// debounceTrigger 按路径去抖，窗口内的重复变更合并为一次检测
func (w *ConfigWatcher) debounceTrigger(rel string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if timer, ok := w.debounce[rel]; ok {
		timer.Reset(w.config.WatchDebounce)
		return
	}

	w.debounce[rel] = time.AfterFunc(w.config.WatchDebounce, func() {
		w.mutex.Lock()
		delete(w.debounce, rel)
		w.mutex.Unlock()

		slog.Debug("文件变更触发检测", "path", rel)
		w.trigger("fsnotify:" + rel)
	})
}
