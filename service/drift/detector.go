/*
 * @module service/drift/detector
 * @description 配置漂移检测器，维护基线快照与事件日志，编排快照采集、比对、安全扫描、告警分发和状态持久化
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow STOPPED -> StartMonitoring(建立基线) -> MONITORING -> 周期/事件触发检测 -> StopMonitoring(持久化) -> STOPPED
 * @rules 监控中重复启动返回错误；事件日志FIFO淘汰至归档回调；严重事件异步通知不阻塞检测；DetectDrift仅返回本次调用新产生的事件
 * @dependencies analogcast-service/service/models, analogcast-service/service/utils, github.com/google/uuid
 * @refs snapshot_engine.go, comparator.go, notification.go, store.go, metrics.go
 */

package drift

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"analogcast-service/service/models"
	"analogcast-service/service/utils"

	"github.com/google/uuid"
)

// MonitorStatus 检测器运行状态
type MonitorStatus string

const (
	MonitorStatusStopped    MonitorStatus = "stopped"
	MonitorStatusMonitoring MonitorStatus = "monitoring"
)

// insecureValueMarkers 凭据值中的不安全占位片段，命中即判严重安全漂移
var insecureValueMarkers = []string{"test", "demo", "localhost", "password"}

// EventArchiveSink 事件归档回调，FIFO淘汰的事件经此落库
type EventArchiveSink func(event *models.DriftEvent)

// DriftDetector 配置漂移检测器
type DriftDetector struct {
	config     *DriftConfig
	engine     *SnapshotEngine
	store      *StateStore
	dispatcher *AlertDispatcher
	ruleEngine *RuleEngine
	metrics    *DriftMetrics

	archiveSink EventArchiveSink

	baseline  *models.ConfigurationSnapshot
	snapshots []*models.ConfigurationSnapshot
	events    []*models.DriftEvent

	// 已上报的安全发现，键为变量名，值为凭据哈希，避免同一凭据重复告警
	reportedSecurity map[string]string
	// 已上报结构校验失败的配置路径，恢复通过后解除抑制
	reportedSchema map[string]struct{}

	status  MonitorStatus
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mutex   sync.RWMutex
	checkCh chan string

	watcher   *ConfigWatcher
	scheduler *CheckScheduler
}

// NewDriftDetector 创建漂移检测器实例
func NewDriftDetector(config *DriftConfig) (*DriftDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("漂移检测配置无效: %w", err)
	}

	store, err := NewStateStore(config.StateDir, config.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("初始化状态存储失败: %w", err)
	}

	ruleEngine, err := NewRuleEngine(config.RuleScripts)
	if err != nil {
		return nil, fmt.Errorf("初始化规则引擎失败: %w", err)
	}

	d := &DriftDetector{
		config:           config,
		engine:           NewSnapshotEngine(config),
		store:            store,
		dispatcher:       NewAlertDispatcher(config),
		ruleEngine:       ruleEngine,
		metrics:          NewDriftMetrics(),
		snapshots:        make([]*models.ConfigurationSnapshot, 0),
		events:           make([]*models.DriftEvent, 0),
		reportedSecurity: make(map[string]string),
		reportedSchema:   make(map[string]struct{}),
		status:           MonitorStatusStopped,
		checkCh:          make(chan string, 64),
	}

	// 历史状态存在时恢复事件日志和快照链
	if state, err := store.Load(); err != nil {
		slog.Warn("加载历史漂移状态失败，以空状态启动", "error", err)
	} else if state != nil {
		d.baseline = state.Baseline
		d.snapshots = state.Snapshots
		d.events = state.Events
		slog.Info("历史漂移状态已恢复", "snapshots", len(d.snapshots), "events", len(d.events))
	}

	return d, nil
}

// SetArchiveSink 设置事件归档回调
func (d *DriftDetector) SetArchiveSink(sink EventArchiveSink) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.archiveSink = sink
}

// RegisterNotificationChannel 注册额外的告警通知渠道
func (d *DriftDetector) RegisterNotificationChannel(sender NotificationSender) {
	d.dispatcher.Register(sender)
}

// Status 获取检测器当前运行状态
func (d *DriftDetector) Status() MonitorStatus {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.status
}

// Baseline 获取当前基线快照
func (d *DriftDetector) Baseline() *models.ConfigurationSnapshot {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.baseline
}

// StartMonitoring 建立基线并启动监控
// 已处于监控状态时返回错误而非静默重建基线
func (d *DriftDetector) StartMonitoring(ctx context.Context) error {
	// 状态迁移在锁内一次完成，并发启动只有一个调用能通过检查
	d.mutex.Lock()
	if d.status == MonitorStatusMonitoring {
		d.mutex.Unlock()
		return fmt.Errorf("检测器已处于监控状态，不允许重复启动")
	}
	d.status = MonitorStatusMonitoring
	d.mutex.Unlock()

	baseline, err := d.engine.CreateSnapshot()
	if err != nil {
		d.mutex.Lock()
		d.status = MonitorStatusStopped
		d.mutex.Unlock()
		return fmt.Errorf("建立基线快照失败: %w", err)
	}

	d.mutex.Lock()
	if d.status != MonitorStatusMonitoring {
		// 基线建立期间被StopMonitoring抢占，放弃启动
		d.mutex.Unlock()
		return fmt.Errorf("监控在启动期间被停止")
	}
	d.baseline = baseline
	d.snapshots = append(d.snapshots, baseline)
	d.ctx, d.cancel = context.WithCancel(ctx)
	runCtx := d.ctx
	d.mutex.Unlock()

	d.metrics.SetMonitoringActive(true)
	d.metrics.ObserveSnapshot(baseline)

	d.wg.Add(1)
	go d.runLoop(runCtx)

	scheduler := NewCheckScheduler(d.config, d.requestCheck)
	if err := scheduler.Start(runCtx); err != nil {
		slog.Warn("检查调度器启动失败，仅保留事件触发检测", "error", err)
	}
	d.mutex.Lock()
	d.scheduler = scheduler
	d.mutex.Unlock()

	if d.config.WatchEnabled {
		watcher, err := NewConfigWatcher(d.config, d.engine, d.requestCheck)
		if err != nil {
			slog.Warn("文件系统监听启动失败，回退为周期检测", "error", err)
		} else {
			d.mutex.Lock()
			d.watcher = watcher
			d.mutex.Unlock()
			watcher.Start(runCtx)
		}
	}

	slog.Info("漂移监控已启动", "baseline_id", baseline.SnapshotID,
		"file_count", baseline.FileCount(), "env_var_count", baseline.EnvVarCount())
	return nil
}

// StopMonitoring 停止监控并持久化状态
func (d *DriftDetector) StopMonitoring() error {
	d.mutex.Lock()
	if d.status != MonitorStatusMonitoring {
		d.mutex.Unlock()
		return fmt.Errorf("检测器未处于监控状态")
	}
	d.status = MonitorStatusStopped
	cancel := d.cancel
	scheduler := d.scheduler
	watcher := d.watcher
	d.scheduler = nil
	d.watcher = nil
	d.mutex.Unlock()

	if cancel != nil {
		cancel()
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if watcher != nil {
		watcher.Stop()
	}
	d.wg.Wait()

	d.metrics.SetMonitoringActive(false)

	if err := d.persistState(); err != nil {
		return fmt.Errorf("停止时持久化漂移状态失败: %w", err)
	}

	slog.Info("漂移监控已停止")
	return nil
}

// requestCheck 非阻塞地请求一次检测，队列满时丢弃（随后的周期检测会补上）
func (d *DriftDetector) requestCheck(reason string) {
	select {
	case d.checkCh <- reason:
	default:
		slog.Debug("检测请求队列已满，丢弃触发", "reason", reason)
	}
}

// runLoop 后台检测循环，串行消费检测请求避免并发快照
func (d *DriftDetector) runLoop(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-d.checkCh:
			if _, err := d.DetectDrift(); err != nil {
				slog.Error("漂移检测执行失败", "reason", reason, "error", err)
			}
		}
	}
}

// DetectDrift 执行一次完整检测，返回本次调用新产生的事件
// 差异来源为增量比对（上一快照 vs 当前）与基线比对（基线 vs 当前）的并集去重，
// 基线比对中的文件/环境变量差异重新标记为基线偏离类型
func (d *DriftDetector) DetectDrift() ([]*models.DriftEvent, error) {
	started := time.Now()

	current, err := d.engine.CreateSnapshot()
	if err != nil {
		return nil, fmt.Errorf("创建检测快照失败: %w", err)
	}

	d.mutex.Lock()
	baseline := d.baseline
	var previous *models.ConfigurationSnapshot
	if len(d.snapshots) > 0 {
		previous = d.snapshots[len(d.snapshots)-1]
	}
	d.mutex.Unlock()

	if baseline == nil {
		return nil, fmt.Errorf("基线快照不存在，请先启动监控")
	}

	incremental := CompareSnapshots(previous, current)
	newEvents := make([]*models.DriftEvent, 0, len(incremental))
	seen := make(map[string]struct{}, len(incremental))
	for _, event := range incremental {
		seen[dedupKey(event)] = struct{}{}
		newEvents = append(newEvents, event)
	}

	for _, event := range CompareSnapshots(baseline, current) {
		if _, dup := seen[dedupKey(event)]; dup {
			continue
		}
		if event.DriftType == models.DriftTypeFileChange || event.DriftType == models.DriftTypeEnvMismatch {
			event.DriftType = models.DriftTypeBaselineDeviation
		}
		seen[dedupKey(event)] = struct{}{}
		newEvents = append(newEvents, event)
	}

	newEvents = append(newEvents, d.scanSchemaViolations(current, newEvents)...)
	newEvents = append(newEvents, d.scanSecurityDrift(current)...)

	for _, event := range newEvents {
		d.ruleEngine.Apply(event)
	}

	d.recordSnapshot(current)
	d.appendEvents(newEvents)

	d.metrics.ObserveSnapshot(current)
	d.metrics.ObserveDetection(time.Since(started), newEvents)
	d.metrics.SetUnresolvedCounts(d.unresolvedCountsBySeverity())

	d.notifyCritical(newEvents)

	if err := d.persistState(); err != nil {
		slog.Warn("检测后持久化漂移状态失败", "error", err)
	}

	if len(newEvents) > 0 {
		slog.Info("漂移检测完成", "new_events", len(newEvents),
			"elapsed_ms", time.Since(started).Milliseconds())
	}
	return newEvents, nil
}

// dedupKey 事件去重键，同源同值变化只保留一条
func dedupKey(event *models.DriftEvent) string {
	return fmt.Sprintf("%s|%s|%s", event.SourcePath, event.OldValue, event.NewValue)
}

// scanSchemaViolations 上报当前仍处于结构校验失败状态的配置
// 同一配置在生命周期内只上报一次，恢复通过后解除抑制；
// 本轮比对已产出转为失败事件的配置仅登记不重复上报
func (d *DriftDetector) scanSchemaViolations(snapshot *models.ConfigurationSnapshot, pending []*models.DriftEvent) []*models.DriftEvent {
	coveredByDiff := make(map[string]struct{})
	for _, event := range pending {
		if event.DriftType == models.DriftTypeSchemaViolation && event.NewValue == "false" {
			coveredByDiff[event.SourcePath] = struct{}{}
		}
	}

	events := make([]*models.DriftEvent, 0)
	now := time.Now()

	d.mutex.Lock()
	defer d.mutex.Unlock()

	for path, passed := range snapshot.SchemaValidation {
		if passed {
			delete(d.reportedSchema, path)
			continue
		}
		if _, dup := d.reportedSchema[path]; dup {
			continue
		}
		d.reportedSchema[path] = struct{}{}
		if _, covered := coveredByDiff[path]; covered {
			continue
		}
		events = append(events, &models.DriftEvent{
			EventID:     uuid.New().String(),
			DriftType:   models.DriftTypeSchemaViolation,
			Severity:    models.DriftSeverityHigh,
			SourcePath:  path,
			Description: fmt.Sprintf("配置结构校验未通过: %s", path),
			DetectedAt:  now,
			NewValue:    "false",
		})
	}
	return events
}

// scanSecurityDrift 扫描监控环境变量的安全漂移
// 不安全占位值检查覆盖全部监控变量并判严重级别；
// 令牌强度检查仅对敏感命名变量有意义，弱令牌判高级别；同一凭据只上报一次
func (d *DriftDetector) scanSecurityDrift(snapshot *models.ConfigurationSnapshot) []*models.DriftEvent {
	events := make([]*models.DriftEvent, 0)
	now := time.Now()

	for name, value := range snapshot.EnvironmentVars {
		if value == "" {
			continue
		}
		sensitive := utils.IsSensitiveName(name)
		marker := matchInsecureMarker(value)
		if marker == "" && !sensitive {
			continue
		}

		fingerprint := utils.Fingerprint(value)
		d.mutex.Lock()
		if d.reportedSecurity[name] == fingerprint {
			d.mutex.Unlock()
			continue
		}
		d.reportedSecurity[name] = fingerprint
		d.mutex.Unlock()

		if marker != "" {
			events = append(events, &models.DriftEvent{
				EventID:     uuid.New().String(),
				DriftType:   models.DriftTypeSecurityDrift,
				Severity:    models.DriftSeverityCritical,
				SourcePath:  name,
				Description: fmt.Sprintf("环境变量 %s 使用了不安全的占位值（包含 %q）", name, marker),
				DetectedAt:  now,
				NewValue:    utils.MaskIfSensitive(name, value),
				Metadata:    map[string]interface{}{"insecure_marker": marker},
			})
			continue
		}

		analysis := AnalyzeTokenStrength(value)
		if analysis.Strength == TokenStrengthWeak || analysis.Strength == TokenStrengthFair {
			events = append(events, &models.DriftEvent{
				EventID:     uuid.New().String(),
				DriftType:   models.DriftTypeSecurityDrift,
				Severity:    models.DriftSeverityHigh,
				SourcePath:  name,
				Description: fmt.Sprintf("敏感变量 %s 的令牌强度不足 (%s)", name, analysis.Strength),
				DetectedAt:  now,
				NewValue:    utils.MaskSensitiveValue(value),
				Metadata:    map[string]interface{}{"token_analysis": analysis},
			})
		}
	}

	return events
}

// matchInsecureMarker 返回值中命中的首个不安全占位片段，未命中返回空串
func matchInsecureMarker(value string) string {
	lower := strings.ToLower(value)
	for _, marker := range insecureValueMarkers {
		if strings.Contains(lower, marker) {
			return marker
		}
	}
	return ""
}

// recordSnapshot 记录快照并按保留期清理过期快照，基线不参与清理
func (d *DriftDetector) recordSnapshot(snapshot *models.ConfigurationSnapshot) {
	cutoff := time.Now().AddDate(0, 0, -d.config.RetentionDays)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.snapshots = append(d.snapshots, snapshot)

	kept := d.snapshots[:0]
	for _, s := range d.snapshots {
		if s == d.baseline || s.Timestamp.After(cutoff) {
			kept = append(kept, s)
		}
	}
	d.snapshots = kept
}

// appendEvents 追加事件并执行FIFO容量淘汰，淘汰事件交归档回调
func (d *DriftDetector) appendEvents(events []*models.DriftEvent) {
	if len(events) == 0 {
		return
	}

	d.mutex.Lock()
	d.events = append(d.events, events...)

	var evicted []*models.DriftEvent
	if overflow := len(d.events) - d.config.MaxEvents; overflow > 0 {
		evicted = d.events[:overflow]
		d.events = d.events[overflow:]
	}
	sink := d.archiveSink
	d.mutex.Unlock()

	if sink != nil {
		for _, event := range evicted {
			sink(event)
		}
	}
	if len(evicted) > 0 {
		slog.Debug("事件日志达到容量上限，已FIFO淘汰", "evicted", len(evicted))
	}
}

// notifyCritical 异步分发严重事件告警
func (d *DriftDetector) notifyCritical(events []*models.DriftEvent) {
	critical := make([]*models.DriftEvent, 0)
	for _, event := range events {
		if event.IsCritical() {
			critical = append(critical, event)
		}
	}
	if len(critical) == 0 {
		return
	}

	go func() {
		for _, event := range critical {
			if err := d.dispatcher.Dispatch(event); err != nil {
				slog.Error("严重漂移告警分发失败", "event_id", event.EventID, "error", err)
				d.metrics.ObserveAlertOutcome(false)
			} else {
				d.metrics.ObserveAlertOutcome(true)
			}
		}
	}()
}

// unresolvedCountsBySeverity 统计各严重级别的未解决事件数
func (d *DriftDetector) unresolvedCountsBySeverity() map[models.DriftSeverity]int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	counts := make(map[models.DriftSeverity]int)
	for _, event := range d.events {
		if !event.Resolved {
			counts[event.Severity]++
		}
	}
	return counts
}

// persistState 将当前状态持久化到JSON存储
func (d *DriftDetector) persistState() error {
	d.mutex.RLock()
	state := &models.DriftState{
		Baseline:  d.baseline,
		Snapshots: d.snapshots,
		Events:    d.events,
		SavedAt:   time.Now(),
	}
	d.mutex.RUnlock()

	return d.store.Save(state)
}

// Events 获取事件日志的副本，按检出时间从旧到新
func (d *DriftDetector) Events() []*models.DriftEvent {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	out := make([]*models.DriftEvent, len(d.events))
	copy(out, d.events)
	return out
}

// Metrics 获取检测器的指标采集器
func (d *DriftDetector) Metrics() *DriftMetrics {
	return d.metrics
}
