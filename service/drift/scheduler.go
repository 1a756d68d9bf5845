/*
 * @module service/drift/scheduler
 * @description 漂移检查调度器，固定间隔ticker为主，可选cron表达式做补充调度
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 启动 -> ticker周期触发 / cron表达式触发 -> 检测回调 -> 停止
 * @rules 触发只投递请求不执行检测，检测串行化由检测器的后台循环保证
 * @dependencies github.com/robfig/cron/v3
 * @refs detector.go
 */

package drift

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CheckScheduler 漂移检查调度器
type CheckScheduler struct {
	config  *DriftConfig
	trigger CheckTrigger

	cron *cron.Cron
	wg   sync.WaitGroup
}

// NewCheckScheduler 创建调度器实例
func NewCheckScheduler(config *DriftConfig, trigger CheckTrigger) *CheckScheduler {
	return &CheckScheduler{
		config:  config,
		trigger: trigger,
	}
}

// Start 启动周期调度，配置了cron表达式时同时启动cron调度
func (s *CheckScheduler) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.tickerLoop(ctx)

	if s.config.CronSpec != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.config.CronSpec, func() {
			s.trigger("cron:" + s.config.CronSpec)
		}); err != nil {
			s.cron = nil
			return fmt.Errorf("注册cron调度失败 %s: %w", s.config.CronSpec, err)
		}
		s.cron.Start()
		slog.Info("cron检查调度已启动", "spec", s.config.CronSpec)
	}

	slog.Info("周期检查调度已启动", "interval", s.config.CheckInterval.String())
	return nil
}

// Stop 停止调度器
func (s *CheckScheduler) Stop() {
	if s.cron != nil {
		cronCtx := s.cron.Stop()
		<-cronCtx.Done()
	}
	s.wg.Wait()
}

// tickerLoop 固定间隔触发循环
func (s *CheckScheduler) tickerLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.trigger("interval")
		}
	}
}
