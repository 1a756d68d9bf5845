/*
 * @module service/drift/rule_engine
 * @description 自定义漂移规则引擎，基于yaegi解释执行Go规则脚本，允许运维在不重编译的情况下升级事件级别或追加说明
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/drift_detection_req.md
 * @stateFlow 规则脚本加载 -> 解释器编译 -> 事件送入规则 -> 覆盖量合并回事件
 * @rules 规则只能升级不能降级严重级别；单条规则panic或出错不影响其余规则和检测主流程
 * @dependencies github.com/traefik/yaegi/interp, github.com/traefik/yaegi/stdlib
 * @refs detector.go
 */

package drift

import (
	"fmt"
	"log/slog"

	"analogcast-service/service/models"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// RuleFunc 规则函数签名
// 入参为事件的扁平视图，返回覆盖量：severity升级目标级别、note追加说明，nil表示不干预
type RuleFunc func(event map[string]interface{}) map[string]interface{}

// RuleEngine 自定义漂移规则引擎
type RuleEngine struct {
	rules []RuleFunc
}

// NewRuleEngine 加载规则脚本并编译为规则函数
// 脚本必须为package rule且定义 Evaluate(event map[string]interface{}) map[string]interface{}
func NewRuleEngine(scripts []string) (*RuleEngine, error) {
	engine := &RuleEngine{rules: make([]RuleFunc, 0, len(scripts))}

	for i, src := range scripts {
		rule, err := compileRule(src)
		if err != nil {
			return nil, fmt.Errorf("编译规则脚本 #%d 失败: %w", i, err)
		}
		engine.rules = append(engine.rules, rule)
	}

	if len(engine.rules) > 0 {
		slog.Info("自定义漂移规则已加载", "count", len(engine.rules))
	}
	return engine, nil
}

// compileRule 在独立解释器中编译单条规则脚本
func compileRule(src string) (RuleFunc, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("注入标准库符号失败: %w", err)
	}

	if _, err := i.Eval(src); err != nil {
		return nil, fmt.Errorf("解释规则脚本失败: %w", err)
	}

	v, err := i.Eval("rule.Evaluate")
	if err != nil {
		return nil, fmt.Errorf("规则脚本缺少 rule.Evaluate 函数: %w", err)
	}

	fn, ok := v.Interface().(func(map[string]interface{}) map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("rule.Evaluate 签名不符合要求")
	}
	return fn, nil
}

// Apply 对事件应用全部规则，覆盖量就地合并
func (e *RuleEngine) Apply(event *models.DriftEvent) {
	if len(e.rules) == 0 {
		return
	}

	view := map[string]interface{}{
		"event_id":    event.EventID,
		"drift_type":  event.DriftType.String(),
		"severity":    event.Severity.String(),
		"source_path": event.SourcePath,
		"description": event.Description,
		"old_value":   event.OldValue,
		"new_value":   event.NewValue,
	}

	for idx, rule := range e.rules {
		overrides := safeEvaluate(idx, rule, view)
		if overrides == nil {
			continue
		}

		if raw, ok := overrides["severity"].(string); ok {
			target := models.DriftSeverity(raw)
			// 只升不降
			if target.IsValid() && target.Priority() > event.Severity.Priority() {
				slog.Info("自定义规则升级事件级别", "event_id", event.EventID,
					"from", event.Severity, "to", target)
				event.Severity = target
				view["severity"] = target.String()
			}
		}
		if note, ok := overrides["note"].(string); ok && note != "" {
			if event.Metadata == nil {
				event.Metadata = make(map[string]interface{})
			}
			event.Metadata[fmt.Sprintf("rule_note_%d", idx)] = note
		}
	}
}

// safeEvaluate 执行单条规则并吸收panic
func safeEvaluate(idx int, rule RuleFunc, view map[string]interface{}) (result map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("自定义规则执行panic", "rule_index", idx, "panic", r)
			result = nil
		}
	}()
	return rule(view)
}
