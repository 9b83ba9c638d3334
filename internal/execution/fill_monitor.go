package execution

import (
	"bracketflow/internal/exchange"
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"context"
	"errors"
	"fmt"
	"time"
)

// FillMonitorConfig 单个挂单的监控参数
type FillMonitorConfig struct {
	Interval   time.Duration
	Expiration time.Duration
	MaxRetries int
}

/*
FillMonitor 跟踪一笔挂单直到终态

	open ─┬─ filled
	      ├─ 超过有效期 → cancel → canceled
	      ├─ 挂单视图查不到 → 历史订单 → filled / canceled / rejected
	      └─ 连续查询失败超过 MaxRetries → gave_up

有任何成交（包括部分成交）都会调用 onFill，每笔挂单最多一次
*/
type FillMonitor struct {
	gw          exchange.Gateway
	cfg         FillMonitorConfig
	executionID string
	order       model.SubmittedOrder
	onFill      func(model.OrderStatus)
	journal     Journal

	failures int
	retries  int
	notified bool
	done     bool
}

func NewFillMonitor(gw exchange.Gateway, cfg FillMonitorConfig, executionID string, order model.SubmittedOrder, onFill func(model.OrderStatus), j Journal) *FillMonitor {
	if j == nil {
		j = nopJournal{}
	}
	return &FillMonitor{
		gw:          gw,
		cfg:         cfg,
		executionID: executionID,
		order:       order,
		onFill:      onFill,
		journal:     j,
	}
}

// Run 首次查询在一个轮询间隔之后
func (m *FillMonitor) Run(ctx context.Context) model.MonitorResult {
	timer := time.NewTimer(m.cfg.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return m.finish(time.Now(), model.OutcomeStopped, ctx.Err())
		case now := <-timer.C:
			if res, done := m.Step(ctx, now); done {
				return res
			}
			timer.Reset(m.cfg.Interval)
		}
	}
}

// Step 执行一次轮询，now 用于判断有效期
func (m *FillMonitor) Step(ctx context.Context, now time.Time) (model.MonitorResult, bool) {
	if m.done {
		return model.MonitorResult{}, true
	}
	symbol, id := m.order.Leg.Symbol, m.order.VenueOrderID

	st, err := m.gw.GetOpenOrder(ctx, symbol, id)
	if errors.Is(err, model.ErrOrderNotFound) {
		// 挂单视图已经剔除，回查历史订单
		st, err = m.gw.GetClosedOrder(ctx, symbol, id)
		if errors.Is(err, model.ErrOrderNotFound) {
			return m.finish(now, model.OutcomeRejected, fmt.Errorf("order %s absent from open and closed views", id)), true
		}
	}
	if err != nil {
		return m.fail(now, err)
	}
	m.failures = 0

	if st.HasFill() {
		m.notify(*st)
	}
	if st.State.Terminal() {
		return m.finish(now, model.OutcomeFromState(st.State), nil), true
	}

	if now.Sub(m.order.SubmittedAt) <= m.cfg.Expiration {
		return model.MonitorResult{}, false
	}
	return m.expire(ctx, now)
}

// expire 撤单和成交可能同时发生，撤单失败时以历史订单为准
func (m *FillMonitor) expire(ctx context.Context, now time.Time) (model.MonitorResult, bool) {
	symbol, id := m.order.Leg.Symbol, m.order.VenueOrderID
	cancelErr := m.gw.CancelOrder(ctx, symbol, id)
	if cancelErr == nil {
		return m.finish(now, model.OutcomeCanceled, nil), true
	}

	st, err := m.gw.GetClosedOrder(ctx, symbol, id)
	if err == nil && st.State.Terminal() {
		if st.HasFill() {
			m.notify(*st)
		}
		return m.finish(now, model.OutcomeFromState(st.State), nil), true
	}
	logger.Warnf("cancel expired order %s %s: %v", symbol, id, cancelErr)
	return m.fail(now, cancelErr)
}

func (m *FillMonitor) fail(now time.Time, err error) (model.MonitorResult, bool) {
	m.failures++
	m.retries++
	if m.failures > m.cfg.MaxRetries {
		return m.finish(now, model.OutcomeGaveUp, fmt.Errorf("%w: %v", model.ErrGaveUp, err)), true
	}
	logger.Debugf("fill monitor %s retry %d: %v", m.order.VenueOrderID, m.failures, err)
	return model.MonitorResult{}, false
}

func (m *FillMonitor) notify(st model.OrderStatus) {
	if m.notified || m.onFill == nil {
		return
	}
	m.notified = true
	m.onFill(st)
}

func (m *FillMonitor) finish(now time.Time, outcome model.Outcome, err error) model.MonitorResult {
	m.done = true
	res := model.MonitorResult{
		Monitor:     model.MonitorFill,
		ExecutionID: m.executionID,
		Symbol:      m.order.Leg.Symbol,
		OrderID:     m.order.VenueOrderID,
		Outcome:     outcome,
		Err:         err,
		Retries:     m.retries,
		Elapsed:     now.Sub(m.order.SubmittedAt),
		FinishedAt:  now,
	}
	report(m.journal, res)
	return res
}
