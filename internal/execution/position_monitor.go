package execution

import (
	"bracketflow/internal/exchange"
	"bracketflow/internal/metrics"
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// 成交后持仓连续为空这么多次，认为仓位已经被止盈止损平掉
const flatConfirmPolls = 3

type PositionState string

const (
	PositionAwaiting          PositionState = "awaiting_position"
	PositionArmed             PositionState = "armed"
	PositionTrailingInstalled PositionState = "trailing_installed"
	PositionDone              PositionState = "done"
)

type PositionMonitorConfig struct {
	Interval    time.Duration
	WaitTimeout time.Duration
	MaxRetries  int
}

/*
PositionMonitor 一次执行只有一个，负责在开仓后创建追踪止损

	awaiting_position ──(有成交且持仓不为0)──> armed ──> trailing_installed ──> done
	        │
	        ├─ 没有成交，挂单全部消失 ──> done(no_position)
	        ├─ 有成交，持仓为空且挂单都已结束 ──> done(flattened)
	        └─ 超时或重试耗尽 ──> done(gave_up)

追踪止损每次执行最多创建一次
*/
type PositionMonitor struct {
	gw          exchange.Gateway
	cfg         PositionMonitorConfig
	executionID string
	signal      model.TradeSignal
	orders      []model.SubmittedOrder
	journal     Journal

	filled atomic.Bool
	fillCh chan struct{}

	state     PositionState
	trailing  model.TrailingStopState
	started   time.Time
	failures  int
	retries   int
	flatPolls int
}

// NewPositionMonitor activation 为参考档位止盈价，distance 为追踪距离
func NewPositionMonitor(gw exchange.Gateway, cfg PositionMonitorConfig, executionID string, sig model.TradeSignal,
	orders []model.SubmittedOrder, activation, distance decimal.Decimal, started time.Time, j Journal) *PositionMonitor {
	if j == nil {
		j = nopJournal{}
	}
	return &PositionMonitor{
		gw:          gw,
		cfg:         cfg,
		executionID: executionID,
		signal:      sig,
		orders:      orders,
		journal:     j,
		fillCh:      make(chan struct{}, 1),
		state:       PositionAwaiting,
		trailing:    model.TrailingStopState{ActivationPrice: activation, TrailingDistance: distance},
		started:     started,
	}
}

// NotifyFill 由 FillMonitor 在发现成交时调用，可并发调用
func (m *PositionMonitor) NotifyFill(model.OrderStatus) {
	m.filled.Store(true)
	select {
	case m.fillCh <- struct{}{}:
	default:
	}
}

func (m *PositionMonitor) State() PositionState {
	return m.state
}

func (m *PositionMonitor) Trailing() model.TrailingStopState {
	return m.trailing
}

// Run 收到成交通知时立即查询一次持仓
func (m *PositionMonitor) Run(ctx context.Context) model.MonitorResult {
	timer := time.NewTimer(m.cfg.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return m.finish(time.Now(), model.OutcomeStopped, ctx.Err())
		case <-m.fillCh:
		case <-timer.C:
		}
		if res, done := m.Step(ctx, time.Now()); done {
			return res
		}
		timer.Reset(linearBackoff(m.cfg.Interval, m.failures))
	}
}

func (m *PositionMonitor) Step(ctx context.Context, now time.Time) (model.MonitorResult, bool) {
	if m.state == PositionDone {
		return model.MonitorResult{}, true
	}
	if now.Sub(m.started) > m.cfg.WaitTimeout {
		return m.finish(now, model.OutcomeGaveUp,
			fmt.Errorf("%w: no trailing stop after %s", model.ErrGaveUp, m.cfg.WaitTimeout)), true
	}

	if !m.filled.Load() {
		vanished, filled, err := m.checkOrders(ctx)
		if err != nil {
			return m.fail(now, err)
		}
		if filled {
			m.filled.Store(true)
		} else if vanished {
			return m.finish(now, model.OutcomeNoPosition, nil), true
		} else {
			m.failures = 0
			return model.MonitorResult{}, false
		}
	}

	pos, err := m.gw.GetPosition(ctx, m.signal.Symbol)
	if err != nil {
		return m.fail(now, err)
	}
	m.failures = 0

	if !pos.IsOpen() {
		return m.checkFlat(ctx, now)
	}
	m.flatPolls = 0
	m.state = PositionArmed
	return m.install(ctx, now, pos)
}

// checkOrders 跟踪的挂单都不在挂单视图里时，回查历史订单判断是否成交过
func (m *PositionMonitor) checkOrders(ctx context.Context) (vanished, filled bool, err error) {
	open, err := m.openTracked(ctx)
	if err != nil {
		return false, false, err
	}
	if open > 0 {
		return false, false, nil
	}
	for _, o := range m.orders {
		st, err := m.gw.GetClosedOrder(ctx, o.Leg.Symbol, o.VenueOrderID)
		if errors.Is(err, model.ErrOrderNotFound) {
			continue
		}
		if err != nil {
			return false, false, err
		}
		if st.HasFill() {
			return true, true, nil
		}
	}
	return true, false, nil
}

func (m *PositionMonitor) openTracked(ctx context.Context) (int, error) {
	orders, err := m.gw.ListOpenOrders(ctx, m.signal.Symbol)
	if err != nil {
		return 0, err
	}
	tracked := make(map[string]struct{}, len(m.orders))
	for _, o := range m.orders {
		tracked[o.VenueOrderID] = struct{}{}
	}
	n := 0
	for _, o := range orders {
		if _, ok := tracked[o.ID]; ok && o.State.Working() {
			n++
		}
	}
	return n, nil
}

func (m *PositionMonitor) checkFlat(ctx context.Context, now time.Time) (model.MonitorResult, bool) {
	open, err := m.openTracked(ctx)
	if err != nil {
		return m.fail(now, err)
	}
	if open > 0 {
		m.flatPolls = 0
		return model.MonitorResult{}, false
	}
	m.flatPolls++
	if m.flatPolls >= flatConfirmPolls {
		return m.finish(now, model.OutcomeFlattened, nil), true
	}
	return model.MonitorResult{}, false
}

func (m *PositionMonitor) install(ctx context.Context, now time.Time, pos *model.Position) (model.MonitorResult, bool) {
	if m.trailing.Installed {
		return m.finish(now, model.OutcomeTrailingInstalled, nil), true
	}
	req := model.TrailingStopRequest{
		Symbol:          m.signal.Symbol,
		Side:            m.signal.Side,
		Size:            pos.NetContracts.Abs(),
		ActivationPrice: m.trailing.ActivationPrice,
		Distance:        m.trailing.TrailingDistance,
	}
	algoID, err := m.gw.InstallTrailingStop(ctx, req)
	if err != nil {
		if !model.IsRetryable(err) {
			return m.finish(now, model.OutcomeFailed, fmt.Errorf("install trailing stop: %w", err)), true
		}
		return m.fail(now, err)
	}

	m.trailing.Installed = true
	m.state = PositionTrailingInstalled
	metrics.TrailingStopInstalled()
	logger.Info("trailing stop installed",
		logger.Pair("execution_id", m.executionID),
		logger.Pair("symbol", req.Symbol),
		logger.Pair("order_id", algoID),
		logger.Pair("size", req.Size.String()),
		logger.Pair("activation", req.ActivationPrice.String()),
		logger.Pair("distance", req.Distance.String()))
	return m.finish(now, model.OutcomeTrailingInstalled, nil), true
}

func (m *PositionMonitor) fail(now time.Time, err error) (model.MonitorResult, bool) {
	m.failures++
	m.retries++
	if m.failures > m.cfg.MaxRetries {
		return m.finish(now, model.OutcomeGaveUp, fmt.Errorf("%w: %v", model.ErrGaveUp, err)), true
	}
	logger.Debugf("position monitor %s retry %d: %v", m.executionID, m.failures, err)
	return model.MonitorResult{}, false
}

func (m *PositionMonitor) finish(now time.Time, outcome model.Outcome, err error) model.MonitorResult {
	m.state = PositionDone
	res := model.MonitorResult{
		Monitor:     model.MonitorPosition,
		ExecutionID: m.executionID,
		Symbol:      m.signal.Symbol,
		Outcome:     outcome,
		Err:         err,
		Retries:     m.retries,
		Elapsed:     now.Sub(m.started),
		FinishedAt:  now,
	}
	report(m.journal, res)
	return res
}
