package execution

import (
	"bracketflow/internal/exchange"
	"bracketflow/internal/ladder"
	"bracketflow/internal/metrics"
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var ErrStopped = errors.New("orchestrator stopped")

const dispatchTimeout = 30 * time.Second

// Execution 一个信号对应的执行单元，监控单元在后台运行
type Execution struct {
	ID     string
	Signal model.TradeSignal
	Legs   []model.OrderLeg
	Report SubmitReport

	done     chan struct{}
	mu       sync.Mutex
	trailing model.TrailingStopState
	outcomes []model.MonitorResult
}

// Done 所有 FillMonitor 和 PositionMonitor 结束后关闭
func (e *Execution) Done() <-chan struct{} {
	return e.done
}

func (e *Execution) Outcomes() []model.MonitorResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.MonitorResult(nil), e.outcomes...)
}

// Trailing PositionMonitor 结束后 Installed 反映追踪止损是否已挂上
func (e *Execution) Trailing() model.TrailingStopState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trailing
}

func (e *Execution) setTrailing(ts model.TrailingStopState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trailing = ts
}

func (e *Execution) record(res model.MonitorResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outcomes = append(e.outcomes, res)
}

/*
Orchestrator 信号入口

	TradeSignal → 校验 → 余额 → 计划 → 逐档下单 → FillMonitor × N
	                                          → PositionMonitor
	                                          → Sweeper（按交易对共用）

不同信号的执行互不影响，同一交易对的执行也不去重
*/
type Orchestrator struct {
	gw        exchange.Gateway
	cfg       Config
	planner   *ladder.Planner
	submitter *Submitter
	journal   Journal
	node      *snowflake.Node
	sweepers  *sweeperRegistry

	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewOrchestrator(gw exchange.Gateway, cfg Config, journal Journal) (*Orchestrator, error) {
	if err := cfg.Levels.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Levels.ValidateReference(cfg.TrailingReferenceLevel); err != nil {
		return nil, err
	}
	if !cfg.TrailingSLRoi.IsNegative() {
		return nil, fmt.Errorf("%w: trailing roi %s must be negative", model.ErrConfiguration, cfg.TrailingSLRoi)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}
	if journal == nil {
		journal = nopJournal{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		gw:        gw,
		cfg:       cfg,
		planner:   ladder.NewPlanner(gw),
		submitter: NewSubmitter(gw, journal, cfg.SubmitRetries),
		journal:   journal,
		node:      node,
		sweepers:  newSweeperRegistry(),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Dispatch 异步执行，调用方不等待结果
func (o *Orchestrator) Dispatch(sig model.TradeSignal, callback func(*Execution, error)) {
	ctx, cancel := context.WithTimeout(o.ctx, dispatchTimeout)
	go func() {
		defer cancel()
		exec, err := o.ExecuteSignal(ctx, sig)
		if err != nil {
			logger.Errorf("execute signal %s: %v", sig, err)
		}
		if callback != nil {
			callback(exec, err)
		}
	}()
}

// ExecuteSignal 校验和下单同步完成，监控单元启动后立即返回
// 配置、方向、市场错误在下单前返回，不会产生任何挂单
func (o *Orchestrator) ExecuteSignal(ctx context.Context, sig model.TradeSignal) (*Execution, error) {
	if o.ctx.Err() != nil {
		return nil, ErrStopped
	}
	exec, err := o.prepare(ctx, sig)
	if err != nil {
		metrics.SignalRejected()
		return nil, err
	}
	metrics.SignalAccepted()

	exec.Report = o.submitter.Submit(ctx, exec.ID, sig, exec.Legs)
	if len(exec.Report.Orders) == 0 {
		close(exec.done)
		return exec, fmt.Errorf("no leg submitted: %w", exec.Report.Err)
	}

	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		// 已经挂出的订单由交易所端的止损止盈保护
		close(exec.done)
		return exec, ErrStopped
	}
	o.launch(exec)
	return exec, nil
}

func (o *Orchestrator) prepare(ctx context.Context, sig model.TradeSignal) (*Execution, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if quote := sig.QuoteCurrency(); !strings.EqualFold(quote, o.cfg.SettlementCurrency) {
		return nil, fmt.Errorf("%w: %s settles in %q, only %s accepted",
			model.ErrUnsupportedMarket, sig.Symbol, quote, o.cfg.SettlementCurrency)
	}

	balance, err := o.gw.GetBalance(ctx, o.cfg.SettlementCurrency)
	if err != nil {
		return nil, fmt.Errorf("get %s balance: %w", o.cfg.SettlementCurrency, err)
	}
	total, err := ladder.TotalSize(sig.Symbol, balance, o.cfg.BalancePct, sig.Leverage, sig.EntryPrice, o.gw)
	if err != nil {
		return nil, err
	}
	legs, err := o.planner.Plan(sig, o.cfg.Levels, total)
	if err != nil {
		return nil, err
	}
	activation, err := o.planner.ReferenceTakeProfit(sig, o.cfg.Levels, o.cfg.TrailingReferenceLevel)
	if err != nil {
		return nil, err
	}
	distance, err := o.planner.TrailingDistance(sig, activation, o.cfg.TrailingSLRoi)
	if err != nil {
		return nil, err
	}

	exec := &Execution{
		ID:       o.node.Generate().String(),
		Signal:   sig,
		Legs:     legs,
		done:     make(chan struct{}),
		trailing: model.TrailingStopState{ActivationPrice: activation, TrailingDistance: distance},
	}
	logger.Infof("execution %s planned %s: total %s in %d legs, balance %s", exec.ID, sig, total, len(legs), balance)
	return exec, nil
}

// launch 监控单元绑定在基础 context 上，Shutdown 时统一取消
func (o *Orchestrator) launch(exec *Execution) {
	now := time.Now()
	ts := exec.Trailing()
	pm := NewPositionMonitor(o.gw, o.cfg.Position, exec.ID, exec.Signal, exec.Report.Orders,
		ts.ActivationPrice, ts.TrailingDistance, now, o.journal)

	var units sync.WaitGroup
	run := func(fn func(context.Context) model.MonitorResult) {
		units.Add(1)
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			defer units.Done()
			exec.record(fn(o.ctx))
		}()
	}

	metrics.ExecutionStarted()
	for _, order := range exec.Report.Orders {
		fm := NewFillMonitor(o.gw, o.cfg.Fill, exec.ID, order, pm.NotifyFill, o.journal)
		run(fm.Run)
	}
	run(func(ctx context.Context) model.MonitorResult {
		res := pm.Run(ctx)
		exec.setTrailing(pm.Trailing())
		return res
	})

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		units.Wait()
		metrics.ExecutionFinished()
		close(exec.done)
	}()

	o.joinSweeper(exec.Signal.Symbol, now)
}

func (o *Orchestrator) joinSweeper(symbol string, now time.Time) {
	s, created := o.sweepers.join(symbol, func() *Sweeper {
		return NewSweeper(o.gw, o.cfg.Sweep, symbol, now, o.journal)
	})
	if !created {
		return
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		res := s.Run(o.ctx)
		if res.Outcome != model.OutcomeDrained {
			o.sweepers.forget(symbol, s)
		}
	}()
}

// Shutdown 取消所有监控单元并等待退出，已经挂出的订单不会撤销
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	o.cancel()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Planned 计划总量，即各档数量之和
func (e *Execution) Planned() decimal.Decimal {
	total := decimal.Zero
	for _, leg := range e.Legs {
		total = total.Add(leg.Quantity)
	}
	return total
}
