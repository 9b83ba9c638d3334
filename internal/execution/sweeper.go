package execution

import (
	"bracketflow/internal/exchange"
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

type SweeperConfig struct {
	Interval   time.Duration
	Expiration time.Duration
	MaxRetries int
}

// Sweeper 每个交易对一个，定期撤掉超过有效期且没有成交的挂单
// 挂单清空且期间没有新的执行加入时退出
type Sweeper struct {
	gw      exchange.Gateway
	cfg     SweeperConfig
	symbol  string
	journal Journal

	// 返回 false 表示有新的执行加入，需要继续运行
	release func() bool

	started  time.Time
	failures int
	retries  int
	canceled int
	done     bool
}

func NewSweeper(gw exchange.Gateway, cfg SweeperConfig, symbol string, started time.Time, j Journal) *Sweeper {
	if j == nil {
		j = nopJournal{}
	}
	return &Sweeper{
		gw:      gw,
		cfg:     cfg,
		symbol:  symbol,
		journal: j,
		started: started,
	}
}

func (s *Sweeper) Canceled() int {
	return s.canceled
}

// delay 连续失败时按 2 的幂退避
func (s *Sweeper) delay() time.Duration {
	return doublingBackoff(s.cfg.Interval, s.failures)
}

func (s *Sweeper) Run(ctx context.Context) model.MonitorResult {
	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.finish(time.Now(), model.OutcomeStopped, ctx.Err())
		case now := <-timer.C:
			if res, done := s.Step(ctx, now); done {
				return res
			}
			timer.Reset(s.delay())
		}
	}
}

func (s *Sweeper) Step(ctx context.Context, now time.Time) (model.MonitorResult, bool) {
	if s.done {
		return model.MonitorResult{}, true
	}
	orders, err := s.gw.ListOpenOrders(ctx, s.symbol)
	if err != nil {
		s.failures++
		s.retries++
		if s.failures > s.cfg.MaxRetries {
			return s.finish(now, model.OutcomeGaveUp, fmt.Errorf("%w: list open orders: %v", model.ErrGaveUp, err)), true
		}
		logger.Warnf("sweeper %s list open orders failed, next sweep in %s: %v", s.symbol, s.delay(), err)
		return model.MonitorResult{}, false
	}
	s.failures = 0

	for _, o := range orders {
		if o.HasFill() || now.Sub(o.CreatedAt) <= s.cfg.Expiration {
			continue
		}
		err := s.gw.CancelOrder(ctx, s.symbol, o.ID)
		switch {
		case err == nil:
			s.canceled++
			logger.Info("stale order canceled",
				logger.Pair("symbol", s.symbol),
				logger.Pair("order_id", o.ID),
				logger.Pair("elapsed", now.Sub(o.CreatedAt).String()))
		case errors.Is(err, model.ErrOrderNotFound):
			// 已经被 FillMonitor 撤掉或者成交
		default:
			logger.Warnf("sweeper %s cancel %s: %v", s.symbol, o.ID, err)
		}
	}

	if len(orders) == 0 && (s.release == nil || s.release()) {
		return s.finish(now, model.OutcomeDrained, nil), true
	}
	return model.MonitorResult{}, false
}

func (s *Sweeper) finish(now time.Time, outcome model.Outcome, err error) model.MonitorResult {
	s.done = true
	res := model.MonitorResult{
		Monitor:    model.MonitorSweeper,
		Symbol:     s.symbol,
		Outcome:    outcome,
		Err:        err,
		Retries:    s.retries,
		Elapsed:    now.Sub(s.started),
		FinishedAt: now,
	}
	report(s.journal, res)
	return res
}

// sweeperRegistry 同一交易对共用一个 Sweeper
type sweeperRegistry struct {
	mu       sync.Mutex
	sweepers map[string]*sweeperSlot
}

type sweeperSlot struct {
	sweeper *Sweeper
	kicked  bool
}

func newSweeperRegistry() *sweeperRegistry {
	return &sweeperRegistry{sweepers: make(map[string]*sweeperSlot)}
}

// join 已有 Sweeper 时标记有新执行加入，否则用 create 创建，created 为 true 时调用方负责启动
func (r *sweeperRegistry) join(symbol string, create func() *Sweeper) (s *Sweeper, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.sweepers[symbol]; ok {
		slot.kicked = true
		return slot.sweeper, false
	}
	s = create()
	slot := &sweeperSlot{sweeper: s}
	s.release = func() bool { return r.release(symbol, slot) }
	r.sweepers[symbol] = slot
	return s, true
}

// release 期间有新执行加入时保留，否则移除
func (r *sweeperRegistry) release(symbol string, slot *sweeperSlot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot.kicked {
		slot.kicked = false
		return false
	}
	if r.sweepers[symbol] == slot {
		delete(r.sweepers, symbol)
	}
	return true
}

// forget Sweeper 异常退出时移除
func (r *sweeperRegistry) forget(symbol string, s *Sweeper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slot, ok := r.sweepers[symbol]; ok && slot.sweeper == s {
		delete(r.sweepers, symbol)
	}
}

func (r *sweeperRegistry) active(symbol string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sweepers[symbol]
	return ok
}
