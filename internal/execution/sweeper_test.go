package execution

import (
	"bracketflow/internal/model"
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

var sweepCfg = SweeperConfig{Interval: time.Minute, Expiration: time.Hour, MaxRetries: 3}

func TestSweeper_CancelsStaleUnfilledOnly(t *testing.T) {
	ctx := context.Background()
	g := newFakeGateway()
	g.setOpen(model.OrderStatus{ID: "stale", Symbol: "BTC/USDT", State: model.OrderOpen, Amount: d("1"), CreatedAt: t0})
	g.setOpen(model.OrderStatus{ID: "partial", Symbol: "BTC/USDT", State: model.OrderPartiallyFilled, Amount: d("1"), Filled: d("0.5"), CreatedAt: t0})
	g.setOpen(model.OrderStatus{ID: "young", Symbol: "BTC/USDT", State: model.OrderOpen, Amount: d("1"), CreatedAt: t0.Add(50 * time.Minute)})
	g.setOpen(model.OrderStatus{ID: "other", Symbol: "ETH/USDT", State: model.OrderOpen, Amount: d("1"), CreatedAt: t0})

	s := NewSweeper(g, sweepCfg, "BTC/USDT", t0, nil)
	if _, done := s.Step(ctx, t0.Add(time.Hour+time.Minute)); done {
		t.Fatalf("sweeper must keep running while orders are open")
	}
	sort.Strings(g.canceled)
	if len(g.canceled) != 1 || g.canceled[0] != "stale" || s.Canceled() != 1 {
		t.Fatalf("unexpected cancels %v", g.canceled)
	}
}

func TestSweeper_DrainsWhenEmpty(t *testing.T) {
	g := newFakeGateway()
	s := NewSweeper(g, sweepCfg, "BTC/USDT", t0, nil)
	res, done := s.Step(context.Background(), t0.Add(time.Minute))
	if !done || res.Outcome != model.OutcomeDrained {
		t.Fatalf("expected drained, got %+v", res)
	}
}

func TestSweeper_BackoffAndGiveUp(t *testing.T) {
	ctx := context.Background()
	g := newFakeGateway()
	for i := 0; i <= sweepCfg.MaxRetries; i++ {
		g.listErrs = append(g.listErrs, transient("list"))
	}
	s := NewSweeper(g, sweepCfg, "BTC/USDT", t0, nil)

	want := []time.Duration{2 * time.Minute, 4 * time.Minute, 8 * time.Minute}
	for i, w := range want {
		if _, done := s.Step(ctx, t0.Add(time.Duration(i+1)*time.Minute)); done {
			t.Fatalf("gave up too early")
		}
		if got := s.delay(); got != w {
			t.Fatalf("delay after %d failures = %s, want %s", i+1, got, w)
		}
	}
	res, done := s.Step(ctx, t0.Add(time.Hour))
	if !done || res.Outcome != model.OutcomeGaveUp || !errors.Is(res.Err, model.ErrGaveUp) {
		t.Fatalf("expected gave up, got %+v", res)
	}
}

func TestDoublingBackoffCap(t *testing.T) {
	if got := doublingBackoff(time.Minute, 0); got != time.Minute {
		t.Fatalf("got %s", got)
	}
	if got := doublingBackoff(time.Minute, 10); got != maxSweepBackoff {
		t.Fatalf("expected cap, got %s", got)
	}
}

func TestSweeperRegistry_JoinAndRelease(t *testing.T) {
	g := newFakeGateway()
	r := newSweeperRegistry()
	create := func() *Sweeper { return NewSweeper(g, sweepCfg, "BTC/USDT", t0, nil) }

	first, created := r.join("BTC/USDT", create)
	if !created {
		t.Fatalf("first join creates the sweeper")
	}
	second, created := r.join("BTC/USDT", create)
	if created || second != first {
		t.Fatalf("second execution must join the running sweeper")
	}

	// 有新执行加入，第一次清空时不退出
	if res, done := first.Step(context.Background(), t0.Add(time.Minute)); done {
		t.Fatalf("kicked sweeper must keep running, got %+v", res)
	}
	if !r.active("BTC/USDT") {
		t.Fatalf("sweeper should still be registered")
	}
	res, done := first.Step(context.Background(), t0.Add(2*time.Minute))
	if !done || res.Outcome != model.OutcomeDrained {
		t.Fatalf("expected drained, got %+v", res)
	}
	if r.active("BTC/USDT") {
		t.Fatalf("drained sweeper must release its slot")
	}

	third, created := r.join("BTC/USDT", create)
	if !created || third == first {
		t.Fatalf("a new sweeper is created after drain")
	}
	r.forget("BTC/USDT", third)
	if r.active("BTC/USDT") {
		t.Fatalf("forget removes the slot")
	}
}
