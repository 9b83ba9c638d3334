package execution

import (
	"bracketflow/internal/model"
	"context"
	"errors"
	"testing"
	"time"
)

var posCfg = PositionMonitorConfig{Interval: 10 * time.Second, WaitTimeout: time.Hour, MaxRetries: 3}

func longSignal() model.TradeSignal {
	return model.TradeSignal{Symbol: "BTC/USDT", Side: model.Long, Leverage: 10, EntryPrice: d("50000")}
}

func newPositionMonitor(g *fakeGateway, orders ...model.SubmittedOrder) *PositionMonitor {
	return NewPositionMonitor(g, posCfg, "e1", longSignal(), orders, d("51000"), d("2550"), t0, nil)
}

func at(n int) time.Time {
	return t0.Add(time.Duration(n) * posCfg.Interval)
}

func TestPositionMonitor_NoFillAllVanished(t *testing.T) {
	ctx := context.Background()
	g := newFakeGateway()
	g.setClosed(model.OrderStatus{ID: "o1", Symbol: "BTC/USDT", State: model.OrderCanceled, Amount: d("0.0024")})
	// o2 在两个视图里都查不到

	m := newPositionMonitor(g, submitted("o1", btcLeg(0, "0.0024")), submitted("o2", btcLeg(1, "0.0016")))
	res, done := m.Step(ctx, at(1))
	if !done || res.Outcome != model.OutcomeNoPosition || res.Err != nil {
		t.Fatalf("expected no_position without error, got %+v", res)
	}
	if g.count("InstallTrailingStop") != 0 || g.count("GetPosition") != 0 {
		t.Fatalf("no position query or trailing stop expected")
	}
	if m.State() != PositionDone || m.Trailing().Installed {
		t.Fatalf("state %s installed %v", m.State(), m.Trailing().Installed)
	}
}

func TestPositionMonitor_WaitsWhileOrdersOpen(t *testing.T) {
	ctx := context.Background()
	g := newFakeGateway()
	g.setOpen(model.OrderStatus{ID: "o1", Symbol: "BTC/USDT", State: model.OrderOpen, Amount: d("0.0024")})

	m := newPositionMonitor(g, submitted("o1", btcLeg(0, "0.0024")))
	for n := 1; n <= 5; n++ {
		if _, done := m.Step(ctx, at(n)); done {
			t.Fatalf("must keep waiting while the order rests")
		}
	}
	if m.State() != PositionAwaiting || g.count("GetPosition") != 0 {
		t.Fatalf("state %s, position queries %d", m.State(), g.count("GetPosition"))
	}
}

func TestPositionMonitor_InstallsTrailingStopOnce(t *testing.T) {
	ctx := context.Background()
	g := newFakeGateway()
	g.setOpen(model.OrderStatus{ID: "o2", Symbol: "BTC/USDT", State: model.OrderOpen, Amount: d("0.0016")})
	g.setPosition(d("0.0024"))

	m := newPositionMonitor(g, submitted("o1", btcLeg(0, "0.0024")), submitted("o2", btcLeg(1, "0.0016")))
	m.NotifyFill(model.OrderStatus{ID: "o1"})
	m.NotifyFill(model.OrderStatus{ID: "o1"})

	res, done := m.Step(ctx, at(1))
	if !done || res.Outcome != model.OutcomeTrailingInstalled {
		t.Fatalf("expected trailing_installed, got %+v", res)
	}
	if len(g.trailing) != 1 {
		t.Fatalf("expected one trailing stop, got %d", len(g.trailing))
	}
	req := g.trailing[0]
	if req.Side != model.Long || !req.Size.Equal(d("0.0024")) ||
		!req.ActivationPrice.Equal(d("51000")) || !req.Distance.Equal(d("2550")) {
		t.Fatalf("unexpected trailing request %+v", req)
	}

	if _, done := m.Step(ctx, at(2)); !done {
		t.Fatalf("done monitor must stay done")
	}
	if g.count("InstallTrailingStop") != 1 {
		t.Fatalf("trailing stop installed more than once")
	}
}

func TestPositionMonitor_FillFoundInClosedView(t *testing.T) {
	ctx := context.Background()
	g := newFakeGateway()
	g.setClosed(model.OrderStatus{ID: "o1", Symbol: "BTC/USDT", State: model.OrderFilled, Amount: d("0.0024"), Filled: d("0.0024")})
	g.setPosition(d("0.0024"))

	m := newPositionMonitor(g, submitted("o1", btcLeg(0, "0.0024")))
	res, done := m.Step(ctx, at(1))
	if !done || res.Outcome != model.OutcomeTrailingInstalled {
		t.Fatalf("expected trailing_installed, got %+v", res)
	}
}

func TestPositionMonitor_Flattened(t *testing.T) {
	ctx := context.Background()
	g := newFakeGateway()
	g.setClosed(model.OrderStatus{ID: "o1", Symbol: "BTC/USDT", State: model.OrderFilled, Amount: d("0.0024"), Filled: d("0.0024")})

	m := newPositionMonitor(g, submitted("o1", btcLeg(0, "0.0024")))
	m.NotifyFill(model.OrderStatus{ID: "o1"})
	for n := 1; n < flatConfirmPolls; n++ {
		if _, done := m.Step(ctx, at(n)); done {
			t.Fatalf("flat position needs %d confirmations", flatConfirmPolls)
		}
	}
	res, done := m.Step(ctx, at(flatConfirmPolls))
	if !done || res.Outcome != model.OutcomeFlattened {
		t.Fatalf("expected flattened, got %+v", res)
	}
	if g.count("InstallTrailingStop") != 0 {
		t.Fatalf("no trailing stop for a flat position")
	}
}

func TestPositionMonitor_WaitTimeout(t *testing.T) {
	g := newFakeGateway()
	g.setOpen(model.OrderStatus{ID: "o1", Symbol: "BTC/USDT", State: model.OrderOpen})
	m := newPositionMonitor(g, submitted("o1", btcLeg(0, "0.0024")))

	res, done := m.Step(context.Background(), t0.Add(posCfg.WaitTimeout+time.Second))
	if !done || res.Outcome != model.OutcomeGaveUp || !errors.Is(res.Err, model.ErrGaveUp) {
		t.Fatalf("expected gave up, got %+v", res)
	}
}

func TestPositionMonitor_TransientErrors(t *testing.T) {
	ctx := context.Background()
	g := newFakeGateway()
	g.setPosition(d("0.0024"))
	for i := 0; i <= posCfg.MaxRetries; i++ {
		g.positionErrs = append(g.positionErrs, transient("position"))
	}
	m := newPositionMonitor(g, submitted("o1", btcLeg(0, "0.0024")))
	m.NotifyFill(model.OrderStatus{ID: "o1"})

	for n := 1; n <= posCfg.MaxRetries; n++ {
		if _, done := m.Step(ctx, at(n)); done {
			t.Fatalf("gave up too early at step %d", n)
		}
		if got, want := linearBackoff(posCfg.Interval, m.failures), posCfg.Interval*time.Duration(n); got != want {
			t.Fatalf("backoff after %d failures = %s, want %s", n, got, want)
		}
	}
	res, done := m.Step(ctx, at(posCfg.MaxRetries+1))
	if !done || res.Outcome != model.OutcomeGaveUp {
		t.Fatalf("expected gave up, got %+v", res)
	}
}

func TestPositionMonitor_TrailingRejected(t *testing.T) {
	g := newFakeGateway()
	g.setPosition(d("0.0024"))
	g.trailingErrs = []error{rejection("callback spread out of range")}
	m := newPositionMonitor(g, submitted("o1", btcLeg(0, "0.0024")))
	m.NotifyFill(model.OrderStatus{ID: "o1"})

	res, done := m.Step(context.Background(), at(1))
	if !done || res.Outcome != model.OutcomeFailed || !errors.Is(res.Err, model.ErrVenueRejection) {
		t.Fatalf("expected failed with rejection, got %+v", res)
	}
}
