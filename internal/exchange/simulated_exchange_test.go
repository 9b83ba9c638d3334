package exchange

import (
	"bracketflow/internal/ladder"
	"bracketflow/internal/model"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var _ Gateway = (*SimulatedExchange)(nil)
var _ Gateway = (*OkxGateway)(nil)

func newSim() *SimulatedExchange {
	return NewSimulatedExchange(ladder.PrecisionRounder{QtyPlaces: 4, PricePlaces: 2})
}

func limitBuy(client string) model.OrderRequest {
	return model.OrderRequest{
		ClientOrderID: client,
		Symbol:        "BTC/USDT",
		Side:          model.Buy,
		PosSide:       model.Long,
		Quantity:      decimal.RequireFromString("0.0024"),
		Price:         decimal.RequireFromString("50000"),
	}
}

func TestSimulatedExchange_FillByMarkPrice(t *testing.T) {
	ctx := context.Background()
	s := newSim()

	id, err := s.SubmitOrder(ctx, limitBuy("c1"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st, err := s.GetOpenOrder(ctx, "BTC/USDT", id); err != nil || st.State != model.OrderOpen {
		t.Fatalf("expected open order, got %v %v", st, err)
	}

	// 价格在挂单价之上，不成交
	s.SetMarkPrice("BTC/USDT", decimal.RequireFromString("50100"))
	if _, err := s.GetOpenOrder(ctx, "BTC/USDT", id); err != nil {
		t.Fatalf("order should still be open: %v", err)
	}

	s.SetMarkPrice("BTC/USDT", decimal.RequireFromString("49990"))
	if _, err := s.GetOpenOrder(ctx, "BTC/USDT", id); !errors.Is(err, model.ErrOrderNotFound) {
		t.Fatalf("filled order must leave the open view, got %v", err)
	}
	st, err := s.GetClosedOrder(ctx, "BTC/USDT", id)
	if err != nil || st.State != model.OrderFilled || !st.HasFill() {
		t.Fatalf("expected filled, got %+v %v", st, err)
	}
	pos, _ := s.GetPosition(ctx, "BTC/USDT")
	if !pos.NetContracts.Equal(decimal.RequireFromString("0.0024")) {
		t.Fatalf("position %s", pos.NetContracts)
	}

	if err := s.CancelOrder(ctx, "BTC/USDT", id); !errors.Is(err, model.ErrVenueRejection) {
		t.Fatalf("cancel after fill should be rejected, got %v", err)
	}
}

func TestSimulatedExchange_ClientOrderIDDedup(t *testing.T) {
	ctx := context.Background()
	s := newSim()
	a, _ := s.SubmitOrder(ctx, limitBuy("same"))
	b, _ := s.SubmitOrder(ctx, limitBuy("same"))
	if a != b {
		t.Fatalf("resubmission created a second order: %s %s", a, b)
	}
	orders, _ := s.ListOpenOrders(ctx, "BTC/USDT")
	if len(orders) != 1 {
		t.Fatalf("expected 1 open order, got %d", len(orders))
	}
}

func TestSimulatedExchange_Cancel(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSimulatedExchange(ladder.PrecisionRounder{QtyPlaces: 4, PricePlaces: 2}, WithClock(func() time.Time { return now }))

	id, _ := s.SubmitOrder(ctx, limitBuy("c1"))
	orders, _ := s.ListOpenOrders(ctx, "BTC/USDT")
	if len(orders) != 1 || !orders[0].CreatedAt.Equal(now) {
		t.Fatalf("unexpected open orders %+v", orders)
	}
	if err := s.CancelOrder(ctx, "BTC/USDT", id); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	st, err := s.GetClosedOrder(ctx, "BTC/USDT", id)
	if err != nil || st.State != model.OrderCanceled || st.HasFill() {
		t.Fatalf("expected canceled, got %+v %v", st, err)
	}
	if err := s.CancelOrder(ctx, "BTC/USDT", "missing"); !errors.Is(err, model.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestSimulatedExchange_AutoFillShort(t *testing.T) {
	ctx := context.Background()
	s := NewSimulatedExchange(ladder.PrecisionRounder{QtyPlaces: 4, PricePlaces: 2}, WithAutoFill())
	req := limitBuy("s1")
	req.Side = model.Sell
	req.PosSide = model.Short
	if _, err := s.SubmitOrder(ctx, req); err != nil {
		t.Fatalf("submit: %v", err)
	}
	pos, _ := s.GetPosition(ctx, "BTC/USDT")
	if !pos.NetContracts.Equal(decimal.RequireFromString("-0.0024")) {
		t.Fatalf("short position %s", pos.NetContracts)
	}
	s.ClosePosition("BTC/USDT")
	if pos, _ = s.GetPosition(ctx, "BTC/USDT"); pos.IsOpen() {
		t.Fatalf("position should be flat")
	}
}

func TestSimulatedExchange_Rejections(t *testing.T) {
	ctx := context.Background()
	s := newSim()
	bad := limitBuy("z")
	bad.Quantity = decimal.Zero
	if _, err := s.SubmitOrder(ctx, bad); !errors.Is(err, model.ErrVenueRejection) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if err := s.SetLeverage(ctx, "BTC/USDT", 0, model.Long); !errors.Is(err, model.ErrVenueRejection) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if _, err := s.InstallTrailingStop(ctx, model.TrailingStopRequest{Symbol: "BTC/USDT"}); !errors.Is(err, model.ErrVenueRejection) {
		t.Fatalf("expected rejection, got %v", err)
	}
}
