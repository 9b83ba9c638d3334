package ladder

import (
	"bracketflow/internal/model"
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

var btcRounder = PrecisionRounder{QtyPlaces: 4, PricePlaces: 2}

func roi(v string) *decimal.Decimal {
	x := d(v)
	return &x
}

func scenarioSignal() model.TradeSignal {
	return model.TradeSignal{Symbol: "BTC/USDT", Side: model.Long, Leverage: 10, EntryPrice: d("50000")}
}

func scenarioLevels() model.LevelConfig {
	return model.LevelConfig{
		{QtyPct: d("0.6"), ROITakeProfit: roi("10"), ROIStopLoss: d("-5")},
		{QtyPct: d("0.4"), ROITakeProfit: roi("20"), ROIStopLoss: d("-8")},
	}
}

func TestTotalSize(t *testing.T) {
	total, err := TotalSize("BTC/USDT", d("1000"), d("0.02"), 10, d("50000"), btcRounder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !total.Equal(d("0.004")) {
		t.Fatalf("got %s", total)
	}

	_, err = TotalSize("BTC/USDT", d("1"), d("0.02"), 1, d("50000"), btcRounder)
	if !errors.Is(err, model.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestPlanner_Scenario(t *testing.T) {
	p := NewPlanner(btcRounder)
	legs, err := p.Plan(scenarioSignal(), scenarioLevels(), d("0.004"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}

	first, second := legs[0], legs[1]
	if first.Level != 0 || second.Level != 1 {
		t.Fatalf("legs out of ladder order: %d %d", first.Level, second.Level)
	}
	if !first.Quantity.Equal(d("0.0024")) || !second.Quantity.Equal(d("0.0016")) {
		t.Fatalf("quantities %s %s", first.Quantity, second.Quantity)
	}
	if !first.StopLossPrice.Equal(d("49750")) {
		t.Fatalf("leg 1 stop %s", first.StopLossPrice)
	}
	if !second.StopLossPrice.Equal(d("49600")) {
		t.Fatalf("leg 2 stop %s", second.StopLossPrice)
	}
	if first.TakeProfitPrice == nil || !first.TakeProfitPrice.Equal(d("50500")) {
		t.Fatalf("leg 1 take profit %v", first.TakeProfitPrice)
	}
	if second.TakeProfitPrice == nil || !second.TakeProfitPrice.Equal(d("51000")) {
		t.Fatalf("leg 2 take profit %v", second.TakeProfitPrice)
	}
	for _, leg := range legs {
		if !leg.LimitPrice.Equal(d("50000")) || leg.Side != model.Long || leg.Symbol != "BTC/USDT" {
			t.Fatalf("unexpected leg %+v", leg)
		}
	}
}

func TestPlanner_Idempotent(t *testing.T) {
	p := NewPlanner(btcRounder)
	sig := model.TradeSignal{Symbol: "ETH/USDT", Side: model.Short, Leverage: 20, EntryPrice: d("3099.87")}
	levels := model.LevelConfig{
		{QtyPct: d("0.2"), ROITakeProfit: roi("100"), ROIStopLoss: d("-150")},
		{QtyPct: d("0.3"), ROITakeProfit: roi("80"), ROIStopLoss: d("-100")},
		{QtyPct: d("0.5"), ROITakeProfit: roi("60"), ROIStopLoss: d("-50")},
	}
	a, err := p.Plan(sig, levels, d("1.2345"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := p.Plan(sig, levels, d("1.2345"))
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("plans differ:\n%+v\n%+v", a, b)
	}
}

func TestPlanner_NoTakeProfitTier(t *testing.T) {
	p := NewPlanner(btcRounder)
	levels := model.LevelConfig{
		{QtyPct: d("0.5"), ROITakeProfit: roi("10"), ROIStopLoss: d("-5")},
		{QtyPct: d("0.5"), ROIStopLoss: d("-8")},
	}
	legs, err := p.Plan(scenarioSignal(), levels, d("0.004"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if legs[1].TakeProfitPrice != nil {
		t.Fatalf("tier without roi_tp must not carry take-profit")
	}
}

func TestPlanner_SkipsZeroLegs(t *testing.T) {
	p := NewPlanner(btcRounder)
	// 0.0001 × 0.6 截断为 0，只剩最后一档
	legs, err := p.Plan(scenarioSignal(), scenarioLevels(), d("0.0001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(legs) != 1 || legs[0].Level != 1 || !legs[0].Quantity.Equal(d("0.0001")) {
		t.Fatalf("unexpected legs %+v", legs)
	}
}

func TestPlanner_RejectsBadInput(t *testing.T) {
	p := NewPlanner(btcRounder)
	sig := scenarioSignal()
	sig.Side = "both"
	if _, err := p.Plan(sig, scenarioLevels(), d("1")); !errors.Is(err, model.ErrInvalidSide) {
		t.Fatalf("expected ErrInvalidSide, got %v", err)
	}

	bad := model.LevelConfig{{QtyPct: d("0.9"), ROIStopLoss: d("-5")}}
	if _, err := p.Plan(scenarioSignal(), bad, d("1")); !errors.Is(err, model.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestPlanner_Trailing(t *testing.T) {
	p := NewPlanner(btcRounder)
	sig := scenarioSignal()
	activation, err := p.ReferenceTakeProfit(sig, scenarioLevels(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !activation.Equal(d("51000")) {
		t.Fatalf("activation %s", activation)
	}
	// 51000 × (1 − 50/1000) = 48450
	dist, err := p.TrailingDistance(sig, activation, d("-50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dist.Equal(d("2550")) {
		t.Fatalf("distance %s", dist)
	}

	short := sig
	short.Side = model.Short
	dist, _ = p.TrailingDistance(short, d("49000"), d("-50"))
	if !dist.Equal(d("2450")) {
		t.Fatalf("short distance %s", dist)
	}
}
