package ladder

import (
	"bracketflow/internal/model"
	"fmt"

	"github.com/shopspring/decimal"
)

// TotalSize 下单总量 = 可用余额 × 资金占比 × 杠杆 / 入场价，按交易所精度取整
func TotalSize(symbol string, balance, balancePct decimal.Decimal, leverage int, entry decimal.Decimal, r Rounder) (decimal.Decimal, error) {
	if !entry.IsPositive() || leverage <= 0 {
		return decimal.Zero, fmt.Errorf("%w: entry %s leverage %d", model.ErrInvalidSignal, entry, leverage)
	}
	raw := balance.Mul(balancePct).Mul(decimal.NewFromInt(int64(leverage))).Div(entry)
	total := r.RoundQuantity(symbol, raw)
	if !total.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: balance %s sizes to %s", model.ErrInsufficientBalance, balance, total)
	}
	return total, nil
}

// Planner 把信号和档位配置展开成阶梯挂单，不产生任何副作用
type Planner struct {
	rounder Rounder
}

func NewPlanner(r Rounder) *Planner {
	return &Planner{rounder: r}
}

// Plan 按配置顺序输出各档挂单，数量为0的档位会被跳过
func (p *Planner) Plan(sig model.TradeSignal, levels model.LevelConfig, total decimal.Decimal) ([]model.OrderLeg, error) {
	if err := sig.Validate(); err != nil {
		return nil, err
	}
	if err := levels.Validate(); err != nil {
		return nil, err
	}
	quantities, err := Allocate(total, levels.Pcts(), func(v decimal.Decimal) decimal.Decimal {
		return p.rounder.RoundQuantity(sig.Symbol, v)
	})
	if err != nil {
		return nil, err
	}

	legs := make([]model.OrderLeg, 0, len(levels))
	for i, lv := range levels {
		if !quantities[i].IsPositive() {
			continue
		}
		sl, err := Price(sig.EntryPrice, lv.ROIStopLoss, sig.Leverage, sig.Side)
		if err != nil {
			return nil, err
		}
		leg := model.OrderLeg{
			Level:         i,
			Symbol:        sig.Symbol,
			Side:          sig.Side,
			Quantity:      quantities[i],
			LimitPrice:    p.rounder.RoundPrice(sig.Symbol, sig.EntryPrice),
			StopLossPrice: p.rounder.RoundPrice(sig.Symbol, sl),
		}
		if lv.ROITakeProfit != nil {
			tp, err := Price(sig.EntryPrice, *lv.ROITakeProfit, sig.Leverage, sig.Side)
			if err != nil {
				return nil, err
			}
			tp = p.rounder.RoundPrice(sig.Symbol, tp)
			leg.TakeProfitPrice = &tp
		}
		legs = append(legs, leg)
	}
	return legs, nil
}

// ReferenceTakeProfit 参考档位的止盈价，即追踪止损的激活价
// 参考档位即使因为数量为0没有挂出，激活价依然按配置计算
func (p *Planner) ReferenceTakeProfit(sig model.TradeSignal, levels model.LevelConfig, ref int) (decimal.Decimal, error) {
	if err := levels.ValidateReference(ref); err != nil {
		return decimal.Zero, err
	}
	tp, err := Price(sig.EntryPrice, *levels[ref].ROITakeProfit, sig.Leverage, sig.Side)
	if err != nil {
		return decimal.Zero, err
	}
	return p.rounder.RoundPrice(sig.Symbol, tp), nil
}

// TrailingDistance 激活价与按追踪收益率换算出的价格之差，取绝对值
func (p *Planner) TrailingDistance(sig model.TradeSignal, activation, trailingRoi decimal.Decimal) (decimal.Decimal, error) {
	stop, err := Price(activation, trailingRoi, sig.Leverage, sig.Side)
	if err != nil {
		return decimal.Zero, err
	}
	return p.rounder.RoundPrice(sig.Symbol, activation.Sub(stop).Abs()), nil
}
