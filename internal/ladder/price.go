package ladder

import (
	"bracketflow/internal/model"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Price 根据收益率、杠杆和方向换算目标价格
//
//	多头: entry × (1 + roi/(100×leverage))
//	空头: entry × (1 − roi/(100×leverage))
//
// roi 可正可负，负数用于计算止损价
func Price(entry, roi decimal.Decimal, leverage int, side model.Side) (decimal.Decimal, error) {
	if leverage <= 0 {
		return decimal.Zero, fmt.Errorf("%w: leverage %d", model.ErrInvalidSignal, leverage)
	}
	ratio := roi.Div(hundred.Mul(decimal.NewFromInt(int64(leverage))))
	switch side {
	case model.Long:
		return entry.Mul(one.Add(ratio)), nil
	case model.Short:
		return entry.Mul(one.Sub(ratio)), nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q, use long or short", model.ErrInvalidSide, side)
	}
}
