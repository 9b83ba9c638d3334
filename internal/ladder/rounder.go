package ladder

import "github.com/shopspring/decimal"

// Rounder 交易所的数量/价格精度
type Rounder interface {
	RoundQuantity(symbol string, v decimal.Decimal) decimal.Decimal
	RoundPrice(symbol string, v decimal.Decimal) decimal.Decimal
}

// PrecisionRounder 按小数位取整：数量向下截断，价格四舍五入
type PrecisionRounder struct {
	QtyPlaces   int32
	PricePlaces int32
	// 按交易对覆盖，未配置时使用默认精度
	Symbols map[string][2]int32
}

func (r PrecisionRounder) places(symbol string) (int32, int32) {
	if p, ok := r.Symbols[symbol]; ok {
		return p[0], p[1]
	}
	return r.QtyPlaces, r.PricePlaces
}

func (r PrecisionRounder) RoundQuantity(symbol string, v decimal.Decimal) decimal.Decimal {
	q, _ := r.places(symbol)
	return v.Truncate(q)
}

func (r PrecisionRounder) RoundPrice(symbol string, v decimal.Decimal) decimal.Decimal {
	_, p := r.places(symbol)
	return v.Round(p)
}

// FloorToStep 数量按步长向下取整，step 非正时原样返回
func FloorToStep(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Floor().Mul(step)
}

// RoundToStep 价格按步长四舍五入
func RoundToStep(v, step decimal.Decimal) decimal.Decimal {
	if !step.IsPositive() {
		return v
	}
	return v.Div(step).Round(0).Mul(step)
}
