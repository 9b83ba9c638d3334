package model

import "github.com/shopspring/decimal"

// Position 交易所的净持仓视图，只读
type Position struct {
	Symbol       string
	NetContracts decimal.Decimal // 多头为正，空头为负
	Leverage     int
}

func (p *Position) IsOpen() bool {
	return p != nil && !p.NetContracts.IsZero()
}

// TrailingStopState 每次执行最多创建一次
type TrailingStopState struct {
	ActivationPrice  decimal.Decimal
	TrailingDistance decimal.Decimal
	Installed        bool
}

// TrailingStopRequest 追踪止损下单参数，Side 为持仓方向
type TrailingStopRequest struct {
	Symbol          string
	Side            Side
	Size            decimal.Decimal
	ActivationPrice decimal.Decimal
	Distance        decimal.Decimal
}
