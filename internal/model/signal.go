package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Side 持仓方向
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// ParseSide 兼容 long/short 与 buy/sell 两种写法
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

func (s Side) Valid() bool {
	return s == Long || s == Short
}

// OrderSide 开仓的下单方向
func (s Side) OrderSide() OrderSide {
	if s == Short {
		return Sell
	}
	return Buy
}

func (s Side) Opposite() Side {
	if s == Short {
		return Long
	}
	return Short
}

/*
TradeSignal 由信号源解析好的交易信号，本系统不做文本解析

	{
	  "symbol": "BTC/USDT",
	  "side": "long",
	  "leverage": 10,
	  "entry_price": "50000"
	}
*/
type TradeSignal struct {
	Symbol     string
	Side       Side
	Leverage   int
	EntryPrice decimal.Decimal
}

func (s TradeSignal) Validate() error {
	if !s.Side.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSide, s.Side)
	}
	if s.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSignal)
	}
	if s.Leverage <= 0 {
		return fmt.Errorf("%w: leverage %d", ErrInvalidSignal, s.Leverage)
	}
	if !s.EntryPrice.IsPositive() {
		return fmt.Errorf("%w: entry price %s", ErrInvalidSignal, s.EntryPrice)
	}
	return nil
}

// QuoteCurrency BTC/USDT -> USDT，BTC/USDT:USDT -> USDT
func (s TradeSignal) QuoteCurrency() string {
	idx := strings.Index(s.Symbol, "/")
	if idx < 0 {
		return ""
	}
	quote := s.Symbol[idx+1:]
	if i := strings.Index(quote, ":"); i >= 0 {
		quote = quote[:i]
	}
	return strings.ToUpper(quote)
}

func (s TradeSignal) String() string {
	return fmt.Sprintf("%s %s x%d @%s", s.Symbol, s.Side, s.Leverage, s.EntryPrice)
}
