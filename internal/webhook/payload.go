package webhook

import (
	"bracketflow/internal/model"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

/*
Payload 外部信号源推送的信号，webhook 和 kafka 共用

	{"symbol":"BTC/USDT","side":"long","leverage":10,"entry_price":"50000"}
*/
type Payload struct {
	Symbol     string          `json:"symbol" validate:"required,contains=/"`
	Side       string          `json:"side" validate:"required"`
	Leverage   int             `json:"leverage" validate:"required,gt=0,lte=125"`
	EntryPrice decimal.Decimal `json:"entry_price"`
}

// Decoder 解析并校验信号，可并发使用
type Decoder struct {
	validate *validator.Validate
}

func NewDecoder() *Decoder {
	return &Decoder{validate: validator.New()}
}

// Decode 解析失败返回 ErrInvalidSignal，方向不合法返回 ErrInvalidSide
func (d *Decoder) Decode(body []byte) (model.TradeSignal, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return model.TradeSignal{}, fmt.Errorf("%w: %v", model.ErrInvalidSignal, err)
	}
	if err := d.validate.Struct(p); err != nil {
		return model.TradeSignal{}, fmt.Errorf("%w: %v", model.ErrInvalidSignal, err)
	}
	side, err := model.ParseSide(p.Side)
	if err != nil {
		return model.TradeSignal{}, err
	}
	sig := model.TradeSignal{
		Symbol:     p.Symbol,
		Side:       side,
		Leverage:   p.Leverage,
		EntryPrice: p.EntryPrice,
	}
	if err := sig.Validate(); err != nil {
		return model.TradeSignal{}, err
	}
	return sig, nil
}
