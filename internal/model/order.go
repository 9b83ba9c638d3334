package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// OrderLeg 一档计划中的挂单，由 Ladder Planner 生成
type OrderLeg struct {
	Level           int // 在档位配置中的下标
	Symbol          string
	Side            Side
	Quantity        decimal.Decimal
	LimitPrice      decimal.Decimal
	StopLossPrice   decimal.Decimal
	TakeProfitPrice *decimal.Decimal
}

// OrderRequest 提交给交易所网关的下单参数
type OrderRequest struct {
	ClientOrderID string
	Symbol        string
	Side          OrderSide
	PosSide       Side
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	StopLoss      *decimal.Decimal
	TakeProfit    *decimal.Decimal
}

// NewOrderRequest 按档位生成限价开仓单，止损止盈随单附带
func NewOrderRequest(leg OrderLeg, clientOrderID string) OrderRequest {
	sl := leg.StopLossPrice
	return OrderRequest{
		ClientOrderID: clientOrderID,
		Symbol:        leg.Symbol,
		Side:          leg.Side.OrderSide(),
		PosSide:       leg.Side,
		Quantity:      leg.Quantity,
		Price:         leg.LimitPrice,
		StopLoss:      &sl,
		TakeProfit:    leg.TakeProfitPrice,
	}
}

// SubmittedOrder 已被交易所接受的挂单
type SubmittedOrder struct {
	VenueOrderID  string
	ClientOrderID string
	Leg           OrderLeg
	SubmittedAt   time.Time
}

type OrderState string

const (
	OrderOpen            OrderState = "open"
	OrderPartiallyFilled OrderState = "partially_filled"
	OrderFilled          OrderState = "filled"
	OrderCanceled        OrderState = "canceled"
	OrderExpired         OrderState = "expired"
	OrderRejected        OrderState = "rejected"
	// 不是终态，需要回查历史订单
	OrderNotFound OrderState = "not_found"
)

func (s OrderState) Terminal() bool {
	switch s {
	case OrderFilled, OrderCanceled, OrderExpired, OrderRejected:
		return true
	}
	return false
}

// Working 仍在交易所挂着
func (s OrderState) Working() bool {
	return s == OrderOpen || s == OrderPartiallyFilled
}

type OrderStatus struct {
	ID        string
	Symbol    string
	State     OrderState
	Amount    decimal.Decimal
	Filled    decimal.Decimal
	CreatedAt time.Time
}

func (s OrderStatus) HasFill() bool {
	return s.Filled.IsPositive()
}

// OrderRecord 下单流水，只用于审计，重启后不会重新加载
type OrderRecord struct {
	ID            uint           `gorm:"column:id;primary_key;" json:"id"`
	ExecutionID   string         `gorm:"column:execution_id;type:varchar(32);index" json:"execution_id"`
	OrderId       string         `gorm:"column:order_id;type:varchar(64);index" json:"order_id"`
	ClientOrderID string         `gorm:"column:client_order_id;type:varchar(64)" json:"client_order_id"`
	Symbol        string         `gorm:"column:symbol;type:varchar(30)" json:"symbol"`
	Side          Side           `gorm:"column:side;type:varchar(10)" json:"side"`
	Level         int            `gorm:"column:level" json:"level"`
	Price         string         `gorm:"column:price;type:decimal(24,10)" json:"price"`
	Quantity      string         `gorm:"column:quantity;type:decimal(24,10)" json:"quantity"`
	SL            string         `gorm:"column:sl;type:decimal(24,10)" json:"sl"`
	TP            string         `gorm:"column:tp;type:decimal(24,10)" json:"tp"`
	State         string         `gorm:"column:state;type:varchar(20)" json:"state"`
	PositionState string         `gorm:"column:position_state;type:varchar(20)" json:"position_state"`
	Extras        datatypes.JSON `gorm:"column:extras;type:json" json:"extras"`
	CreatedAt     time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (OrderRecord) TableName() string {
	return "order_record"
}

// NewOrderRecord 由已提交的挂单生成流水
func NewOrderRecord(executionID string, o SubmittedOrder) *OrderRecord {
	r := &OrderRecord{
		ExecutionID:   executionID,
		OrderId:       o.VenueOrderID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Leg.Symbol,
		Side:          o.Leg.Side,
		Level:         o.Leg.Level,
		Price:         o.Leg.LimitPrice.String(),
		Quantity:      o.Leg.Quantity.String(),
		SL:            o.Leg.StopLossPrice.String(),
		State:         string(OrderOpen),
		CreatedAt:     o.SubmittedAt,
		UpdatedAt:     o.SubmittedAt,
	}
	if o.Leg.TakeProfitPrice != nil {
		r.TP = o.Leg.TakeProfitPrice.String()
	} else {
		r.TP = "0"
	}
	return r
}
