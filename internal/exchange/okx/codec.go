package okx

import (
	"bracketflow/internal/model"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// OKX 的业务错误码
const (
	codeOK            = "0"
	codeOrderNotExist = "51603"
	codeRateLimit     = "50011"
)

// 系统繁忙、超时一类可以重试
var transientCodes = map[string]bool{
	"50001":       true,
	"50004":       true,
	"50013":       true,
	"50026":       true,
	codeRateLimit: true,
}

// OKX 标准返回格式：{"code":"0", "msg":"", "data":[...]}
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// 下单、撤单接口逐条返回 sCode
type itemResult struct {
	OrdId   string `json:"ordId"`
	AlgoId  string `json:"algoId"`
	ClOrdId string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// Classify 把响应体和网络错误归入统一的错误分类
func Classify(body []byte, err error) error {
	var resp apiResponse
	if len(body) == 0 || json.Unmarshal(body, &resp) != nil || resp.Code == "" {
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrVenueTransient, err)
		}
		return nil
	}
	code, msg := resp.Code, resp.Msg
	if code != codeOK {
		var items []itemResult
		if json.Unmarshal(resp.Data, &items) == nil {
			for _, it := range items {
				if it.SCode != "" && it.SCode != codeOK {
					code, msg = it.SCode, it.SMsg
					break
				}
			}
		}
	}
	if code == codeOK {
		if err != nil {
			return fmt.Errorf("%w: %v", model.ErrVenueTransient, err)
		}
		return nil
	}
	return classifyCode(code, msg)
}

func classifyCode(code, msg string) error {
	switch {
	case code == codeOrderNotExist:
		return fmt.Errorf("%w: okx %s %s", model.ErrOrderNotFound, code, msg)
	case transientCodes[code]:
		return fmt.Errorf("%w: okx %s %s", model.ErrVenueTransient, code, msg)
	default:
		return fmt.Errorf("%w: okx %s %s", model.ErrVenueRejection, code, msg)
	}
}

// RawOrder /api/v5/trade/order 与 orders-pending 的单条数据
type RawOrder struct {
	InstId    string `json:"instId"`
	OrdId     string `json:"ordId"`
	ClOrdId   string `json:"clOrdId"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	AccFillSz string `json:"accFillSz"`
	State     string `json:"state"`
	Side      string `json:"side"`
	PosSide   string `json:"posSide"`
	CTime     string `json:"cTime"`
}

// State OKX 订单状态 -> 内部状态
func (o RawOrder) orderState() model.OrderState {
	switch strings.ToLower(o.State) {
	case "live":
		return model.OrderOpen
	case "partially_filled":
		return model.OrderPartiallyFilled
	case "filled":
		return model.OrderFilled
	case "canceled", "mmp_canceled":
		return model.OrderCanceled
	default:
		return model.OrderRejected
	}
}

// Status 张数按合约面值换算成币数量，ctVal 为 0 时按 1 处理
func (o RawOrder) Status(symbol string, ctVal decimal.Decimal) model.OrderStatus {
	if !ctVal.IsPositive() {
		ctVal = decimal.NewFromInt(1)
	}
	sz, _ := decimal.NewFromString(zeroIfEmpty(o.Sz))
	filled, _ := decimal.NewFromString(zeroIfEmpty(o.AccFillSz))
	return model.OrderStatus{
		ID:        o.OrdId,
		Symbol:    symbol,
		State:     o.orderState(),
		Amount:    sz.Mul(ctVal),
		Filled:    filled.Mul(ctVal),
		CreatedAt: time.UnixMilli(cast.ToInt64(o.CTime)),
	}
}

func zeroIfEmpty(s string) string {
	if s == "" {
		return "0"
	}
	return s
}

// DecodeOrders 解析订单列表响应
func DecodeOrders(body []byte) ([]RawOrder, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode okx orders: %v", model.ErrVenueTransient, err)
	}
	if resp.Code != codeOK {
		return nil, classifyCode(resp.Code, resp.Msg)
	}
	var orders []RawOrder
	if len(resp.Data) == 0 {
		return orders, nil
	}
	if err := json.Unmarshal(resp.Data, &orders); err != nil {
		return nil, fmt.Errorf("%w: decode okx orders data: %v", model.ErrVenueTransient, err)
	}
	return orders, nil
}

// DecodeItem 解析下单类接口返回的第一条结果
func DecodeItem(body []byte) (itemResult, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return itemResult{}, fmt.Errorf("%w: decode okx result: %v", model.ErrVenueTransient, err)
	}
	var items []itemResult
	if err := json.Unmarshal(resp.Data, &items); err != nil || len(items) == 0 {
		return itemResult{}, fmt.Errorf("%w: empty okx result", model.ErrVenueTransient)
	}
	if items[0].SCode != "" && items[0].SCode != codeOK {
		return items[0], classifyCode(items[0].SCode, items[0].SMsg)
	}
	return items[0], nil
}

// RawInstrument /api/v5/public/instruments 的单条数据
type RawInstrument struct {
	InstId   string `json:"instId"`
	InstType string `json:"instType"`
	State    string `json:"state"`
	TickSz   string `json:"tickSz"` // 价格步长
	LotSz    string `json:"lotSz"`  // 下单张数步长
	MinSz    string `json:"minSz"`
	CtVal    string `json:"ctVal"` // 每张合约代表多少币
}

// Precision 价格步长与币数量步长
type Precision struct {
	PriceStep decimal.Decimal
	QtyStep   decimal.Decimal
	CtVal     decimal.Decimal
}

func (r RawInstrument) Precision() (Precision, error) {
	tick, err := decimal.NewFromString(r.TickSz)
	if err != nil {
		return Precision{}, fmt.Errorf("tickSz %q: %w", r.TickSz, err)
	}
	lot, err := decimal.NewFromString(zeroIfEmpty(r.LotSz))
	if err != nil {
		return Precision{}, fmt.Errorf("lotSz %q: %w", r.LotSz, err)
	}
	ct, err := decimal.NewFromString(zeroIfEmpty(r.CtVal))
	if err != nil || !ct.IsPositive() {
		ct = decimal.NewFromInt(1)
	}
	if !lot.IsPositive() {
		lot = decimal.NewFromInt(1)
	}
	return Precision{PriceStep: tick, QtyStep: lot.Mul(ct), CtVal: ct}, nil
}
