package okx

import (
	"bracketflow/internal/model"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	goexmodel "github.com/nntaoli-project/goex/v2/model"
	"github.com/shopspring/decimal"
)

// CreateOrder 限价开仓，contracts 为张数，由调用方按 ctVal 从币数换算
// okx v5 要求带止盈止损的开单放在 attachAlgoOrds 数组中，-1 表示触发后市价成交
func (c *Client) CreateOrder(req model.OrderRequest, contracts decimal.Decimal, tdMode string) (string, error) {
	pair, err := c.pair(req.Symbol)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrVenueRejection, err)
	}

	var side goexmodel.OrderSide
	switch req.Side {
	case model.Buy:
		side = goexmodel.Futures_OpenBuy
	case model.Sell:
		side = goexmodel.Futures_OpenSell
	default:
		return "", fmt.Errorf("%w: order side %q", model.ErrInvalidSide, req.Side)
	}

	var opts []goexmodel.OptionParameter
	attach := make(map[string]string)
	if req.TakeProfit != nil {
		attach["tpTriggerPx"] = req.TakeProfit.String()
		attach["tpOrdPx"] = "-1"
	}
	if req.StopLoss != nil {
		attach["slTriggerPx"] = req.StopLoss.String()
		attach["slOrdPx"] = "-1"
	}
	if len(attach) > 0 {
		raw, err := json.Marshal([]map[string]string{attach})
		if err != nil {
			return "", err
		}
		opts = append(opts, goexmodel.OptionParameter{Key: "attachAlgoOrds", Value: string(raw)})
	}
	opts = append(opts,
		goexmodel.OptionParameter{Key: "tdMode", Value: tdMode},
		goexmodel.OptionParameter{Key: "posSide", Value: string(req.PosSide)},
		goexmodel.OptionParameter{Key: "clOrdId", Value: req.ClientOrderID},
	)

	created, body, err := c.prv.CreateOrder(pair, contracts.InexactFloat64(), req.Price.InexactFloat64(),
		side, goexmodel.OrderType_Limit, opts...)
	if err != nil {
		return "", Classify(body, err)
	}
	return created.Id, nil
}

// CancelOrder 撤单，订单已成交或已撤销时返回 51400 类业务错误
func (c *Client) CancelOrder(symbol, orderID string) error {
	params := url.Values{}
	params.Set("instId", InstID(symbol))
	params.Set("ordId", orderID)
	body, err := c.doAuth(http.MethodPost, "/api/v5/trade/cancel-order", params)
	if err != nil {
		return err
	}
	_, err = DecodeItem(body)
	return err
}

// PendingOrders 当前挂单视图
func (c *Client) PendingOrders(symbol string) ([]RawOrder, error) {
	params := url.Values{}
	params.Set("instType", "SWAP")
	params.Set("instId", InstID(symbol))
	body, err := c.doAuth(http.MethodGet, "/api/v5/trade/orders-pending", params)
	if err != nil {
		return nil, err
	}
	return DecodeOrders(body)
}

// OrderInfo 单个订单详情，已完成订单也能查到
func (c *Client) OrderInfo(symbol, orderID string) (RawOrder, error) {
	params := url.Values{}
	params.Set("instId", InstID(symbol))
	params.Set("ordId", orderID)
	body, err := c.doAuth(http.MethodGet, "/api/v5/trade/order", params)
	if err != nil {
		return RawOrder{}, err
	}
	orders, err := DecodeOrders(body)
	if err != nil {
		return RawOrder{}, err
	}
	if len(orders) == 0 {
		return RawOrder{}, fmt.Errorf("%w: %s", model.ErrOrderNotFound, orderID)
	}
	return orders[0], nil
}
