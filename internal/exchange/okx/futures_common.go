package okx

import (
	"bracketflow/internal/model"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	goexmodel "github.com/nntaoli-project/goex/v2/model"
	"github.com/shopspring/decimal"
)

// 保证金模式
const (
	MarginCross    = "cross"
	MarginIsolated = "isolated"
)

// SetLeverage 设置合约杠杆
// marginMode 为 isolated 时必须指定 posSide
func (c *Client) SetLeverage(symbol string, leverage int, marginMode string, posSide model.Side) error {
	if marginMode != MarginIsolated && marginMode != MarginCross {
		return fmt.Errorf("%w: margin mode %q", model.ErrConfiguration, marginMode)
	}

	opts := []goexmodel.OptionParameter{{Key: "mgnMode", Value: marginMode}}
	if marginMode == MarginIsolated {
		opts = append(opts, goexmodel.OptionParameter{Key: "posSide", Value: string(posSide)})
	}
	resp, err := c.api.SetLeverage(InstID(symbol), strconv.Itoa(leverage), opts...)
	if err != nil {
		return Classify(resp, err)
	}
	return Classify(resp, nil)
}

// Balance 币种可用余额
func (c *Client) Balance(coin string) (decimal.Decimal, error) {
	accounts, body, err := c.prv.GetAccount(coin)
	if err != nil {
		return decimal.Zero, Classify(body, err)
	}
	acc, ok := accounts[coin]
	if !ok {
		return decimal.Zero, nil
	}
	return decimal.NewFromFloat(acc.AvailableBalance), nil
}

// RawPosition /api/v5/account/positions 的单条数据，pos 为张数
type RawPosition struct {
	InstId  string `json:"instId"`
	PosSide string `json:"posSide"`
	Pos     string `json:"pos"`
	Lever   string `json:"lever"`
	MgnMode string `json:"mgnMode"`
	AvgPx   string `json:"avgPx"`
}

// Positions 只有合约可以获取持仓数据
func (c *Client) Positions(symbol string) ([]RawPosition, error) {
	pair, err := c.pair(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrVenueRejection, err)
	}
	_, body, err := c.api.GetPositions(pair)
	if err != nil {
		return nil, Classify(body, err)
	}
	return DecodePositions(body)
}

func DecodePositions(body []byte) ([]RawPosition, error) {
	var resp struct {
		Code string        `json:"code"`
		Msg  string        `json:"msg"`
		Data []RawPosition `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode okx positions: %v", model.ErrVenueTransient, err)
	}
	if resp.Code != codeOK {
		return nil, classifyCode(resp.Code, resp.Msg)
	}
	return resp.Data, nil
}

// NetContracts 双向持仓下 long 为正、short 为负，单向持仓 pos 自带符号
func NetContracts(positions []RawPosition) (net decimal.Decimal, lever int) {
	for _, p := range positions {
		pos, err := decimal.NewFromString(zeroIfEmpty(p.Pos))
		if err != nil || pos.IsZero() {
			continue
		}
		switch p.PosSide {
		case "long":
			net = net.Add(pos.Abs())
		case "short":
			net = net.Sub(pos.Abs())
		default:
			net = net.Add(pos)
		}
		if l, err := strconv.Atoi(p.Lever); err == nil {
			lever = l
		}
	}
	return net, lever
}

// TrailingStop 追踪止损委托 move_order_stop，sz 为张数
func (c *Client) TrailingStop(req model.TrailingStopRequest, contracts decimal.Decimal, tdMode string) (string, error) {
	params := url.Values{}
	params.Set("instId", InstID(req.Symbol))
	params.Set("tdMode", tdMode)
	params.Set("side", string(req.Side.Opposite().OrderSide()))
	params.Set("posSide", string(req.Side))
	params.Set("ordType", "move_order_stop")
	params.Set("sz", contracts.String())
	params.Set("callbackSpread", req.Distance.String())
	params.Set("activePx", req.ActivationPrice.String())
	params.Set("reduceOnly", "true")

	body, err := c.doAuth(http.MethodPost, "/api/v5/trade/order-algo", params)
	if err != nil {
		return "", err
	}
	item, err := DecodeItem(body)
	if err != nil {
		return "", err
	}
	return item.AlgoId, nil
}
