package okx

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	goexv2 "github.com/nntaoli-project/goex/v2"
	"github.com/nntaoli-project/goex/v2/model"
	"github.com/nntaoli-project/goex/v2/okx/futures"
	"github.com/nntaoli-project/goex/v2/options"
)

// Client OKX 永续合约私有接口的薄封装，只处理协议，不做重试和限频
type Client struct {
	pub goexv2.IPubRest
	prv goexv2.IPrvRest
	api *futures.PrvApi

	mu    sync.RWMutex
	pairs map[string]model.CurrencyPair
}

// NewClient okxv5 如果要使用模拟盘，需要在模拟交易下创建 apikey，并设置 x-simulated-trading
func NewClient(apiKey, secretKey, passphrase string, simulated bool) (*Client, error) {
	if simulated {
		goexv2.DefaultHttpCli.SetHeaders("x-simulated-trading", "1")
	}
	opts := []options.ApiOption{
		options.WithApiKey(apiKey),
		options.WithApiSecretKey(secretKey),
		options.WithPassphrase(passphrase),
	}

	pub := goexv2.OKx.Swap
	var prv goexv2.IPrvRest = pub.NewPrvApi(opts...)
	api, ok := prv.(*futures.PrvApi)
	if !ok {
		return nil, errors.New("okx swap private api is not *futures.PrvApi")
	}
	return &Client{
		pub:   pub,
		prv:   prv,
		api:   api,
		pairs: make(map[string]model.CurrencyPair),
	}, nil
}

// LoadExchangeInfo 测试连接，创建订单前需要先拿到交易对信息
func (c *Client) LoadExchangeInfo() error {
	_, body, err := c.pub.GetExchangeInfo()
	if err != nil {
		return Classify(body, err)
	}
	return nil
}

// InstID "BTC/USDT"、"BTC/USDT:USDT"、"BTC-USDT-SWAP" -> "BTC-USDT-SWAP"
func InstID(symbol string) string {
	base, quote := splitSymbol(symbol)
	return fmt.Sprintf("%s-%s-SWAP", base, quote)
}

func splitSymbol(symbol string) (string, string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "/")
	if len(parts) == 1 {
		parts = strings.Split(s, "-")
	}
	if len(parts) < 2 {
		return s, ""
	}
	return parts[0], parts[1]
}

// pair symbol -> goex 需要的 CurrencyPair，结果缓存
func (c *Client) pair(symbol string) (model.CurrencyPair, error) {
	instID := InstID(symbol)
	c.mu.RLock()
	p, ok := c.pairs[instID]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	base, quote := splitSymbol(symbol)
	p, err := c.pub.NewCurrencyPair(base, quote)
	if err != nil {
		return p, fmt.Errorf("%s: %w", symbol, err)
	}
	c.mu.Lock()
	c.pairs[instID] = p
	c.mu.Unlock()
	return p, nil
}

// doAuth 直接调用 v5 接口，返回完整的响应体
func (c *Client) doAuth(method, path string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s%s", c.api.UriOpts.Endpoint, path)
	if method == http.MethodGet && len(params) > 0 {
		reqURL = reqURL + "?" + params.Encode()
		params = url.Values{}
	}
	_, body, err := c.api.DoAuthRequest(method, reqURL, &params, nil)
	if err != nil {
		return body, Classify(body, err)
	}
	if err := Classify(body, nil); err != nil {
		return body, err
	}
	return body, nil
}
