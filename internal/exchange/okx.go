package exchange

import (
	"bracketflow/conf"
	"bracketflow/internal/exchange/okx"
	"bracketflow/internal/ladder"
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	defaultRateLimit = 10
	callTimeout      = 5 * time.Second
)

// OkxGateway OKX 永续合约网关
type OkxGateway struct {
	client  *okx.Client
	public  *okx.PublicClient
	limiter *rate.Limiter
	tdMode  string
	timeout time.Duration

	// 没有加载到交易对精度时使用
	fallback ladder.PrecisionRounder

	mu        sync.RWMutex
	precision map[string]okx.Precision
}

// NewOkxGateway 连接交易所并加载永续合约精度，精度加载失败不影响启动
func NewOkxGateway(ctx context.Context, cfg conf.Okx, marginMode string) (*OkxGateway, error) {
	client, err := okx.NewClient(cfg.ApiKey, cfg.SecretKey, cfg.Password, cfg.Simulated)
	if err != nil {
		return nil, err
	}
	if err := client.LoadExchangeInfo(); err != nil {
		return nil, fmt.Errorf("okx exchange info: %w", err)
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	if marginMode == "" {
		marginMode = okx.MarginCross
	}
	g := &OkxGateway{
		client:    client,
		public:    okx.NewPublicClient(),
		limiter:   rate.NewLimiter(rate.Limit(limit), limit),
		tdMode:    marginMode,
		timeout:   callTimeout,
		fallback:  ladder.PrecisionRounder{QtyPlaces: 3, PricePlaces: 2},
		precision: make(map[string]okx.Precision),
	}
	if err := g.LoadInstruments(ctx); err != nil {
		logger.Warnf("load okx instruments failed, using default precision: %v", err)
	}
	return g, nil
}

// LoadInstruments 拉取全部永续合约的价格步长和数量步长
func (g *OkxGateway) LoadInstruments(ctx context.Context) error {
	instruments, err := g.public.GetInstrumentsWithRetry(ctx, "SWAP")
	if err != nil {
		return err
	}
	loaded := make(map[string]okx.Precision, len(instruments))
	for _, inst := range instruments {
		p, err := inst.Precision()
		if err != nil {
			logger.Debugf("skip instrument %s: %v", inst.InstId, err)
			continue
		}
		loaded[inst.InstId] = p
	}
	g.mu.Lock()
	g.precision = loaded
	g.mu.Unlock()
	logger.Infof("loaded %d okx swap instruments", len(loaded))
	return nil
}

func (g *OkxGateway) precisionOf(symbol string) (okx.Precision, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.precision[okx.InstID(symbol)]
	return p, ok
}

func (g *OkxGateway) ctVal(symbol string) decimal.Decimal {
	if p, ok := g.precisionOf(symbol); ok {
		return p.CtVal
	}
	return decimal.NewFromInt(1)
}

func (g *OkxGateway) RoundQuantity(symbol string, v decimal.Decimal) decimal.Decimal {
	if p, ok := g.precisionOf(symbol); ok {
		return ladder.FloorToStep(v, p.QtyStep)
	}
	return g.fallback.RoundQuantity(symbol, v)
}

func (g *OkxGateway) RoundPrice(symbol string, v decimal.Decimal) decimal.Decimal {
	if p, ok := g.precisionOf(symbol); ok {
		return ladder.RoundToStep(v, p.PriceStep)
	}
	return g.fallback.RoundPrice(symbol, v)
}

type result[T any] struct {
	v   T
	err error
}

// call goex 私有接口没有 context，限频后用超时控制
func call[T any](ctx context.Context, g *OkxGateway, fn func() (T, error)) (T, error) {
	var zero T
	if err := g.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("%w: %v", model.ErrVenueTransient, err)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		v, err := fn()
		ch <- result[T]{v: v, err: err}
	}()

	select {
	case <-timeoutCtx.Done():
		return zero, fmt.Errorf("%w: %v", model.ErrVenueTransient, timeoutCtx.Err())
	case r := <-ch:
		return r.v, r.err
	}
}

func (g *OkxGateway) SetLeverage(ctx context.Context, symbol string, leverage int, side model.Side) error {
	_, err := call(ctx, g, func() (struct{}, error) {
		return struct{}{}, g.client.SetLeverage(symbol, leverage, g.tdMode, side)
	})
	return err
}

// SubmitOrder req.Quantity 为币数，下单前换算成张数
func (g *OkxGateway) SubmitOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	contracts := g.contracts(req.Symbol, req.Quantity)
	if !contracts.IsPositive() {
		return "", fmt.Errorf("%w: quantity %s rounds to zero contracts", model.ErrVenueRejection, req.Quantity)
	}
	return call(ctx, g, func() (string, error) {
		return g.client.CreateOrder(req, contracts, g.tdMode)
	})
}

// contracts 币数 -> 张数，先按 QtyStep 向下取整
func (g *OkxGateway) contracts(symbol string, qty decimal.Decimal) decimal.Decimal {
	return g.RoundQuantity(symbol, qty.Abs()).Div(g.ctVal(symbol))
}

func (g *OkxGateway) GetOpenOrder(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error) {
	orders, err := g.ListOpenOrders(ctx, symbol)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == orderID {
			return &orders[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s not in open orders", model.ErrOrderNotFound, orderID)
}

func (g *OkxGateway) GetClosedOrder(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error) {
	raw, err := call(ctx, g, func() (okx.RawOrder, error) {
		return g.client.OrderInfo(symbol, orderID)
	})
	if err != nil {
		return nil, err
	}
	st := raw.Status(symbol, g.ctVal(symbol))
	return &st, nil
}

func (g *OkxGateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	_, err := call(ctx, g, func() (struct{}, error) {
		return struct{}{}, g.client.CancelOrder(symbol, orderID)
	})
	return err
}

func (g *OkxGateway) ListOpenOrders(ctx context.Context, symbol string) ([]model.OrderStatus, error) {
	raws, err := call(ctx, g, func() ([]okx.RawOrder, error) {
		return g.client.PendingOrders(symbol)
	})
	if err != nil {
		return nil, err
	}
	ct := g.ctVal(symbol)
	orders := make([]model.OrderStatus, 0, len(raws))
	for _, raw := range raws {
		orders = append(orders, raw.Status(symbol, ct))
	}
	return orders, nil
}

func (g *OkxGateway) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	return call(ctx, g, func() (decimal.Decimal, error) {
		return g.client.Balance(strings.ToUpper(asset))
	})
}

func (g *OkxGateway) GetPosition(ctx context.Context, symbol string) (*model.Position, error) {
	raws, err := call(ctx, g, func() ([]okx.RawPosition, error) {
		return g.client.Positions(symbol)
	})
	if err != nil {
		return nil, err
	}
	net, lever := okx.NetContracts(raws)
	return &model.Position{
		Symbol:       symbol,
		NetContracts: net.Mul(g.ctVal(symbol)),
		Leverage:     lever,
	}, nil
}

// InstallTrailingStop Size 为币数量，下单前换算成张数
func (g *OkxGateway) InstallTrailingStop(ctx context.Context, req model.TrailingStopRequest) (string, error) {
	contracts := g.contracts(req.Symbol, req.Size)
	if !contracts.IsPositive() {
		return "", fmt.Errorf("%w: trailing stop size %s rounds to zero", model.ErrVenueRejection, req.Size)
	}
	return call(ctx, g, func() (string, error) {
		return g.client.TrailingStop(req, contracts, g.tdMode)
	})
}
