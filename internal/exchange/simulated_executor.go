package exchange

import (
	"bracketflow/internal/ladder"
	"bracketflow/internal/model"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SimulatedExchange 本地纸面交易所，适合本地联调和测试
// 限价单在标记价格穿过挂单价时全部成交，不模拟部分成交
type SimulatedExchange struct {
	ladder.PrecisionRounder

	mu       sync.Mutex
	now      func() time.Time
	autoFill bool

	open      map[string]*simOrder
	closed    map[string]*simOrder
	clientIDs map[string]string
	balances  map[string]decimal.Decimal
	positions map[string]decimal.Decimal
	leverage  map[string]int
	prices    map[string]decimal.Decimal
	trailing  []model.TrailingStopRequest
}

type simOrder struct {
	req    model.OrderRequest
	status model.OrderStatus
}

type SimulatedOption func(*SimulatedExchange)

// WithClock 测试中注入时间
func WithClock(now func() time.Time) SimulatedOption {
	return func(s *SimulatedExchange) { s.now = now }
}

// WithAutoFill 下单即成交
func WithAutoFill() SimulatedOption {
	return func(s *SimulatedExchange) { s.autoFill = true }
}

func NewSimulatedExchange(r ladder.PrecisionRounder, opts ...SimulatedOption) *SimulatedExchange {
	s := &SimulatedExchange{
		PrecisionRounder: r,
		now:              time.Now,
		open:             make(map[string]*simOrder),
		closed:           make(map[string]*simOrder),
		clientIDs:        make(map[string]string),
		balances:         make(map[string]decimal.Decimal),
		positions:        make(map[string]decimal.Decimal),
		leverage:         make(map[string]int),
		prices:           make(map[string]decimal.Decimal),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SimulatedExchange) SetBalance(asset string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[strings.ToUpper(asset)] = amount
}

// SetMarkPrice 更新标记价格并撮合穿价的挂单
func (s *SimulatedExchange) SetMarkPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
	for _, o := range s.open {
		if o.req.Symbol != symbol {
			continue
		}
		if (o.req.Side == model.Buy && price.LessThanOrEqual(o.req.Price)) ||
			(o.req.Side == model.Sell && price.GreaterThanOrEqual(o.req.Price)) {
			s.fill(o)
		}
	}
}

// ClosePosition 模拟止损或止盈把仓位平掉
func (s *SimulatedExchange) ClosePosition(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.positions, symbol)
}

func (s *SimulatedExchange) TrailingStops() []model.TrailingStopRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.TrailingStopRequest(nil), s.trailing...)
}

func (s *SimulatedExchange) fill(o *simOrder) {
	o.status.Filled = o.status.Amount
	o.status.State = model.OrderFilled
	delete(s.open, o.status.ID)
	s.closed[o.status.ID] = o

	qty := o.status.Amount
	if o.req.PosSide == model.Short {
		qty = qty.Neg()
	}
	s.positions[o.req.Symbol] = s.positions[o.req.Symbol].Add(qty)
}

func (s *SimulatedExchange) SetLeverage(ctx context.Context, symbol string, leverage int, side model.Side) error {
	if leverage <= 0 {
		return fmt.Errorf("%w: leverage %d", model.ErrVenueRejection, leverage)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leverage[symbol] = leverage
	return nil
}

// SubmitOrder 相同的 ClientOrderID 只会创建一次订单
func (s *SimulatedExchange) SubmitOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	if !req.Quantity.IsPositive() || !req.Price.IsPositive() {
		return "", fmt.Errorf("%w: quantity %s price %s", model.ErrVenueRejection, req.Quantity, req.Price)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.clientIDs[req.ClientOrderID]; ok && req.ClientOrderID != "" {
		return id, nil
	}
	id := uuid.NewString()
	o := &simOrder{
		req: req,
		status: model.OrderStatus{
			ID:        id,
			Symbol:    req.Symbol,
			State:     model.OrderOpen,
			Amount:    req.Quantity,
			Filled:    decimal.Zero,
			CreatedAt: s.now(),
		},
	}
	s.open[id] = o
	if req.ClientOrderID != "" {
		s.clientIDs[req.ClientOrderID] = id
	}
	if s.autoFill {
		s.fill(o)
	}
	return id, nil
}

func (s *SimulatedExchange) GetOpenOrder(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.open[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderNotFound, orderID)
	}
	st := o.status
	return &st, nil
}

func (s *SimulatedExchange) GetClosedOrder(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.closed[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderNotFound, orderID)
	}
	st := o.status
	return &st, nil
}

func (s *SimulatedExchange) CancelOrder(ctx context.Context, symbol, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.open[orderID]
	if !ok {
		if _, done := s.closed[orderID]; done {
			return fmt.Errorf("%w: order %s already closed", model.ErrVenueRejection, orderID)
		}
		return fmt.Errorf("%w: %s", model.ErrOrderNotFound, orderID)
	}
	o.status.State = model.OrderCanceled
	delete(s.open, orderID)
	s.closed[orderID] = o
	return nil
}

// ListOpenOrders 按创建时间排序
func (s *SimulatedExchange) ListOpenOrders(ctx context.Context, symbol string) ([]model.OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orders []model.OrderStatus
	for _, o := range s.open {
		if o.req.Symbol == symbol {
			orders = append(orders, o.status)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

func (s *SimulatedExchange) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[strings.ToUpper(asset)], nil
}

func (s *SimulatedExchange) GetPosition(ctx context.Context, symbol string) (*model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &model.Position{
		Symbol:       symbol,
		NetContracts: s.positions[symbol],
		Leverage:     s.leverage[symbol],
	}, nil
}

func (s *SimulatedExchange) InstallTrailingStop(ctx context.Context, req model.TrailingStopRequest) (string, error) {
	if !req.Distance.IsPositive() {
		return "", fmt.Errorf("%w: trailing distance %s", model.ErrVenueRejection, req.Distance)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trailing = append(s.trailing, req)
	return uuid.NewString(), nil
}
