package execution

import (
	"bracketflow/internal/ladder"
	"bracketflow/internal/model"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeGateway 可编排的交易所，错误按调用顺序依次弹出
type fakeGateway struct {
	ladder.PrecisionRounder

	mu sync.Mutex

	balance     decimal.Decimal
	leverageErr error

	submitErrs []error
	submitted  []model.OrderRequest
	nextID     int

	open   map[string]model.OrderStatus
	closed map[string]model.OrderStatus

	openErrs   []error
	closedErrs []error
	listErrs   []error

	cancelErr error
	canceled  []string

	position     decimal.Decimal
	positionErrs []error
	trailingErrs []error
	trailing     []model.TrailingStopRequest

	calls map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		PrecisionRounder: ladder.PrecisionRounder{QtyPlaces: 4, PricePlaces: 2},
		open:             make(map[string]model.OrderStatus),
		closed:           make(map[string]model.OrderStatus),
		calls:            make(map[string]int),
	}
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func transient(msg string) error {
	return fmt.Errorf("%w: %s", model.ErrVenueTransient, msg)
}

func rejection(msg string) error {
	return fmt.Errorf("%w: %s", model.ErrVenueRejection, msg)
}

func (g *fakeGateway) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGateway) setOpen(st model.OrderStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.closed, st.ID)
	g.open[st.ID] = st
}

func (g *fakeGateway) setClosed(st model.OrderStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.open, st.ID)
	g.closed[st.ID] = st
}

func (g *fakeGateway) setPosition(v decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = v
}

func (g *fakeGateway) SetLeverage(ctx context.Context, symbol string, leverage int, side model.Side) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["SetLeverage"]++
	return g.leverageErr
}

func (g *fakeGateway) SubmitOrder(ctx context.Context, req model.OrderRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["SubmitOrder"]++
	g.submitted = append(g.submitted, req)
	if err := pop(&g.submitErrs); err != nil {
		return "", err
	}
	g.nextID++
	id := fmt.Sprintf("o%d", g.nextID)
	g.open[id] = model.OrderStatus{ID: id, Symbol: req.Symbol, State: model.OrderOpen, Amount: req.Quantity, CreatedAt: t0}
	return id, nil
}

func (g *fakeGateway) GetOpenOrder(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["GetOpenOrder"]++
	if err := pop(&g.openErrs); err != nil {
		return nil, err
	}
	st, ok := g.open[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderNotFound, orderID)
	}
	return &st, nil
}

func (g *fakeGateway) GetClosedOrder(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["GetClosedOrder"]++
	if err := pop(&g.closedErrs); err != nil {
		return nil, err
	}
	st, ok := g.closed[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrOrderNotFound, orderID)
	}
	return &st, nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, symbol, orderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["CancelOrder"]++
	if g.cancelErr != nil {
		return g.cancelErr
	}
	st, ok := g.open[orderID]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrOrderNotFound, orderID)
	}
	st.State = model.OrderCanceled
	delete(g.open, orderID)
	g.closed[orderID] = st
	g.canceled = append(g.canceled, orderID)
	return nil
}

func (g *fakeGateway) ListOpenOrders(ctx context.Context, symbol string) ([]model.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["ListOpenOrders"]++
	if err := pop(&g.listErrs); err != nil {
		return nil, err
	}
	var orders []model.OrderStatus
	for _, st := range g.open {
		if st.Symbol == symbol {
			orders = append(orders, st)
		}
	}
	return orders, nil
}

func (g *fakeGateway) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["GetBalance"]++
	if strings.ToUpper(asset) != "USDT" {
		return decimal.Zero, nil
	}
	return g.balance, nil
}

func (g *fakeGateway) GetPosition(ctx context.Context, symbol string) (*model.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["GetPosition"]++
	if err := pop(&g.positionErrs); err != nil {
		return nil, err
	}
	return &model.Position{Symbol: symbol, NetContracts: g.position, Leverage: 10}, nil
}

func (g *fakeGateway) InstallTrailingStop(ctx context.Context, req model.TrailingStopRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls["InstallTrailingStop"]++
	if err := pop(&g.trailingErrs); err != nil {
		return "", err
	}
	g.trailing = append(g.trailing, req)
	return fmt.Sprintf("algo%d", len(g.trailing)), nil
}

func btcLeg(level int, qty string) model.OrderLeg {
	return model.OrderLeg{
		Level:         level,
		Symbol:        "BTC/USDT",
		Side:          model.Long,
		Quantity:      d(qty),
		LimitPrice:    d("50000"),
		StopLossPrice: d("49750"),
	}
}

func submitted(id string, leg model.OrderLeg) model.SubmittedOrder {
	return model.SubmittedOrder{VenueOrderID: id, ClientOrderID: "c" + id, Leg: leg, SubmittedAt: t0}
}
