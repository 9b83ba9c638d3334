package exchange

import (
	"bracketflow/internal/ladder"
	"bracketflow/internal/model"
	"context"

	"github.com/shopspring/decimal"
)

// Gateway 交易所网关，鉴权、限频、精度和协议都在网关内部处理
// 所有组件通过注入的 Gateway 访问交易所，可以并发调用
type Gateway interface {
	ladder.Rounder

	// 设置杠杆倍数
	SetLeverage(ctx context.Context, symbol string, leverage int, side model.Side) error
	// 限价开仓并附带止盈止损，返回交易所订单id
	SubmitOrder(ctx context.Context, req model.OrderRequest) (string, error)
	// 在当前挂单中查找，不存在时返回 model.ErrOrderNotFound
	GetOpenOrder(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error)
	// 在历史订单中查找，不存在时返回 model.ErrOrderNotFound
	GetClosedOrder(ctx context.Context, symbol, orderID string) (*model.OrderStatus, error)
	// 撤单
	CancelOrder(ctx context.Context, symbol, orderID string) error
	// 交易对全部挂单
	ListOpenOrders(ctx context.Context, symbol string) ([]model.OrderStatus, error)
	// 币种可用余额
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)
	// 净持仓
	GetPosition(ctx context.Context, symbol string) (*model.Position, error)
	// 追踪止损，返回委托id
	InstallTrailingStop(ctx context.Context, req model.TrailingStopRequest) (string, error)
}
