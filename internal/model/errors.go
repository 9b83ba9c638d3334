package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// 错误分类，调用方通过 errors.Is 判断
var (
	// 档位配置错误，比例之和不为 1 等
	ErrConfiguration = errors.New("configuration error")
	// 非法的多空方向
	ErrInvalidSide = errors.New("invalid side")
	// 不支持的结算币种
	ErrUnsupportedMarket = errors.New("unsupported market")
	// 其余档位数量之和超过总量
	ErrAllocationUnderflow = errors.New("allocation underflow")
	// 信号字段不合法（杠杆、价格）
	ErrInvalidSignal = errors.New("invalid signal")
	// 可用余额不足以开出最小下单单位
	ErrInsufficientBalance = errors.New("insufficient balance")

	// 网络、限频等可重试错误
	ErrVenueTransient = errors.New("venue transient error")
	// 交易所业务拒单，不重试
	ErrVenueRejection = errors.New("venue rejection")
	// 订单在当前视图中不存在
	ErrOrderNotFound = errors.New("order not found")
	// 重试次数耗尽
	ErrGaveUp = errors.New("gave up")
)

// PartialLadderWarning 实际挂出的数量与计划总量不一致，非致命
type PartialLadderWarning struct {
	Planned   decimal.Decimal
	Submitted decimal.Decimal
	Failed    int
}

func (w *PartialLadderWarning) Error() string {
	return fmt.Sprintf("partial ladder: submitted %s of planned %s (%d legs failed)",
		w.Submitted.String(), w.Planned.String(), w.Failed)
}

// IsRetryable 只有交易所的临时错误可以重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVenueTransient)
}
