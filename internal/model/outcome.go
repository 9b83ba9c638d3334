package model

import "time"

// 监控单元
const (
	MonitorFill     = "fill"
	MonitorPosition = "position"
	MonitorSweeper  = "sweeper"
)

// Outcome 监控单元的终态
type Outcome string

const (
	OutcomeFilled   Outcome = "filled"
	OutcomeCanceled Outcome = "canceled"
	OutcomeExpired  Outcome = "expired"
	OutcomeRejected Outcome = "rejected"

	OutcomeTrailingInstalled Outcome = "trailing_installed"
	OutcomeNoPosition        Outcome = "no_position"
	OutcomeFlattened         Outcome = "flattened"

	OutcomeDrained Outcome = "drained"

	// 重试次数或等待时间耗尽
	OutcomeGaveUp Outcome = "gave_up"
	// 不可重试的交易所错误
	OutcomeFailed Outcome = "failed"
	// 进程退出时被取消
	OutcomeStopped Outcome = "stopped"
)

// MonitorResult 每个监控单元结束时产生一条，写日志、指标和流水
type MonitorResult struct {
	Monitor     string
	ExecutionID string
	Symbol      string
	OrderID     string
	Outcome     Outcome
	Err         error
	Retries     int
	Elapsed     time.Duration
	FinishedAt  time.Time
}

// OutcomeFromState 订单终态 -> 监控结果
func OutcomeFromState(s OrderState) Outcome {
	switch s {
	case OrderFilled:
		return OutcomeFilled
	case OrderCanceled:
		return OutcomeCanceled
	case OrderExpired:
		return OutcomeExpired
	default:
		return OutcomeRejected
	}
}
