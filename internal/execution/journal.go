package execution

import (
	"bracketflow/internal/metrics"
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"context"
	"time"

	"go.uber.org/zap"
)

// Journal 下单和监控结果的审计流水，只写不读，重启后不会恢复执行
type Journal interface {
	RecordSubmission(ctx context.Context, executionID string, order model.SubmittedOrder) error
	RecordOutcome(ctx context.Context, res model.MonitorResult) error
}

type nopJournal struct{}

func (nopJournal) RecordSubmission(context.Context, string, model.SubmittedOrder) error { return nil }
func (nopJournal) RecordOutcome(context.Context, model.MonitorResult) error            { return nil }

const journalTimeout = 3 * time.Second

// 进程退出时基础 context 已取消，流水单独计时
func journalCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), journalTimeout)
}

// report 每个监控单元的终态只调用一次
func report(j Journal, res model.MonitorResult) {
	fields := []zap.Field{
		logger.Pair("monitor", res.Monitor),
		logger.Pair("execution_id", res.ExecutionID),
		logger.Pair("symbol", res.Symbol),
		logger.Pair("order_id", res.OrderID),
		logger.Pair("outcome", string(res.Outcome)),
		logger.Pair("elapsed", res.Elapsed.String()),
		logger.Pair("retries", res.Retries),
		zap.Error(res.Err),
	}
	switch res.Outcome {
	case model.OutcomeGaveUp, model.OutcomeFailed:
		logger.Error("monitor finished", fields...)
	case model.OutcomeStopped:
		logger.Warn("monitor stopped", fields...)
	default:
		logger.Info("monitor finished", fields...)
	}
	metrics.MonitorOutcome(res.Monitor, string(res.Outcome))

	ctx, cancel := journalCtx()
	defer cancel()
	if err := j.RecordOutcome(ctx, res); err != nil {
		logger.Warnf("journal outcome %s %s: %v", res.Monitor, res.OrderID, err)
	}
}
