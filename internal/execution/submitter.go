package execution

import (
	"bracketflow/internal/exchange"
	"bracketflow/internal/metrics"
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultSubmitRetryDelay = 500 * time.Millisecond

// LegFailure 没有挂出去的一档
type LegFailure struct {
	Leg model.OrderLeg
	Err error
}

// SubmitReport 一次阶梯下单的结果
type SubmitReport struct {
	Orders   []model.SubmittedOrder
	Failures []LegFailure
	// 所有失败档位的错误合集
	Err error
	// 挂出的数量与计划不一致
	Warning *model.PartialLadderWarning
}

func (r SubmitReport) Submitted() decimal.Decimal {
	total := decimal.Zero
	for _, o := range r.Orders {
		total = total.Add(o.Leg.Quantity)
	}
	return total
}

// Submitter 按阶梯顺序逐档下单，单档失败不影响其他档位
type Submitter struct {
	gw         exchange.Gateway
	journal    Journal
	retries    int
	retryDelay time.Duration
	now        func() time.Time
	newID      func() string
}

func NewSubmitter(gw exchange.Gateway, journal Journal, retries int) *Submitter {
	if journal == nil {
		journal = nopJournal{}
	}
	return &Submitter{
		gw:         gw,
		journal:    journal,
		retries:    retries,
		retryDelay: defaultSubmitRetryDelay,
		now:        time.Now,
		newID:      NewClientOrderID,
	}
}

// NewClientOrderID okx 的 clOrdId 只允许字母数字，最长 32 位
func NewClientOrderID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Submit 先设置杠杆再逐档下单
func (s *Submitter) Submit(ctx context.Context, executionID string, sig model.TradeSignal, legs []model.OrderLeg) SubmitReport {
	var report SubmitReport

	if err := s.gw.SetLeverage(ctx, sig.Symbol, sig.Leverage, sig.Side); err != nil {
		// 杠杆可能已经是目标值，继续下单
		logger.Warn("set leverage failed",
			logger.Pair("execution_id", executionID),
			logger.Pair("symbol", sig.Symbol),
			logger.Pair("leverage", sig.Leverage),
			zap.Error(err))
	}

	planned := decimal.Zero
	for _, leg := range legs {
		planned = planned.Add(leg.Quantity)

		order, retries, err := s.submitLeg(ctx, leg)
		fields := []zap.Field{
			logger.Pair("execution_id", executionID),
			logger.Pair("symbol", leg.Symbol),
			logger.Pair("level", leg.Level),
			logger.Pair("quantity", leg.Quantity.String()),
			logger.Pair("price", leg.LimitPrice.String()),
			logger.Pair("retries", retries),
		}
		if err != nil {
			metrics.LegFailed()
			logger.Error("leg submit failed", append(fields, zap.Error(err))...)
			report.Failures = append(report.Failures, LegFailure{Leg: leg, Err: err})
			report.Err = multierr.Append(report.Err, fmt.Errorf("level %d: %w", leg.Level, err))
			continue
		}

		metrics.LegSubmitted()
		logger.Info("leg submitted", append(fields,
			logger.Pair("order_id", order.VenueOrderID),
			logger.Pair("client_order_id", order.ClientOrderID))...)
		report.Orders = append(report.Orders, order)

		jctx, cancel := journalCtx()
		if err := s.journal.RecordSubmission(jctx, executionID, order); err != nil {
			logger.Warnf("journal submission %s: %v", order.VenueOrderID, err)
		}
		cancel()
	}

	if submitted := report.Submitted(); !submitted.Equal(planned) {
		report.Warning = &model.PartialLadderWarning{
			Planned:   planned,
			Submitted: submitted,
			Failed:    len(report.Failures),
		}
		logger.Warn(report.Warning.Error(),
			logger.Pair("execution_id", executionID),
			logger.Pair("symbol", sig.Symbol))
	}
	return report
}

// submitLeg 临时错误用同一个 client id 重试，交易所按 client id 去重
func (s *Submitter) submitLeg(ctx context.Context, leg model.OrderLeg) (model.SubmittedOrder, int, error) {
	req := model.NewOrderRequest(leg, s.newID())
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return model.SubmittedOrder{}, attempt, ctx.Err()
			case <-time.After(s.retryDelay):
			}
		}
		id, err := s.gw.SubmitOrder(ctx, req)
		if err == nil {
			return model.SubmittedOrder{
				VenueOrderID:  id,
				ClientOrderID: req.ClientOrderID,
				Leg:           leg,
				SubmittedAt:   s.now(),
			}, attempt, nil
		}
		lastErr = err
		if !model.IsRetryable(err) {
			return model.SubmittedOrder{}, attempt, err
		}
	}
	return model.SubmittedOrder{}, s.retries, lastErr
}
