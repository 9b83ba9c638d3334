package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// 比例之和允许的误差
var pctTolerance = decimal.New(1, -6)

// Level 一档阶梯挂单配置
type Level struct {
	QtyPct        decimal.Decimal  // (0,1]
	ROITakeProfit *decimal.Decimal // 正数，为空时这一档没有固定止盈
	ROIStopLoss   decimal.Decimal  // 负数
}

// LevelConfig 顺序即风险排序，第一档最激进
type LevelConfig []Level

func (lc LevelConfig) Validate() error {
	if len(lc) == 0 {
		return fmt.Errorf("%w: no levels configured", ErrConfiguration)
	}
	sum := decimal.Zero
	one := decimal.NewFromInt(1)
	for i, lv := range lc {
		if !lv.QtyPct.IsPositive() || lv.QtyPct.GreaterThan(one) {
			return fmt.Errorf("%w: level %d qty_pct %s out of (0,1]", ErrConfiguration, i, lv.QtyPct)
		}
		if !lv.ROIStopLoss.IsNegative() {
			return fmt.Errorf("%w: level %d roi_sl %s must be negative", ErrConfiguration, i, lv.ROIStopLoss)
		}
		if lv.ROITakeProfit != nil && !lv.ROITakeProfit.IsPositive() {
			return fmt.Errorf("%w: level %d roi_tp %s must be positive", ErrConfiguration, i, lv.ROITakeProfit)
		}
		sum = sum.Add(lv.QtyPct)
	}
	if sum.Sub(one).Abs().GreaterThan(pctTolerance) {
		return fmt.Errorf("%w: qty_pct sum %s != 1", ErrConfiguration, sum)
	}
	return nil
}

// ValidateReference 追踪止损的参考档位必须存在且带止盈
func (lc LevelConfig) ValidateReference(idx int) error {
	if idx < 0 || idx >= len(lc) {
		return fmt.Errorf("%w: trailing reference level %d out of range", ErrConfiguration, idx)
	}
	if lc[idx].ROITakeProfit == nil {
		return fmt.Errorf("%w: trailing reference level %d has no take-profit", ErrConfiguration, idx)
	}
	return nil
}

func (lc LevelConfig) Pcts() []decimal.Decimal {
	pcts := make([]decimal.Decimal, len(lc))
	for i, lv := range lc {
		pcts[i] = lv.QtyPct
	}
	return pcts
}
