package ladder

import (
	"bracketflow/internal/model"
	"fmt"

	"github.com/shopspring/decimal"
)

// Allocate 按比例把总量拆到各档
// 前 n-1 档按交易所精度取整，最后一档取剩余量，不再单独取整，保证各档之和严格等于 total
func Allocate(total decimal.Decimal, pcts []decimal.Decimal, round func(decimal.Decimal) decimal.Decimal) ([]decimal.Decimal, error) {
	if len(pcts) == 0 {
		return nil, fmt.Errorf("%w: no allocation percentages", model.ErrConfiguration)
	}
	quantities := make([]decimal.Decimal, len(pcts))
	allocated := decimal.Zero
	last := len(pcts) - 1
	for i := 0; i < last; i++ {
		q := round(total.Mul(pcts[i]))
		quantities[i] = q
		allocated = allocated.Add(q)
	}
	residual := total.Sub(allocated)
	if residual.IsNegative() {
		return nil, fmt.Errorf("%w: residual %s for total %s", model.ErrAllocationUnderflow, residual, total)
	}
	quantities[last] = residual
	return quantities, nil
}
