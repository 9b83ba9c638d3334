package execution

import (
	"bracketflow/conf"
	"bracketflow/internal/model"

	"github.com/shopspring/decimal"
)

// Config 执行引擎参数，金额和比例均为定点数
type Config struct {
	SettlementCurrency     string
	BalancePct             decimal.Decimal
	Levels                 model.LevelConfig
	TrailingSLRoi          decimal.Decimal
	TrailingReferenceLevel int
	SubmitRetries          int

	Fill     FillMonitorConfig
	Position PositionMonitorConfig
	Sweep    SweeperConfig
}

// NewConfig 配置文件中的浮点数在这里转换为定点数
func NewConfig(c conf.ExecutionConfig) Config {
	maxRetries, submitRetries := c.Retries()
	return Config{
		SettlementCurrency:     c.SettlementCurrency,
		BalancePct:             decimal.NewFromFloat(c.BalancePct),
		Levels:                 c.LevelConfig(),
		TrailingSLRoi:          decimal.NewFromFloat(c.TrailingSLRoi),
		TrailingReferenceLevel: c.TrailingReferenceLevel,
		SubmitRetries:          submitRetries,
		Fill: FillMonitorConfig{
			Interval:   c.MonitorInterval,
			Expiration: c.OrderExpiration,
			MaxRetries: maxRetries,
		},
		Position: PositionMonitorConfig{
			Interval:    c.PositionInterval,
			WaitTimeout: c.PositionWaitTimeout,
			MaxRetries:  maxRetries,
		},
		Sweep: SweeperConfig{
			Interval:   c.SweepInterval,
			Expiration: c.OrderExpiration,
			MaxRetries: maxRetries,
		},
	}
}
