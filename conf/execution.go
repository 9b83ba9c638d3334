package conf

import (
	"bracketflow/internal/model"
	"fmt"
	"github.com/shopspring/decimal"
	"time"
)

// LevelEntry 对应配置文件中的一档挂单
type LevelEntry struct {
	QtyPct float64  `yaml:"qty_pct"`
	RoiTP  *float64 `yaml:"roi_tp"` // 为空时该档只依赖追踪止损
	RoiSL  float64  `yaml:"roi_sl"`
}

type ExecutionConfig struct {
	SettlementCurrency     string        `yaml:"settlement_currency"`
	BalancePct             float64       `yaml:"balance_pct"`
	Levels                 []LevelEntry  `yaml:"levels"`
	TrailingSLRoi          float64       `yaml:"trailing_sl_roi"`
	TrailingReferenceLevel int           `yaml:"trailing_reference_level"`
	OrderExpiration        time.Duration `yaml:"order_expiration"`
	MonitorInterval        time.Duration `yaml:"monitor_interval"`
	PositionInterval       time.Duration `yaml:"position_interval"`
	PositionWaitTimeout    time.Duration `yaml:"position_wait_timeout"`
	SweepInterval          time.Duration `yaml:"sweep_interval"`
	MaxRetries             *int          `yaml:"max_retries"`    // 0 表示失败一次即放弃
	SubmitRetries          *int          `yaml:"submit_retries"` // 0 表示不重试
	MarginMode             string        `yaml:"margin_mode"`
}

// ApplyDefaults 填充未配置的字段
func (c *ExecutionConfig) ApplyDefaults() {
	if c.SettlementCurrency == "" {
		c.SettlementCurrency = "USDT"
	}
	if c.BalancePct == 0 {
		c.BalancePct = 0.02
	}
	if c.TrailingSLRoi == 0 {
		c.TrailingSLRoi = -50
	}
	if c.OrderExpiration == 0 {
		c.OrderExpiration = DefaultOrderExpiration
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = DefaultMonitorInterval
	}
	if c.PositionInterval == 0 {
		c.PositionInterval = DefaultPositionInterval
	}
	if c.PositionWaitTimeout == 0 {
		// 挂单过期后再留四轮持仓轮询
		c.PositionWaitTimeout = c.OrderExpiration + c.MonitorInterval + 4*c.PositionInterval
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.MaxRetries == nil {
		n := DefaultMaxRetries
		c.MaxRetries = &n
	}
	if c.SubmitRetries == nil {
		n := DefaultSubmitRetries
		c.SubmitRetries = &n
	}
	if c.MarginMode == "" {
		c.MarginMode = "cross"
	}
}

// LevelConfig 转换为定点数的档位配置
func (c *ExecutionConfig) LevelConfig() model.LevelConfig {
	levels := make(model.LevelConfig, 0, len(c.Levels))
	for _, e := range c.Levels {
		lv := model.Level{
			QtyPct:      decimal.NewFromFloat(e.QtyPct),
			ROIStopLoss: decimal.NewFromFloat(e.RoiSL),
		}
		if e.RoiTP != nil {
			tp := decimal.NewFromFloat(*e.RoiTP)
			lv.ROITakeProfit = &tp
		}
		levels = append(levels, lv)
	}
	return levels
}

func (c *ExecutionConfig) Validate() error {
	levels := c.LevelConfig()
	if err := levels.Validate(); err != nil {
		return err
	}
	if c.BalancePct <= 0 || c.BalancePct > 1 {
		return fmt.Errorf("%w: balance_pct %v out of (0,1]", model.ErrConfiguration, c.BalancePct)
	}
	if c.TrailingSLRoi >= 0 {
		return fmt.Errorf("%w: trailing_sl_roi must be negative", model.ErrConfiguration)
	}
	if err := levels.ValidateReference(c.TrailingReferenceLevel); err != nil {
		return err
	}
	if c.MarginMode != "cross" && c.MarginMode != "isolated" {
		return fmt.Errorf("%w: unsupported margin_mode %q", model.ErrConfiguration, c.MarginMode)
	}
	if c.MonitorInterval <= 0 || c.PositionInterval <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("%w: polling intervals must be positive", model.ErrConfiguration)
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 || c.SubmitRetries != nil && *c.SubmitRetries < 0 {
		return fmt.Errorf("%w: retries must not be negative", model.ErrConfiguration)
	}
	return nil
}

// Retries 未调用 ApplyDefaults 时返回默认值
func (c *ExecutionConfig) Retries() (maxRetries, submitRetries int) {
	maxRetries, submitRetries = DefaultMaxRetries, DefaultSubmitRetries
	if c.MaxRetries != nil {
		maxRetries = *c.MaxRetries
	}
	if c.SubmitRetries != nil {
		submitRetries = *c.SubmitRetries
	}
	return maxRetries, submitRetries
}
