package dao

import (
	"bracketflow/internal/model"
	"context"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderDao 下单审计流水，实现 execution.Journal
type OrderDao struct {
	db *gorm.DB
}

func NewOrderDao(db *gorm.DB) *OrderDao {
	return &OrderDao{db: db}
}

// 插入下单记录
func (d *OrderDao) RecordSubmission(ctx context.Context, executionID string, order model.SubmittedOrder) error {
	return d.db.WithContext(ctx).Create(model.NewOrderRecord(executionID, order)).Error
}

// RecordOutcome FillMonitor 更新单条记录，PositionMonitor 更新整个执行的记录，Sweeper 不落库
func (d *OrderDao) RecordOutcome(ctx context.Context, res model.MonitorResult) error {
	extras, err := json.Marshal(model.NewOutcomeEntry(res))
	if err != nil {
		return err
	}
	q := d.db.WithContext(ctx).Model(&model.OrderRecord{})
	switch {
	case res.Monitor == model.MonitorFill && res.OrderID != "":
		return q.Where("order_id = ?", res.OrderID).Updates(map[string]interface{}{
			"state":      string(res.Outcome),
			"extras":     datatypes.JSON(extras),
			"updated_at": res.FinishedAt,
		}).Error
	case res.Monitor == model.MonitorPosition && res.ExecutionID != "":
		return q.Where("execution_id = ?", res.ExecutionID).Updates(map[string]interface{}{
			"position_state": string(res.Outcome),
			"updated_at":     res.FinishedAt,
		}).Error
	}
	return nil
}

// AutoMigrate 建表
func (d *OrderDao) AutoMigrate() error {
	return d.db.AutoMigrate(&model.OrderRecord{})
}
