package api

import (
	"bracketflow/conf"
	"bracketflow/internal/dao"
	"bracketflow/internal/exchange"
	"bracketflow/internal/execution"
	"bracketflow/internal/ladder"
	"bracketflow/internal/middleware"
	"bracketflow/internal/router"
	"bracketflow/internal/webhook"
	"bracketflow/pkg/db"
	"bracketflow/pkg/kafka"
	"bracketflow/pkg/logger"
	"bracketflow/pkg/recorder"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// App 进程内的全部组件
type App struct {
	Orchestrator *execution.Orchestrator
	Routers      []Router

	datasource *gorm.DB
	recorder   *recorder.JSONFileRecorder
	consumer   kafka.ConsumerService
	cancel     context.CancelFunc
}

func InitApp(ctx context.Context, cfg *conf.Config) (*App, error) {
	app := &App{}
	ctx, app.cancel = context.WithCancel(ctx)

	gw, err := initGateway(ctx, cfg)
	if err != nil {
		app.cancel()
		return nil, err
	}

	journal, err := app.initJournal(cfg)
	if err != nil {
		app.cancel()
		return nil, err
	}

	orch, err := execution.NewOrchestrator(gw, execution.NewConfig(cfg.Execution), journal)
	if err != nil {
		app.cancel()
		return nil, err
	}
	app.Orchestrator = orch

	var wh *webhook.Handler
	if cfg.Webhook.Secret != "" {
		wh = webhook.NewHandler(cfg.Webhook.Secret, orch)
	} else {
		logger.Warn("webhook secret not configured, /webhook disabled")
	}
	app.Routers = []Router{middleware.NewMiddleware(), router.NewApiRouter(wh)}

	if cfg.Kafka.Broker != "" {
		app.consumer = kafka.NewKafkaConsumer(cfg.Kafka.Broker)
		msgs, err := app.consumer.Consume(ctx, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		if err != nil {
			app.cancel()
			return nil, fmt.Errorf("consume %s: %w", cfg.Kafka.Topic, err)
		}
		go runKafkaSource(msgs, webhook.NewDecoder(), orch)
		logger.Infof("kafka signal source %s topic %s", cfg.Kafka.Broker, cfg.Kafka.Topic)
	}
	return app, nil
}

// initGateway paper 模式不连接交易所，下单即成交
func initGateway(ctx context.Context, cfg *conf.Config) (exchange.Gateway, error) {
	if cfg.Okx.Paper {
		sim := exchange.NewSimulatedExchange(ladder.PrecisionRounder{QtyPlaces: 4, PricePlaces: 2}, exchange.WithAutoFill())
		balance := cfg.Okx.PaperBalance
		if balance <= 0 {
			balance = 1000
		}
		sim.SetBalance(cfg.Execution.SettlementCurrency, decimal.NewFromFloat(balance))
		logger.Infof("paper trading with %v %s", balance, cfg.Execution.SettlementCurrency)
		return sim, nil
	}
	gw, err := exchange.NewOkxGateway(ctx, cfg.Okx, cfg.Execution.MarginMode)
	if err != nil {
		return nil, fmt.Errorf("init okx gateway: %w", err)
	}
	return gw, nil
}

// initJournal 数据库优先，其次流水文件，都没有配置时不记录
func (app *App) initJournal(cfg *conf.Config) (execution.Journal, error) {
	if cfg.Db.Enable {
		datasource, err := db.Open(db.NewConfig(cfg.Db.Username, cfg.Db.Password, cfg.Db.Host, cfg.Db.Port, cfg.Db.DbName))
		if err != nil {
			return nil, err
		}
		d := dao.NewOrderDao(datasource)
		if err := d.AutoMigrate(); err != nil {
			_ = db.Close(datasource)
			return nil, fmt.Errorf("migrate order_record: %w", err)
		}
		app.datasource = datasource
		return d, nil
	}
	if cfg.JournalFile != "" {
		r, err := recorder.NewJSONFileRecorder(cfg.JournalFile)
		if err != nil {
			return nil, fmt.Errorf("open journal %s: %w", cfg.JournalFile, err)
		}
		app.recorder = r
		return r, nil
	}
	return nil, nil
}

// Close 停止信号源和监控单元，已经挂出的订单保留在交易所
func (app *App) Close(ctx context.Context) {
	app.cancel()
	if app.consumer != nil {
		app.consumer.Close()
	}
	if app.Orchestrator != nil {
		if err := app.Orchestrator.Shutdown(ctx); err != nil {
			logger.Errorf("orchestrator shutdown: %v", err)
		}
	}
	if app.recorder != nil {
		if err := app.recorder.Close(); err != nil {
			logger.Warnf("close journal: %v", err)
		}
	}
	if app.datasource != nil {
		if err := db.Close(app.datasource); err != nil {
			logger.Warnf("close database: %v", err)
		}
	}
}
