// Package metrics 执行引擎的 Prometheus 指标，在 /metrics 暴露
//
//	bracketflow_signals_total{result}            收到的信号（accepted|rejected）
//	bracketflow_legs_total{result}               挂单提交结果（submitted|failed）
//	bracketflow_monitor_outcomes_total{monitor,outcome}
//	bracketflow_trailing_stops_total             已创建的追踪止损
//	bracketflow_active_executions                运行中的执行单元
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	signals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracketflow_signals_total",
			Help: "Trade signals received, split by accepted or rejected",
		},
		[]string{"result"},
	)

	legs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracketflow_legs_total",
			Help: "Ladder legs submitted to the venue, split by result",
		},
		[]string{"result"},
	)

	outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bracketflow_monitor_outcomes_total",
			Help: "Terminal outcomes of fill, position and sweeper monitors",
		},
		[]string{"monitor", "outcome"},
	)

	trailingStops = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bracketflow_trailing_stops_total",
			Help: "Trailing stops installed",
		},
	)

	activeExecutions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bracketflow_active_executions",
			Help: "Executions with at least one monitor still running",
		},
	)
)

func init() {
	prometheus.MustRegister(signals, legs, outcomes, trailingStops, activeExecutions)
}

func SignalAccepted() { signals.WithLabelValues("accepted").Inc() }
func SignalRejected() { signals.WithLabelValues("rejected").Inc() }

func LegSubmitted() { legs.WithLabelValues("submitted").Inc() }
func LegFailed()    { legs.WithLabelValues("failed").Inc() }

func MonitorOutcome(monitor, outcome string) {
	outcomes.WithLabelValues(monitor, outcome).Inc()
}

func TrailingStopInstalled() { trailingStops.Inc() }

func ExecutionStarted()  { activeExecutions.Inc() }
func ExecutionFinished() { activeExecutions.Dec() }

// Handler 挂到 gin 路由上
func Handler() http.Handler {
	return promhttp.Handler()
}
