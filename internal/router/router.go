package router

import (
	"bracketflow/internal/handler/ping"
	"bracketflow/internal/metrics"
	"bracketflow/internal/webhook"

	"github.com/gin-gonic/gin"
)

type ApiRouter struct {
	webhookHandler *webhook.Handler
}

// NewApiRouter 未配置 webhook 密钥时 wh 为 nil，只提供健康检查和指标
func NewApiRouter(wh *webhook.Handler) *ApiRouter {
	return &ApiRouter{webhookHandler: wh}
}

func (api *ApiRouter) Load(g *gin.Engine) {
	g.GET("/ping", ping.Ping())
	g.GET("/metrics", gin.WrapH(metrics.Handler()))

	if api.webhookHandler != nil {
		api.webhookHandler.Load(g)
	}
}
