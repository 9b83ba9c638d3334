package middleware

import "github.com/gin-gonic/gin"

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// Load 全局中间件，必须在其他路由之前加载
func (m *Middleware) Load(g *gin.Engine) {
	g.Use(gin.Recovery())
	g.Use(RequestId())
	g.Use(NoCache(), Secure())
	g.Use(Logger)
}
