package router

import (
	"bracketflow/internal/execution"
	"bracketflow/internal/model"
	"bracketflow/internal/webhook"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(model.TradeSignal, func(*execution.Execution, error)) {}

func TestApiRouter_Load(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		wh     *webhook.Handler
		method string
		path   string
		status int
	}{
		{name: "健康检查", method: http.MethodGet, path: "/ping", status: http.StatusOK},
		{name: "指标", method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{name: "未启用webhook", method: http.MethodPost, path: "/webhook", status: http.StatusNotFound},
		{name: "启用webhook", wh: webhook.NewHandler("secret", nopDispatcher{}), method: http.MethodPost, path: "/webhook", status: http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := gin.New()
			NewApiRouter(c.wh).Load(g)
			w := httptest.NewRecorder()
			g.ServeHTTP(w, httptest.NewRequest(c.method, c.path, nil))
			if w.Code != c.status {
				t.Fatalf("%s %s: status %d, want %d", c.method, c.path, w.Code, c.status)
			}
		})
	}
}
