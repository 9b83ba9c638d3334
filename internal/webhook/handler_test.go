package webhook

import (
	"bracketflow/internal/execution"
	"bracketflow/internal/model"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

const testSecret = "ab12cd34ef56"

type fakeDispatcher struct {
	mu      sync.Mutex
	signals []model.TradeSignal
}

func (f *fakeDispatcher) Dispatch(sig model.TradeSignal, callback func(*execution.Execution, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, sig)
}

func sign(body string) string {
	h := hmac.New(sha256.New, []byte(testSecret))
	h.Write([]byte(body))
	return hex.EncodeToString(h.Sum(nil))
}

func newTestEngine(d Dispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	NewHandler(testSecret, d).Load(g)
	return g
}

func TestHandleWebhook(t *testing.T) {
	good := `{"symbol":"BTC/USDT","side":"short","leverage":20,"entry_price":"3099.87"}`
	cases := []struct {
		name      string
		body      string
		signature string
		status    int
		dispatch  int
	}{
		{name: "正常信号", body: good, signature: sign(good), status: http.StatusAccepted, dispatch: 1},
		{name: "缺少签名", body: good, status: http.StatusUnauthorized},
		{name: "签名错误", body: good, signature: sign(good + " "), status: http.StatusUnauthorized},
		{name: "签名非十六进制", body: good, signature: "zz", status: http.StatusUnauthorized},
		{
			name:      "无效方向",
			body:      `{"symbol":"BTC/USDT","side":"flat","leverage":20,"entry_price":"1"}`,
			signature: sign(`{"symbol":"BTC/USDT","side":"flat","leverage":20,"entry_price":"1"}`),
			status:    http.StatusBadRequest,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := &fakeDispatcher{}
			g := newTestEngine(d)

			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(c.body))
			req.Header.Set("Content-Type", "application/json")
			if c.signature != "" {
				req.Header.Set("X-Signature", c.signature)
			}
			w := httptest.NewRecorder()
			g.ServeHTTP(w, req)

			if w.Code != c.status {
				t.Fatalf("status %d, want %d: %s", w.Code, c.status, w.Body.String())
			}
			if len(d.signals) != c.dispatch {
				t.Fatalf("dispatched %d signals, want %d", len(d.signals), c.dispatch)
			}
			if c.dispatch == 1 && (d.signals[0].Side != model.Short || d.signals[0].Symbol != "BTC/USDT") {
				t.Fatalf("unexpected signal %+v", d.signals[0])
			}
		})
	}
}

func TestVerifySignature_EmptySecret(t *testing.T) {
	body := []byte(`{}`)
	h := hmac.New(sha256.New, nil)
	h.Write(body)
	if VerifySignature("", body, hex.EncodeToString(h.Sum(nil))) {
		t.Fatalf("empty secret must reject")
	}
}
