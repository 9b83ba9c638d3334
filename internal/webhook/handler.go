package webhook

import (
	"bracketflow/internal/consts"
	"bracketflow/internal/execution"
	"bracketflow/internal/model"
	"bracketflow/pkg/logger"
	"bracketflow/pkg/response"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxBodySize = 64 << 10

var errBadSignature = errors.New("invalid signature")

// Dispatcher 由 execution.Orchestrator 实现
type Dispatcher interface {
	Dispatch(sig model.TradeSignal, callback func(*execution.Execution, error))
}

// Handler TradingView 等外部信号源的 webhook 接收器
type Handler struct {
	secret     string
	dispatcher Dispatcher
	decoder    *Decoder
}

func NewHandler(secret string, d Dispatcher) *Handler {
	return &Handler{
		secret:     secret,
		dispatcher: d,
		decoder:    NewDecoder(),
	}
}

func (h *Handler) Load(g *gin.Engine) {
	g.POST("/webhook", h.HandleWebhook())
}

// HandleWebhook 验签和解析后异步执行，立即返回 202
func (h *Handler) HandleWebhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 获取签名
		signature := c.GetHeader(consts.Signature)
		if signature == "" {
			response.Error(c, http.StatusUnauthorized, errors.New("missing signature"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
		if err != nil {
			response.Error(c, http.StatusBadRequest, err)
			return
		}

		// 验签
		if !VerifySignature(h.secret, body, signature) {
			response.Error(c, http.StatusUnauthorized, errBadSignature)
			return
		}

		sig, err := h.decoder.Decode(body)
		if err != nil {
			response.Error(c, http.StatusBadRequest, err)
			return
		}

		reqId := c.GetString(consts.RequestId)
		logger.Info("webhook signal received",
			logger.Pair(consts.RequestId, reqId),
			logger.Pair("symbol", sig.Symbol),
			logger.Pair("side", string(sig.Side)),
			logger.Pair("leverage", sig.Leverage),
			logger.Pair("entry_price", sig.EntryPrice.String()))

		h.dispatcher.Dispatch(sig, func(exec *execution.Execution, err error) {
			if err != nil {
				logger.Warnf("webhook %s signal %s not executed: %v", reqId, sig, err)
				return
			}
			logger.Infof("webhook %s signal %s started execution %s", reqId, sig, exec.ID)
		})
		response.JSON(c, http.StatusAccepted, gin.H{"symbol": sig.Symbol, "side": sig.Side})
	}
}

// VerifySignature 未配置密钥时拒绝所有请求
func VerifySignature(secret string, body []byte, signatureHeader string) bool {
	if secret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	expectedMAC := h.Sum(nil)
	providedMAC, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}
	return hmac.Equal(providedMAC, expectedMAC)
}
