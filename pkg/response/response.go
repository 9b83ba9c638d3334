package response

import (
	"bracketflow/internal/consts"

	"github.com/gin-gonic/gin"
)

// 代表响应给客户端的的一个消息结构，包括错误码，错误信息，响应数据
type ApiResponse struct {
	RequestId string      `json:"request_id"` // 请求的唯一ID
	Code      int         `json:"code"`       // 错误码 0表示无错误
	Message   string      `json:"message"`    // 提示信息
	Data      interface{} `json:"data"`
}

// JSON 成功响应，status 一般为 200 或 202
func JSON(c *gin.Context, status int, data interface{}) {
	c.JSON(status, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      0,
		Message:   "ok",
		Data:      data,
	})
}

// Error 失败响应，code 与 http 状态码一致
func Error(c *gin.Context, status int, err error) {
	message := "unknow error."
	if err != nil {
		message = err.Error()
	}
	c.AbortWithStatusJSON(status, ApiResponse{
		RequestId: c.GetString(consts.RequestId),
		Code:      status,
		Message:   message,
	})
}
