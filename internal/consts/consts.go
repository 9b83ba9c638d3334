package consts

const (
	// RequestId 请求id名称
	RequestId = "request_id"

	// webhook 签名头，内容为 body 的 HMAC-SHA256 十六进制
	Signature = "X-Signature"

	TimeLayout = "2006-01-02 15:04:05"
)
