package models

import (
	"net/http"
	"time"
)

// Outcome 单次请求的结果类别
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"       // 状态码200
	OutcomeHTTPFailure  Outcome = "http_failure"  // 非200状态码
	OutcomeNetworkError Outcome = "network_error" // 传输层错误
)

// Response 爬取服务的响应
type Response struct {
	StatusCode int           `json:"status_code"`
	Body       string        `json:"-"`
	Encoding   string        `json:"encoding,omitempty"` // 原始 Content-Encoding
	Duration   time.Duration `json:"duration"`
}

// OK 是否为成功响应
func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// ClassifyStatus 根据状态码归类
// 只有200算成功,其余2xx同样视为失败
func ClassifyStatus(code int) Outcome {
	if code == http.StatusOK {
		return OutcomeSuccess
	}
	return OutcomeHTTPFailure
}
