package models

import (
	"encoding/json"
	"time"
)

// Iteration 一轮"输入-请求-输出"循环
type Iteration struct {
	ID         string    `json:"id"`
	TargetURL  string    `json:"target_url"`
	Depth      string    `json:"depth,omitempty"`
	Endpoint   string    `json:"endpoint"`
	Outcome    Outcome   `json:"outcome"`
	StatusCode int       `json:"status_code,omitempty"`
	BodySize   int       `json:"body_size,omitempty"` // 字节
	Error      string    `json:"error,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}

// NewIteration 创建新的循环记录
func NewIteration(targetURL, depth, endpoint string) *Iteration {
	return &Iteration{
		ID:        generateID(),
		TargetURL: targetURL,
		Depth:     depth,
		Endpoint:  endpoint,
		StartTime: time.Now(),
	}
}

// Duration 本轮耗时(秒)
func (it *Iteration) Duration() float64 {
	if it.EndTime.IsZero() {
		return 0
	}
	return it.EndTime.Sub(it.StartTime).Seconds()
}

// SessionStats 会话统计
type SessionStats struct {
	Iterations    int `json:"iterations"`
	Successes     int `json:"successes"`
	HTTPFailures  int `json:"http_failures"`
	NetworkErrors int `json:"network_errors"`
}

// Record 按结果类别计数
func (s *SessionStats) Record(outcome Outcome) {
	s.Iterations++
	switch outcome {
	case OutcomeSuccess:
		s.Successes++
	case OutcomeHTTPFailure:
		s.HTTPFailures++
	case OutcomeNetworkError:
		s.NetworkErrors++
	}
}

// SessionReport 会话报告
type SessionReport struct {
	SessionID  string       `json:"session_id"`
	BaseURL    string       `json:"base_url"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    time.Time    `json:"end_time"`
	Duration   float64      `json:"duration"` // 秒
	Stats      SessionStats `json:"stats"`
	Iterations []*Iteration `json:"iterations"`
}

// NewSessionReport 创建会话报告
func NewSessionReport(baseURL string) *SessionReport {
	return &SessionReport{
		SessionID:  generateID(),
		BaseURL:    baseURL,
		StartTime:  time.Now(),
		Iterations: make([]*Iteration, 0),
	}
}

// Add 追加一轮记录并更新统计
func (r *SessionReport) Add(it *Iteration) {
	r.Iterations = append(r.Iterations, it)
	r.Stats.Record(it.Outcome)
}

// Finish 标记会话结束
func (r *SessionReport) Finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime).Seconds()
}

// ToJSON 序列化为JSON
func (r *SessionReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *SessionReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
