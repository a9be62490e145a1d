package core

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/RecoveryAshes/crawlclient/internal/console"
	"github.com/RecoveryAshes/crawlclient/internal/models"
	"github.com/RecoveryAshes/crawlclient/internal/utils"
	"github.com/rs/zerolog"
)

// 输出文本
const (
	MsgGenerating = "Generating response..."
	MsgReceived   = "Response received:"
	MsgFailedFmt  = "Failed to get response. Status code: %d\n"
	MsgErrorFmt   = "An error occurred: %v\n"
)

// Fetcher 对单个请求地址发起请求
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (*models.Response, error)
}

// SessionOptions 会话选项
type SessionOptions struct {
	BaseURL    string
	In         io.Reader
	Out        io.Writer
	SpinnerOut io.Writer // 为nil时不显示等待指示器
	ReportPath string    // 为空时不生成报告
}

// Session 交互式请求循环
// 状态只有两个: 输入 ⇄ 是否重试, 每轮的数据在本轮结束后丢弃
type Session struct {
	fetcher  Fetcher
	prompter *console.Prompter
	opts     SessionOptions
	report   *models.SessionReport
}

// NewSession 创建会话
func NewSession(fetcher Fetcher, opts SessionOptions) *Session {
	if opts.BaseURL == "" {
		opts.BaseURL = models.DefaultBaseURL
	}
	return &Session{
		fetcher:  fetcher,
		prompter: console.NewPrompter(opts.In, opts.Out),
		opts:     opts,
	}
}

// Run 运行循环, 直到用户不再重试或输入结束
// 单轮内的请求失败不会终止会话, 只有读写终端失败才返回错误
func (s *Session) Run(ctx context.Context) error {
	s.report = models.NewSessionReport(s.opts.BaseURL)
	defer s.finish()

	utils.Logger.Info().
		Str("session_id", s.report.SessionID).
		Str("base_url", s.opts.BaseURL).
		Msg("交互会话开始")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		again, err := s.iterate(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				utils.Debug("输入结束, 会话退出")
				return nil
			}
			return err
		}
		if !again {
			return nil
		}
	}
}

// Stats 返回当前会话统计
func (s *Session) Stats() models.SessionStats {
	if s.report == nil {
		return models.SessionStats{}
	}
	return s.report.Stats
}

// iterate 执行一轮, 返回是否继续
func (s *Session) iterate(ctx context.Context) (bool, error) {
	targetURL, err := s.prompter.Ask(console.PromptURL)
	if err != nil {
		return false, err
	}

	depth, err := s.prompter.Ask(console.PromptDepth)
	if err != nil {
		return false, err
	}

	endpoint := models.BuildEndpoint(s.opts.BaseURL, targetURL, depth)
	it := models.NewIteration(targetURL, depth, endpoint)

	s.prompter.Println(MsgGenerating)

	resp, err := s.fetch(ctx, endpoint)
	it.EndTime = time.Now()

	switch {
	case err != nil:
		it.Outcome = models.OutcomeNetworkError
		it.Error = err.Error()
		s.prompter.Printf(MsgErrorFmt, err)
	case resp.OK():
		it.Outcome = models.OutcomeSuccess
		it.StatusCode = resp.StatusCode
		it.BodySize = len(resp.Body)
		s.prompter.Println(MsgReceived)
		s.prompter.Println(resp.Body)
	default:
		it.Outcome = models.ClassifyStatus(resp.StatusCode)
		it.StatusCode = resp.StatusCode
		it.BodySize = len(resp.Body)
		s.prompter.Printf(MsgFailedFmt, resp.StatusCode)
	}

	s.record(it)

	answer, err := s.prompter.Ask(console.PromptRetry)
	if err != nil {
		return false, err
	}
	return console.IsYes(answer), nil
}

// fetch 发起请求, 按需显示等待指示器
func (s *Session) fetch(ctx context.Context, endpoint string) (*models.Response, error) {
	if s.opts.SpinnerOut == nil {
		return s.fetcher.Fetch(ctx, endpoint)
	}

	bar := utils.NewSpinner(s.opts.SpinnerOut, "waiting")
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	resp, err := s.fetcher.Fetch(ctx, endpoint)
	close(done)
	<-stopped
	_ = bar.Finish()

	return resp, err
}

// record 记录本轮结果
func (s *Session) record(it *models.Iteration) {
	s.report.Add(it)

	level := zerolog.InfoLevel
	if it.Outcome == models.OutcomeNetworkError {
		level = zerolog.WarnLevel
	}
	utils.Logger.WithLevel(level).
		Str("iteration_id", it.ID).
		Str("endpoint", it.Endpoint).
		Str("outcome", string(it.Outcome)).
		Int("status", it.StatusCode).
		Int("size", it.BodySize).
		Str("error", it.Error).
		Float64("duration", it.Duration()).
		Msg("请求完成")
}

// finish 输出统计并按需保存报告
func (s *Session) finish() {
	s.report.Finish()
	stats := s.report.Stats

	utils.Logger.Info().
		Str("session_id", s.report.SessionID).
		Int("iterations", stats.Iterations).
		Int("successes", stats.Successes).
		Int("http_failures", stats.HTTPFailures).
		Int("network_errors", stats.NetworkErrors).
		Float64("duration", s.report.Duration).
		Msg("交互会话结束")

	if s.opts.ReportPath == "" {
		return
	}
	if err := utils.SaveSessionReport(s.opts.ReportPath, s.report); err != nil {
		utils.Error(err, "保存会话报告失败")
	}
}
