package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/crawlclient/internal/console"
	"github.com/RecoveryAshes/crawlclient/internal/models"
)

// stubFetcher 按顺序返回预设结果并记录请求地址
type stubFetcher struct {
	results   []stubResult
	endpoints []string
	delay     time.Duration
}

type stubResult struct {
	resp *models.Response
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, endpoint string) (*models.Response, error) {
	f.endpoints = append(f.endpoints, endpoint)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if len(f.results) == 0 {
		return &models.Response{StatusCode: http.StatusOK}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.resp, r.err
}

func runSession(t *testing.T, fetcher Fetcher, input string) (string, *Session) {
	t.Helper()
	var out bytes.Buffer
	s := NewSession(fetcher, SessionOptions{
		In:  strings.NewReader(input),
		Out: &out,
	})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run返回错误: %v", err)
	}
	return out.String(), s
}

func TestSession_Success(t *testing.T) {
	fetcher := &stubFetcher{results: []stubResult{
		{resp: &models.Response{StatusCode: 200, Body: "OK"}},
	}}

	out, s := runSession(t, fetcher, "example.com\n\nn\n")

	expect := console.PromptURL + console.PromptDepth +
		"Generating response...\n" +
		"Response received:\n" +
		"OK\n" +
		console.PromptRetry
	if out != expect {
		t.Errorf("输出错误:\n期望 %q\n实际 %q", expect, out)
	}
	if fetcher.endpoints[0] != "http://localhost:1234/crawl?url=example.com" {
		t.Errorf("请求地址错误: %s", fetcher.endpoints[0])
	}
	if s.Stats().Successes != 1 {
		t.Errorf("统计错误: %+v", s.Stats())
	}
}

func TestSession_HTTPFailure(t *testing.T) {
	fetcher := &stubFetcher{results: []stubResult{
		{resp: &models.Response{StatusCode: 404, Body: "not found"}},
	}}

	out, _ := runSession(t, fetcher, "example.com\n2\nn\n")

	if fetcher.endpoints[0] != "http://localhost:1234/crawl?url=example.com&deep=2" {
		t.Errorf("请求地址错误: %s", fetcher.endpoints[0])
	}
	if !strings.Contains(out, "Failed to get response. Status code: 404\n") {
		t.Errorf("输出应包含状态码: %q", out)
	}
	if strings.Contains(out, "not found") {
		t.Errorf("失败时不应输出响应体: %q", out)
	}
}

func TestSession_NonOKStatusCodes(t *testing.T) {
	for _, code := range []int{201, 204, 302, 400, 500, 503} {
		t.Run(fmt.Sprintf("状态码%d", code), func(t *testing.T) {
			fetcher := &stubFetcher{results: []stubResult{
				{resp: &models.Response{StatusCode: code}},
			}}
			out, s := runSession(t, fetcher, "a\n\nn\n")
			if !strings.Contains(out, fmt.Sprintf("Status code: %d", code)) {
				t.Errorf("输出应包含状态码%d: %q", code, out)
			}
			if s.Stats().HTTPFailures != 1 {
				t.Errorf("统计错误: %+v", s.Stats())
			}
		})
	}
}

func TestSession_NetworkErrorContinues(t *testing.T) {
	fetcher := &stubFetcher{results: []stubResult{
		{err: &NetworkError{Err: errors.New("connection refused")}},
		{resp: &models.Response{StatusCode: 200, Body: "second"}},
	}}

	out, s := runSession(t, fetcher, "a\n\ny\nb\n\nn\n")

	if !strings.Contains(out, "An error occurred: connection refused\n") {
		t.Errorf("输出应包含错误描述: %q", out)
	}
	if strings.Count(out, console.PromptRetry) != 2 {
		t.Errorf("网络错误后应继续到重试提示: %q", out)
	}
	if !strings.Contains(out, "second") {
		t.Errorf("重试后应进行第二轮: %q", out)
	}
	stats := s.Stats()
	if stats.Iterations != 2 || stats.NetworkErrors != 1 || stats.Successes != 1 {
		t.Errorf("统计错误: %+v", stats)
	}
}

func TestSession_RetryAnswers(t *testing.T) {
	tests := []struct {
		name       string
		answer     string
		iterations int
	}{
		{"小写y继续", "y", 2},
		{"大写Y继续", "Y", 2},
		{"n结束", "n", 1},
		{"空行结束", "", 1},
		{"yes结束", "yes", 1},
		{"带空格结束", " y", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{}
			input := "a\n\n" + tt.answer + "\nb\n\nn\n"
			runSession(t, fetcher, input)
			if len(fetcher.endpoints) != tt.iterations {
				t.Errorf("期望 %d 轮, 实际 %d 轮", tt.iterations, len(fetcher.endpoints))
			}
		})
	}
}

func TestSession_EmptyURLForwarded(t *testing.T) {
	fetcher := &stubFetcher{}
	runSession(t, fetcher, "\n\nn\n")

	if fetcher.endpoints[0] != "http://localhost:1234/crawl?url=" {
		t.Errorf("空URL应原样转发: %s", fetcher.endpoints[0])
	}
}

func TestSession_EOF(t *testing.T) {
	t.Run("URL提示时输入结束", func(t *testing.T) {
		fetcher := &stubFetcher{}
		out, _ := runSession(t, fetcher, "")
		if len(fetcher.endpoints) != 0 {
			t.Error("不应发起请求")
		}
		if out != console.PromptURL {
			t.Errorf("输出错误: %q", out)
		}
	})

	t.Run("重试提示时输入结束", func(t *testing.T) {
		fetcher := &stubFetcher{}
		runSession(t, fetcher, "a\n3\n")
		if len(fetcher.endpoints) != 1 {
			t.Errorf("期望1轮, 实际 %d", len(fetcher.endpoints))
		}
	})
}

func TestSession_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSession(&stubFetcher{}, SessionOptions{In: strings.NewReader("a\n\nn\n"), Out: &bytes.Buffer{}})
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("期望context.Canceled, 实际 %v", err)
	}
}

func TestSession_Report(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	fetcher := &stubFetcher{results: []stubResult{
		{resp: &models.Response{StatusCode: 500}},
	}}

	s := NewSession(fetcher, SessionOptions{
		In:         strings.NewReader("a\n1\nn\n"),
		Out:        &bytes.Buffer{},
		ReportPath: path,
	})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run返回错误: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取报告失败: %v", err)
	}
	var report models.SessionReport
	if err := report.FromJSON(data); err != nil {
		t.Fatalf("解析报告失败: %v", err)
	}
	if report.Stats.HTTPFailures != 1 || report.Iterations[0].StatusCode != 500 {
		t.Errorf("报告内容错误: %+v", report.Stats)
	}
}

func TestSession_Spinner(t *testing.T) {
	var spinner bytes.Buffer
	var out bytes.Buffer
	s := NewSession(&stubFetcher{
		results: []stubResult{{resp: &models.Response{StatusCode: 200, Body: "OK"}}},
		delay:   200 * time.Millisecond,
	}, SessionOptions{
		In:         strings.NewReader("a\n\nn\n"),
		Out:        &out,
		SpinnerOut: &spinner,
	})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run返回错误: %v", err)
	}
	if spinner.Len() == 0 {
		t.Error("等待期间应输出旋转指示器")
	}
	if strings.Contains(out.String(), "waiting") {
		t.Error("等待指示器不应写入标准输出")
	}
	if !strings.Contains(out.String(), "Response received:\nOK\n") {
		t.Errorf("输出错误: %q", out.String())
	}
}

// 与真实HTTP服务交互的端到端场景
func TestSession_Scenarios(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/crawl" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("deep") == "2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	base := server.URL + "/crawl"
	client := NewCrawlClient(ClientConfig{BaseURL: base})

	var out bytes.Buffer
	s := NewSession(client, SessionOptions{
		BaseURL: base,
		In:      strings.NewReader("example.com\n\ny\nexample.com\n2\nY\nexample.com\n\nn\n"),
		Out:     &out,
	})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run返回错误: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Response received:\nOK\n") {
		t.Errorf("场景1输出错误: %q", got)
	}
	if !strings.Contains(got, "Failed to get response. Status code: 404\n") {
		t.Errorf("场景2输出错误: %q", got)
	}
	stats := s.Stats()
	if stats.Iterations != 3 || stats.Successes != 2 || stats.HTTPFailures != 1 {
		t.Errorf("统计错误: %+v", stats)
	}
}

func TestSession_ServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := server.URL + "/crawl"
	server.Close()

	var out bytes.Buffer
	s := NewSession(NewCrawlClient(ClientConfig{BaseURL: base}), SessionOptions{
		BaseURL: base,
		In:      strings.NewReader("example.com\n\nn\n"),
		Out:     &out,
	})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("网络错误不应终止会话: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "An error occurred: ") {
		t.Errorf("输出应包含错误行: %q", got)
	}
	if !strings.HasSuffix(got, console.PromptRetry) {
		t.Errorf("应到达重试提示: %q", got)
	}
}

func TestSession_UnsafeCharsInURL(t *testing.T) {
	var gotURL string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.Query().Get("url")
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	base := server.URL + "/crawl"
	var out bytes.Buffer
	s := NewSession(NewCrawlClient(ClientConfig{BaseURL: base}), SessionOptions{
		BaseURL: base,
		In:      strings.NewReader("example.com/a b\n\nn\n"),
		Out:     &out,
	})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run返回错误: %v", err)
	}

	if !strings.Contains(out.String(), "Response received:\nOK\n") {
		t.Errorf("包含空格的URL应正常请求: %q", out.String())
	}
	if gotURL != "example.com/a b" {
		t.Errorf("服务端收到的url参数错误: %q", gotURL)
	}
}
