package core

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RecoveryAshes/crawlclient/internal/models"
	"github.com/RecoveryAshes/crawlclient/internal/utils"
	"github.com/andybalholm/brotli"
)

// ClientConfig 爬取服务客户端配置
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration // 0表示不设置超时, 由传输层决定
	Headers models.HeaderProvider
}

// NetworkError 传输层错误
// 连接被拒绝、DNS失败、超时、请求地址被HTTP层拒绝等
type NetworkError struct {
	Endpoint string
	Err      error
}

// Error 返回底层错误描述
func (e *NetworkError) Error() string {
	return e.Err.Error()
}

// Unwrap 支持errors.Unwrap
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// CrawlClient 爬取服务客户端
// 每次 Fetch 只发一次GET, 不重试
type CrawlClient struct {
	config ClientConfig
	client *http.Client
}

// NewCrawlClient 创建客户端
func NewCrawlClient(config ClientConfig) *CrawlClient {
	if config.BaseURL == "" {
		config.BaseURL = models.DefaultBaseURL
	}
	return &CrawlClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// BaseURL 返回服务地址
func (c *CrawlClient) BaseURL() string {
	return c.config.BaseURL
}

// Fetch 对 endpoint 发起GET请求
// 非200状态码不是错误, 通过 Response.StatusCode 返回
// 只有传输层失败返回 *NetworkError
func (c *CrawlClient) Fetch(ctx context.Context, endpoint string) (*models.Response, error) {
	start := time.Now()

	// endpoint 本身保持原样, 仅在发送前编码请求行中不允许出现的字符
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requoteURI(endpoint), nil)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}

	if c.config.Headers != nil {
		headers, err := c.config.Headers.GetHeaders()
		if err != nil {
			return nil, &NetworkError{Endpoint: endpoint, Err: err}
		}
		for name, values := range headers {
			req.Header[name] = values
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: fmt.Errorf("读取响应失败: %w", err)}
	}

	encoding := resp.Header.Get("Content-Encoding")
	body, err := decompressResponse(encoding, raw)
	if err != nil {
		return nil, &NetworkError{Endpoint: endpoint, Err: err}
	}

	response := &models.Response{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Encoding:   encoding,
		Duration:   time.Since(start),
	}

	utils.Logger.Debug().
		Str("endpoint", endpoint).
		Int("status", response.StatusCode).
		Int("size", len(body)).
		Dur("duration", response.Duration).
		Msg("收到爬取服务响应")

	return response, nil
}

// decompressResponse 根据Content-Encoding解码响应体
// 默认传输已透明处理gzip, 这里覆盖附加了Accept-Encoding头部的情况
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "":
		return body, nil

	case "gzip":
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		// HTTP的deflate是zlib封装, 部分服务直接发送原始DEFLATE
		if reader, err := zlib.NewReader(bytes.NewReader(body)); err == nil {
			decompressed, err := io.ReadAll(reader)
			reader.Close()
			if err == nil {
				return decompressed, nil
			}
		}

		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s, 返回原始内容", contentEncoding)
		return body, nil
	}
}

// uriSafeChars 除字母数字外请求地址中原样保留的字符 (RFC 3986)
const uriSafeChars = "-._~!#$&'()*+,/:;=?@[]"

// requoteURI 对RFC 3986允许范围之外的字符做百分号编码
// 已有的 %XX 转义保持不变, 不成对的 '%' 编码为 %25
func requoteURI(uri string) string {
	var b strings.Builder
	b.Grow(len(uri))

	for i := 0; i < len(uri); i++ {
		c := uri[i]
		switch {
		case c == '%':
			if i+2 < len(uri) && isHex(uri[i+1]) && isHex(uri[i+2]) {
				b.WriteByte(c)
			} else {
				b.WriteString("%25")
			}
		case c < 0x80 && (isAlnum(c) || strings.IndexByte(uriSafeChars, c) >= 0):
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
