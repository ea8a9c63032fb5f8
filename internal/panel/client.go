// Package panel 封装面板的REST API
// 所有成功响应统一为 {"response": <payload>}，缺少 response 键按畸形响应处理
package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hzhexee/remnawave-telegram-management-bot/internal/config"

	"github.com/sirupsen/logrus"
)

// 错误分类
var (
	// ErrTransport 网络或HTTP层失败
	ErrTransport = errors.New("请求面板失败")
	// ErrMalformed 2xx但响应结构不符合预期
	ErrMalformed = errors.New("面板响应结构异常")
)

// Client 面板API客户端
type Client struct {
	baseURL string
	token   string
	isLocal bool
	cookies map[string]string
	http    *http.Client
}

// New 创建面板API客户端
func New(cfg config.PanelConfig) (*Client, error) {
	cookies, err := config.ParseCookies(cfg.Cookies)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		isLocal: cfg.IsLocal,
		cookies: cookies,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// envelope 面板统一响应包装
type envelope struct {
	Response json.RawMessage `json:"response"`
}

// do 执行一次请求并解析 response 载荷到 out（out 可为 nil）
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	// 本地回环部署需要伪造转发头，面板否则拒绝明文请求
	if c.isLocal {
		req.Header.Set("X-Forwarded-Proto", "https")
		req.Header.Set("X-Forwarded-For", "127.0.0.1")
	}

	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}

	logrus.Debugf("HTTP %s %s - 状态: %d", method, path, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logrus.Errorf("面板API错误 %d: %s", resp.StatusCode, truncate(string(data), 512))
		return fmt.Errorf("%w: 状态码 %d", ErrTransport, resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Response == nil {
		return fmt.Errorf("%w: 缺少 response 键", ErrMalformed)
	}

	if out != nil {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
