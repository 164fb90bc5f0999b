package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout 是单个请求（含读 body）的总超时。
	DefaultTimeout = 20 * time.Second

	// DefaultUserAgent 模拟桌面浏览器，避免最简单的爬虫拦截。
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.1 Safari/605.1.15"
)

// Options 描述 client 的网络策略。零值可用：无代理、默认超时、不重试、默认 UA。
type Options struct {
	ProxyURL string
	Timeout  time.Duration
	// RetryMax 表示连接层最大重试次数（不含首次尝试）；仅对无 body 的 GET/HEAD 生效。
	RetryMax  int
	UserAgent string
}

// Transport 把“固定请求头 + 代理 + 有界重试”固化为统一策略。
//
// 搜索与下载只关心“发 GET、拿状态码与 body”，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	UserAgent string
	RetryMax  int

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.userAgent())
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (t *Transport) userAgent() string {
	if ua := strings.TrimSpace(t.UserAgent); ua != "" {
		return ua
	}
	return DefaultUserAgent
}

// NewClient 构造搜索与下载共用的 HTTP client。
//
// 规则：
// - ProxyURL 非空：走代理，且禁用 keep-alive（代理池轮换依赖每请求新连接）
// - 所有请求带固定的浏览器 UA（调用方显式设置时不覆盖）
// - Timeout<=0 时使用 DefaultTimeout
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}

	disableKeepAlives := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 缺少 scheme 或 host")
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: &Transport{
			Base:              base,
			UserAgent:         opts.UserAgent,
			RetryMax:          opts.RetryMax,
			DisableKeepAlives: disableKeepAlives,
		},
		Timeout: timeout,
	}, nil
}
