package search

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/infra/cache"
)

const (
	// DefaultBaseURL 是图片搜索端点。
	DefaultBaseURL = "https://www.google.com/search"

	ParamAny = "as_oq"
	ParamAll = "as_q"

	maxPageBytes = 16 << 20
)

// 固定参数：图片搜索、安全搜索、尺寸过滤。顺序即请求中的顺序。
var staticParams = [][2]string{
	{"tbm", "isch"},
	{"safe", "images"},
	{"tbs", "isz:lt,islt:10mp"},
}

// Client 负责“拼请求 -> 发请求 -> 交给 ExtractLinks”，不做重试、不改词表。
type Client struct {
	HTTP    *http.Client
	BaseURL string

	// Dump 非空时，零链接的搜索页会落盘便于排查。
	Dump cache.Store
	Log  *slog.Logger

	// MaxPageBytes 限制读取的页面大小，<=0 时取默认值；超出部分被丢弃并记 warn。
	MaxPageBytes int64
}

func (c *Client) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return u
}

func (c *Client) log() *slog.Logger {
	if c.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Log
}

// Search 对 keywords 执行一次图片搜索。
func (c *Client) Search(ctx context.Context, keywords []string, mode domain.MatchMode) (domain.SearchResult, error) {
	if !mode.Valid() {
		return domain.SearchResult{}, &InvalidModeError{Mode: mode}
	}
	if len(keywords) == 0 {
		return domain.SearchResult{}, errors.New("keywords 不能为空")
	}
	if c.HTTP == nil {
		return domain.SearchResult{}, errors.New("http client 不能为空")
	}

	req := domain.SearchRequest{Keywords: append([]string(nil), keywords...), Mode: mode}
	u, err := BuildRequestURL(c.baseURL(), req)
	if err != nil {
		return domain.SearchResult{}, err
	}

	body, finalURL, err := c.fetch(ctx, u)
	if err != nil {
		return domain.SearchResult{RequestURL: finalURL}, &TransportError{URL: finalURL, Err: err}
	}

	links, err := ExtractLinks(body)
	if err != nil {
		return domain.SearchResult{RequestURL: finalURL}, err
	}
	if len(links) == 0 && c.Dump.Enabled() {
		if p, derr := c.Dump.WriteSearchPage(uuid.NewString(), finalURL, body); derr == nil {
			c.log().Warn("搜索页未解析出任何链接，已保存快照", "url", finalURL, "dump", p)
		} else {
			c.log().Warn("保存搜索页快照失败", "url", finalURL, "err", derr)
		}
	}
	return domain.SearchResult{Links: links, RequestURL: finalURL}, nil
}

func (c *Client) fetch(ctx context.Context, u string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, u, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, u, err
	}
	defer resp.Body.Close()

	finalURL := u
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	if resp.Request != nil && resp.Request.URL != nil && strings.HasPrefix(resp.Request.URL.Path, "/sorry") {
		return nil, finalURL, &BlockedError{Reason: "sorry"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, finalURL, &HTTPStatusError{StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	limit := c.MaxPageBytes
	if limit <= 0 {
		limit = maxPageBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, finalURL, err
	}
	if int64(len(b)) > limit {
		b = b[:limit]
		c.log().Warn("搜索页超过大小上限，已截断，后半部分的链接会丢失", "url", finalURL, "limit_bytes", limit)
	}
	return b, finalURL, nil
}

// BuildRequestURL 由固定参数与本次关键词构造请求 URL。
// 两个关键词参数总是同时出现：按模式填充其一，另一个留空。
// ':' 与 ',' 保持不转义（tbs 的取值依赖这一点保持可读）。
func BuildRequestURL(base string, req domain.SearchRequest) (string, error) {
	if !req.Mode.Valid() {
		return "", &InvalidModeError{Mode: req.Mode}
	}
	bu, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if bu.Scheme == "" || bu.Host == "" {
		return "", errors.New("search base url 缺少 scheme 或 host")
	}

	anyV, allV := "", ""
	if req.Mode == domain.MatchAny {
		anyV = req.Query()
	} else {
		allV = req.Query()
	}

	params := make([][2]string, 0, 2+len(staticParams))
	params = append(params, [2]string{ParamAny, anyV}, [2]string{ParamAll, allV})
	params = append(params, staticParams...)

	var b strings.Builder
	for i, kv := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(queryEscape(kv[0]))
		b.WriteByte('=')
		b.WriteString(queryEscape(kv[1]))
	}
	bu.RawQuery = b.String()
	bu.Fragment = ""
	return bu.String(), nil
}

func queryEscape(s string) string {
	s = url.QueryEscape(s)
	s = strings.ReplaceAll(s, "%3A", ":")
	return strings.ReplaceAll(s, "%2C", ",")
}
