package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/imgrab/internal/domain"
)

// InvalidModeError 表示 match 模式既不是 any 也不是 all（调用方编程错误）。
type InvalidModeError struct {
	Mode domain.MatchMode
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("match 模式只能是 any 或 all，实际是 %q", string(e.Mode))
}

// TransportError 表示搜索请求在网络层失败（含非 200 与拦截页）。
// 本层不重试；上层把它视为“本轮零结果”。
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("搜索请求失败 %s：%v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport 判断 err 是否为 TransportError。
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// HTTPStatusError 表示搜索端点返回了非 200 状态码。
type HTTPStatusError struct {
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// BlockedError 表示请求被引导到了人机验证页（例如 /sorry/）。
// 不尝试绕过；建议降低频率或配置代理。
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	if strings.TrimSpace(e.Reason) == "" {
		return "blocked"
	}
	return "blocked: " + strings.TrimSpace(e.Reason)
}
