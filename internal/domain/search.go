package domain

import (
	"fmt"
	"strings"
)

// MatchMode 决定多个关键词之间的逻辑关系。
type MatchMode string

const (
	// MatchAny：结果命中任一关键词即可（OR）。
	MatchAny MatchMode = "any"
	// MatchAll：结果应同时命中全部关键词（AND，具体语义取决于搜索引擎）。
	MatchAll MatchMode = "all"
)

// ParseMatchMode 解析配置/CLI 中的 match 字段（大小写不敏感）。
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case MatchAny:
		return MatchAny, nil
	case MatchAll:
		return MatchAll, nil
	default:
		return "", fmt.Errorf("match 只能是 any 或 all，实际是 %q", s)
	}
}

// Valid 判断 m 是否为已知模式。
func (m MatchMode) Valid() bool { return m == MatchAny || m == MatchAll }

// SearchRequest 是一次搜索的不可变描述：每次搜索都重新构造，用完即弃。
type SearchRequest struct {
	Keywords []string
	Mode     MatchMode
}

// Query 返回拼接后的关键词串（单空格分隔）。
func (r SearchRequest) Query() string { return strings.Join(r.Keywords, " ") }

// Describe 返回便于日志阅读的关键词表达式：ALL 用空格，ANY 用 " OR "。
func (r SearchRequest) Describe() string {
	if r.Mode == MatchAny {
		return strings.Join(r.Keywords, " OR ")
	}
	return strings.Join(r.Keywords, " ")
}

// SearchResult 是一次搜索的产物（不落盘）。
type SearchResult struct {
	// Links 为候选图片 URL，顺序与页面中首次出现的顺序一致（可能重复）。
	Links []string
	// RequestURL 是最终请求的完整 URL（诊断用）。
	RequestURL string
}
