package search

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// 图片结果以两个相邻的三元组出现：["<缩略图>", h, w], ["<原图>", h, w]。
// 取第二个三元组的 URL（原图）。
var linkPairRE = regexp.MustCompile(`\["(http[^"]*)", *\d+, *\d+\], *\["(http[^"]*)", *\d+, *\d+\]`)

// ExtractLinks 从搜索结果页的 <script> 内容中提取候选图片 URL。
//
// - 只在 script 元素内部匹配；不同 script 之间不会拼接成一对
// - 返回顺序与页面中出现的顺序一致；不去重
// - 不校验 URL 是否可达或是否为图片（由下载阶段负责）
func ExtractLinks(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, 100)
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		for _, m := range linkPairRE.FindAllStringSubmatch(s.Text(), -1) {
			links = append(links, unescapeJS(m[2]))
		}
	})
	return links, nil
}

// unescapeJS 还原脚本字符串里的 = 之类转义；失败时保留原文。
func unescapeJS(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var s string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &s); err != nil {
		return raw
	}
	return s
}
