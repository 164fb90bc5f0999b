package search

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func pair(thumb, full string) string {
	return fmt.Sprintf(`["%s",183,275],["%s",1200,1800]`, thumb, full)
}

func TestExtractLinks_OrderAndCount(t *testing.T) {
	want := []string{
		"https://img.example.com/a.jpg",
		"http://img.example.com/b.png",
		"https://img.example.com/a.jpg", // 重复保留
	}
	var sb strings.Builder
	sb.WriteString(`<html><head><script>var x = 1;</script></head><body>`)
	sb.WriteString(`<script>AF_initDataCallback({data:[`)
	sb.WriteString(pair("https://encrypted-tbn0.gstatic.com/images?q=1", want[0]))
	sb.WriteString(`,null,`)
	sb.WriteString(pair("https://encrypted-tbn0.gstatic.com/images?q=2", want[1]))
	sb.WriteString(`]});</script><script>`)
	sb.WriteString(pair("https://encrypted-tbn0.gstatic.com/images?q=3", want[2]))
	sb.WriteString(`</script></body></html>`)

	got, err := ExtractLinks([]byte(sb.String()))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("链接不符合预期：\ngot=%v\nwant=%v", got, want)
	}
}

func TestExtractLinks_IgnoreOutsideScript(t *testing.T) {
	html := `<html><body><p>` + pair("https://t/1", "https://x/1.jpg") + `</p></body></html>`
	got, err := ExtractLinks([]byte(html))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("script 之外的内容不应被提取：%v", got)
	}
}

func TestExtractLinks_NoMatchAndNonHTTP(t *testing.T) {
	html := `<script>["ftp://x/1.jpg",1,2],["ftp://x/2.jpg",1,2]; ["https://x/3.jpg",1]</script>`
	got, err := ExtractLinks([]byte(html))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("期望空结果，实际：%v", got)
	}
}

func TestExtractLinks_UnescapeJS(t *testing.T) {
	html := `<script>` + pair("https://t/1", `https://x.test/img?id=7&s=1`) + `</script>`
	got, err := ExtractLinks([]byte(html))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0] != "https://x.test/img?id=7&s=1" {
		t.Fatalf("转义未还原：%v", got)
	}
}
