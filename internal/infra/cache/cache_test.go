package cache

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestStore_WriteSearchPage(t *testing.T) {
	s := New(t.TempDir())

	path, err := s.WriteSearchPage("abc-123", "https://www.google.com/search?as_q=cat", []byte("<html/>"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !strings.HasSuffix(path, "abc-123.html") {
		t.Fatalf("路径不符合预期：%q", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取快照失败：%v", err)
	}
	if !strings.HasPrefix(string(b), "<!-- https://www.google.com/search?as_q=cat -->\n") {
		t.Fatalf("快照首行应为请求 URL：%q", string(b))
	}
	if !strings.HasSuffix(string(b), "<html/>") {
		t.Fatalf("快照内容不一致：%q", string(b))
	}
}

func TestStore_Disabled(t *testing.T) {
	s := New("  ")
	if s.Enabled() {
		t.Fatalf("空目录应禁用")
	}
	if _, err := s.WriteSearchPage("x", "u", nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("期望 ErrDisabled，实际：%v", err)
	}
}

func TestStore_RejectPathTraversal(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.WriteSearchPage("../x", "u", nil); err == nil {
		t.Fatalf("期望非法 id 报错")
	}
}
