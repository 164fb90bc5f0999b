package naming

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFormat_ZeroPad(t *testing.T) {
	s, err := New("", "", 5)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got := s.Format(1); got != "00001" {
		t.Fatalf("期望 00001，实际 %q", got)
	}
	// 超出宽度不截断。
	if got := s.Format(123456); got != "123456" {
		t.Fatalf("期望 123456，实际 %q", got)
	}
}

func TestFormatParse_PrefixSuffix(t *testing.T) {
	s, err := New("img_", "_2x", 4)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	name := s.Format(42)
	if name != "img_0042_2x" {
		t.Fatalf("期望 img_0042_2x，实际 %q", name)
	}

	for _, n := range []string{name, name + ".jpeg", name + ".png"} {
		got, err := s.Parse(n)
		if err != nil {
			t.Fatalf("解析 %q 不期望错误：%v", n, err)
		}
		if got != 42 {
			t.Fatalf("解析 %q 期望 42，实际 %d", n, got)
		}
	}
}

func TestParse_Rejects(t *testing.T) {
	s, err := New("", "", 5)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, n := range []string{"abc.jpg", "0001.jpg", ".DS_Store", "00001.tar.gz", "00001x"} {
		_, err := s.Parse(n)
		var ne *NameError
		if !errors.As(err, &ne) {
			t.Fatalf("期望 %q 返回 NameError，实际 err=%v", n, err)
		}
	}
}

func TestNew_InvalidArgs(t *testing.T) {
	if _, err := New("", "", -1); err == nil {
		t.Fatalf("期望负宽度报错")
	}
	if _, err := New("a/b", "", 3); err == nil {
		t.Fatalf("期望 prefix 含分隔符报错")
	}
}

func TestParse_ZeroValueScheme(t *testing.T) {
	var s Scheme
	got, err := s.Parse("7.gif")
	if err != nil || got != 7 {
		t.Fatalf("期望 7，实际 got=%d err=%v", got, err)
	}
}

func TestFolderDir(t *testing.T) {
	if got, want := FolderDir("out", 12), filepath.Join("out", "12"); got != want {
		t.Fatalf("期望 %q，实际 %q", want, got)
	}
}
