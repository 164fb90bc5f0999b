package naming

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

// MaxWidth 限制零填充宽度，避免配置错误产生荒谬的文件名。
const MaxWidth = 18

// Scheme 描述图片文件名：<prefix><零填充序号><suffix>[.<ext>]。
//
// 约束：
// - 写入时按 Width 零填充；续跑时要求序号位数不少于 Width（位数不足视为状态损坏）
// - 扩展名只由内容嗅探决定，这里只负责“去掉扩展名后解析序号”
type Scheme struct {
	Prefix string
	Suffix string
	Width  int

	re *regexp.Regexp
}

// New 校验参数并预编译解析用正则。
func New(prefix, suffix string, width int) (Scheme, error) {
	if width < 0 || width > MaxWidth {
		return Scheme{}, fmt.Errorf("zero_pad 必须在 [0, %d] 内，实际 %d", MaxWidth, width)
	}
	if containsSep(prefix) || containsSep(suffix) {
		return Scheme{}, errors.New("prefix/suffix 不能包含路径分隔符")
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `([0-9]+)` + regexp.QuoteMeta(suffix) + `(?:\.([A-Za-z0-9]+))?$`)
	return Scheme{Prefix: prefix, Suffix: suffix, Width: width, re: re}, nil
}

// Format 渲染第 i 张图的文件名（不含扩展名）。
func (s Scheme) Format(i int) string {
	return s.Prefix + fmt.Sprintf("%0*d", s.Width, i) + s.Suffix
}

// NameError 表示文件名不符合命名方案。
type NameError struct {
	Name   string
	Reason string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("文件名 %q 不符合命名方案：%s", e.Name, e.Reason)
}

// Parse 从文件名解析序号；扩展名可有可无（下载中断时会留下无扩展名文件）。
func (s Scheme) Parse(name string) (int, error) {
	re := s.re
	if re == nil {
		// 零值 Scheme：等价于无前后缀、宽度 0。
		re = regexp.MustCompile(`^([0-9]+)(?:\.([A-Za-z0-9]+))?$`)
	}
	m := re.FindStringSubmatch(name)
	if m == nil {
		return 0, &NameError{Name: name, Reason: "无法解析出序号"}
	}
	digits := m[1]
	if len(digits) < s.Width {
		return 0, &NameError{Name: name, Reason: fmt.Sprintf("序号位数 %d 少于零填充宽度 %d", len(digits), s.Width)}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, &NameError{Name: name, Reason: err.Error()}
	}
	return n, nil
}

func containsSep(s string) bool {
	for _, r := range s {
		if r == '/' || r == '\\' {
			return true
		}
	}
	return false
}

// FolderDir 返回第 index 个目录的路径：<root>/<index>（不填充）。
func FolderDir(root string, index int) string {
	return filepath.Join(root, strconv.Itoa(index))
}
