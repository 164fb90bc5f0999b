package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/imgrab/internal/naming"
)

// InvalidEntryError 表示输出树中出现了无法解释的条目。
type InvalidEntryError struct {
	Path   string
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("无法识别的条目 %q：%s", e.Path, e.Reason)
}

// Folder 是 root 下以十进制编号命名的目录。
type Folder struct {
	Index int
	Path  string
}

// Image 是目录内按命名方案解析出序号的文件。
type Image struct {
	Index int
	Name  string
	Path  string
}

// Folders 列出 root 下的编号目录，按 Index 升序。
//
// 规则：
// - root 下的普通文件（report.json 等）与隐藏条目忽略
// - 目录名必须是规范的非负十进制整数（"7" 合法，"07"、"-1"、"a" 非法）
func Folders(root string) ([]Folder, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	out := make([]Folder, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if isHidden(name) || !e.IsDir() {
			continue
		}
		p := filepath.Join(root, name)
		n, err := strconv.Atoi(name)
		if err != nil || n < 0 || strconv.Itoa(n) != name {
			return nil, &InvalidEntryError{Path: p, Reason: "目录名不是规范的非负整数"}
		}
		out = append(out, Folder{Index: n, Path: p})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// Images 列出 dir 下的图片文件，按 (Index, Name) 升序。
// 子目录与无法按命名方案解析的文件名都会报错；隐藏文件忽略。
func Images(dir string, s naming.Scheme) ([]Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	out := make([]Image, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if isHidden(name) {
			continue
		}
		p := filepath.Join(dir, name)
		if e.IsDir() {
			return nil, &InvalidEntryError{Path: p, Reason: "图片目录内不应有子目录"}
		}
		n, err := s.Parse(name)
		if err != nil {
			return nil, &InvalidEntryError{Path: p, Reason: err.Error()}
		}
		out = append(out, Image{Index: n, Name: name, Path: p})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
