package cache

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/John-Robertt/imgrab/internal/infra/fsx"
)

// Store 把“解析不出链接的搜索页”落盘到 <dir>/search/，用于排查页面结构漂移。
//
// 约束：
// - Dir 为空时禁用（所有写入都是 no-op）
// - Dir 不得位于图片根目录内（根目录下的子目录必须全是数字编号，由 config 校验）
type Store struct {
	Dir string
}

var ErrDisabled = errors.New("cache: disabled")

func New(dir string) Store {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return Store{}
	}
	return Store{Dir: filepath.Clean(dir)}
}

// Enabled 判断是否配置了落盘目录。
func (s Store) Enabled() bool { return s.Dir != "" }

// SearchPagePath 返回搜索页快照的绝对路径。
func (s Store) SearchPagePath(id string) (string, error) {
	if !s.Enabled() {
		return "", ErrDisabled
	}
	id, err := cleanID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Dir, "search", id+".html"), nil
}

// WriteSearchPage 写入一份搜索页快照；requestURL 以 HTML 注释形式写在文件首行。
func (s Store) WriteSearchPage(id, requestURL string, html []byte) (string, error) {
	path, err := s.SearchPagePath(id)
	if err != nil {
		return "", err
	}
	head := fmt.Sprintf("<!-- %s -->\n", strings.ReplaceAll(requestURL, "--", "%2D%2D"))
	b := make([]byte, 0, len(head)+len(html))
	b = append(b, head...)
	b = append(b, html...)
	if err := fsx.WriteFileAtomicReplace(filepath.Dir(path), filepath.Base(path), b); err != nil {
		return "", err
	}
	return path, nil
}

var idRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func cleanID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("快照 id 不能为空")
	}
	// 避免路径穿越：id 只允许字母数字与 -_。
	if !idRE.MatchString(id) {
		return "", fmt.Errorf("非法快照 id：%q", id)
	}
	return id, nil
}
