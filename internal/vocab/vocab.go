package vocab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/John-Robertt/imgrab/internal/domain"
)

// ErrEmpty 表示词表中没有任何可用词条。
var ErrEmpty = errors.New("词表为空")

// LoadFile 读取词表文件：每行一个词，去掉首尾空白，跳过空行，保持行序（允许重复）。
func LoadFile(path string) (domain.Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	v, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("读取词表 %q 失败：%w", path, err)
	}
	return v, nil
}

// Read 与 LoadFile 相同，但从任意 reader 读取。
func Read(r io.Reader) (domain.Vocabulary, error) {
	sc := bufio.NewScanner(r)
	// 单行词条不会很长，但词表可能来自外部工具，给足缓冲。
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	out := make(domain.Vocabulary, 0, 1024)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w == "" {
			continue
		}
		out = append(out, w)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}
