package domain

import "fmt"

const (
	OutcomeSaved   = "saved"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Outcome 是单个 URL 下载的结果；下载失败不以 error 形式上抛。
//
// 不变量：
// - saved：磁盘上恰好留下一个带扩展名的文件（Path）
// - skipped/failed：不留下任何文件
type Outcome struct {
	Status string
	URL    string

	// Path/Ext 仅在 saved 时非空；Ext 来自内容嗅探，不含 '.'。
	Path string
	Ext  string

	// HTTPStatus 仅在服务端返回非 200 时非零。
	HTTPStatus int
	Reason     string
}

// Saved 判断是否成功保存。
func (o Outcome) Saved() bool { return o.Status == OutcomeSaved }

func (o Outcome) String() string {
	switch o.Status {
	case OutcomeSaved:
		return fmt.Sprintf("saved %s", o.Path)
	case OutcomeSkipped:
		return fmt.Sprintf("skipped %s: %s", o.URL, o.Reason)
	default:
		if o.HTTPStatus != 0 {
			return fmt.Sprintf("failed %s: HTTP %d", o.URL, o.HTTPStatus)
		}
		return fmt.Sprintf("failed %s: %s", o.URL, o.Reason)
	}
}
