package main

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/imgrab/internal/app/run"
	"github.com/John-Robertt/imgrab/internal/config"
	"github.com/John-Robertt/imgrab/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出。
//
// 约束：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - keepalive：长时间没有新事件（慢下载/慢搜索）时定期输出一行
type progressUI struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	target  int
	total   int
	saved   int
	skipped int
	failed  int
	folder  int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{
		w:                  w,
		keepaliveThreshold: 10 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	p.target = eff.ImagesPerFolder

	fmt.Fprintf(p.w, "[%s] imgrab grab\n", now.Format("15:04:05"))
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  words: %s\n", orDash(eff.Words))
	fmt.Fprintf(p.w, "  root: %s\n", orDash(eff.Root))
	fmt.Fprintf(p.w, "  folders: %d x %d 张\n", eff.Folders, eff.ImagesPerFolder)
	fmt.Fprintf(p.w, "  search: %d 个关键词/次, match=%s\n", eff.KeywordsPerSearch, eff.Match)
	fmt.Fprintf(p.w, "  naming: %s.<ext>\n", eff.Naming.Format(0))
	fmt.Fprintf(p.w, "  resume: %s\n", onOff(eff.Resume))
	fmt.Fprintf(p.w, "  proxy: %s\n", formatProxy(eff.ProxyURL))
	if eff.MaxEmptyCycles > 0 {
		fmt.Fprintf(p.w, "  max_empty_cycles: %d\n", eff.MaxEmptyCycles)
	}
	if eff.DumpDir != "" {
		fmt.Fprintf(p.w, "  dump_dir: %s\n", eff.DumpDir)
	}
	fmt.Fprintln(p.w)

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "resume":
		if boolField(fields, "fresh") {
			fmt.Fprintf(p.w, "续跑: 全新开始 (%s)\n", formatShortDuration(dur))
		} else {
			fmt.Fprintf(p.w, "续跑: 目录 %d 第 %d 张 removed=%d (%s)\n",
				intField(fields, "folder"), intField(fields, "image"), intField(fields, "removed"), formatShortDuration(dur),
			)
		}
	case "plan":
		p.total = intField(fields, "remaining")
		fmt.Fprintf(p.w, "规划: folders=%d remaining=%d\n\n", intField(fields, "folders"), p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnSearch(folder int, req domain.SearchRequest, res domain.SearchResult, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.folder = folder
	if err != nil {
		fmt.Fprintf(p.w, "[目录 %d] 搜索 %q 失败: %s\n", folder, req.Describe(), truncate(err.Error(), 160))
	} else {
		fmt.Fprintf(p.w, "[目录 %d] 搜索 %q -> %d 个链接\n", folder, req.Describe(), len(res.Links))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnOutcome(folder, count int, o domain.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch o.Status {
	case domain.OutcomeSaved:
		p.saved++
		fmt.Fprintf(p.w, "[目录 %d] %d/%d OK %s\n", folder, count, p.target, filepath.Base(o.Path))
	case domain.OutcomeSkipped:
		p.skipped++
		fmt.Fprintf(p.w, "[目录 %d] SKIP %s: %s\n", folder, o.Reason, truncate(o.URL, 100))
	default:
		p.failed++
		fmt.Fprintf(p.w, "[目录 %d] FAIL %s: %s\n", folder, truncate(o.Reason, 100), truncate(o.URL, 100))
	}
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnFolderDone(res domain.FolderResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := strings.ToUpper(res.Status)
	if res.ErrorCode != "" {
		fmt.Fprintf(p.w, "目录 %d %s %d/%d %s: %s (%s)\n\n",
			res.Index, status, res.Count, res.Target, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	} else {
		fmt.Fprintf(p.w, "目录 %d %s %d/%d saved=%d skipped=%d failed=%d searches=%d (%s)\n\n",
			res.Index, status, res.Count, res.Target, res.Saved, res.Skipped, res.Failed, res.Searches, formatShortDuration(dur),
		)
	}
	p.lastPrinted = time.Now()
}

// Close 停止 keepalive ticker；可重复调用。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stop := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 10 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "进度: 目录 %d saved=%d/%d skipped=%d failed=%d elapsed=%s\n",
						p.folder, p.saved, p.total, p.skipped, p.failed, formatElapsed(time.Since(p.startedAt)),
					)
					p.lastPrinted = time.Now()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}

func boolField(fields map[string]any, key string) bool {
	v, _ := fields[key].(bool)
	return v
}
