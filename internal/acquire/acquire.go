package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/naming"
	"github.com/John-Robertt/imgrab/internal/search"
)

// Searcher 执行一次关键词搜索。
type Searcher interface {
	Search(ctx context.Context, keywords []string, mode domain.MatchMode) (domain.SearchResult, error)
}

// ImageDownloader 下载单个 URL；失败以 Outcome 表示。
type ImageDownloader interface {
	Download(ctx context.Context, url, targetPath string) domain.Outcome
}

// KeywordSampler 从词表中抽取 k 个关键词。
type KeywordSampler interface {
	Sample(v domain.Vocabulary, k int) ([]string, error)
}

// Observer 接收目录填充过程中的事件（可为 nil）。
type Observer interface {
	OnSearch(folder int, req domain.SearchRequest, res domain.SearchResult, err error)
	OnOutcome(folder, count int, o domain.Outcome)
}

// SearchExhaustedError 表示连续多轮搜索都没有保存任何图片。
type SearchExhaustedError struct {
	Folder int
	Cycles int
	Count  int
}

func (e *SearchExhaustedError) Error() string {
	return fmt.Sprintf("目录 %d 连续 %d 轮搜索未保存任何图片（当前 %d 张），放弃", e.Folder, e.Cycles, e.Count)
}

// Stats 汇总一次 FillFolder 的执行情况。Count 即最终计数。
type Stats struct {
	Count        int
	Saved        int
	Skipped      int
	Failed       int
	Searches     int
	SearchErrors int
}

// Acquirer 循环执行“抽样 -> 搜索 -> 逐个下载”，直到目录达到目标张数。
//
// 约束：
// - 严格串行：一次搜索完成后才开始下载；一张图结束后才下一张
// - 只有 saved 计数；达到目标后本轮剩余链接不再下载
// - 单个链接或单轮搜索失败不终止；MaxEmptyCycles>0 时连续空轮达到上限才放弃
type Acquirer struct {
	Sampler    KeywordSampler
	Searcher   Searcher
	Downloader ImageDownloader
	Naming     naming.Scheme

	Vocab        domain.Vocabulary
	Mode         domain.MatchMode
	KeywordCount int

	// MaxEmptyCycles 为 0 表示不设上限（持续重试）。
	MaxEmptyCycles int
	// Interval 是两轮搜索之间的等待时间。
	Interval time.Duration

	Log *slog.Logger
	Obs Observer
}

func (a *Acquirer) log() *slog.Logger {
	if a.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.Log
}

// FillFolder 从 job.Start 开始计数，把 job.Dir 填到 job.Target 张。
func (a *Acquirer) FillFolder(ctx context.Context, job domain.FolderJob) (Stats, error) {
	st := Stats{Count: job.Start}
	if job.Start < 0 || job.Target < 0 {
		return st, fmt.Errorf("非法的目录任务：start=%d target=%d", job.Start, job.Target)
	}

	empty := 0
	for st.Count < job.Target {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if st.Searches > 0 && a.Interval > 0 {
			if err := sleep(ctx, a.Interval); err != nil {
				return st, err
			}
		}

		keywords, err := a.Sampler.Sample(a.Vocab, a.KeywordCount)
		if err != nil {
			return st, err
		}
		req := domain.SearchRequest{Keywords: keywords, Mode: a.Mode}
		a.log().Info("search", "folder", job.Index, "query", req.Describe(), "count", st.Count, "target", job.Target)

		res, err := a.Searcher.Search(ctx, keywords, a.Mode)
		st.Searches++
		if a.Obs != nil {
			a.Obs.OnSearch(job.Index, req, res, err)
		}
		if err != nil {
			var me *search.InvalidModeError
			if errors.As(err, &me) {
				return st, err
			}
			if cerr := ctx.Err(); cerr != nil {
				return st, cerr
			}
			st.SearchErrors++
			if search.IsTransport(err) {
				a.log().Error("搜索请求失败（网络或被拦截），视为本轮零结果", "folder", job.Index, "url", res.RequestURL, "err", err)
			} else {
				a.log().Error("搜索页解析失败，视为本轮零结果", "folder", job.Index, "url", res.RequestURL, "err", err)
			}
		}

		saved := 0
		for _, link := range res.Links {
			if st.Count >= job.Target {
				break
			}
			if err := ctx.Err(); err != nil {
				return st, err
			}

			target := filepath.Join(job.Dir, a.Naming.Format(st.Count))
			o := a.Downloader.Download(ctx, link, target)
			switch o.Status {
			case domain.OutcomeSaved:
				st.Saved++
				st.Count++
				saved++
			case domain.OutcomeSkipped:
				st.Skipped++
			default:
				st.Failed++
			}
			if a.Obs != nil {
				a.Obs.OnOutcome(job.Index, st.Count, o)
			}
		}

		if saved > 0 {
			empty = 0
			continue
		}
		empty++
		if a.MaxEmptyCycles > 0 && empty >= a.MaxEmptyCycles {
			return st, &SearchExhaustedError{Folder: job.Index, Cycles: empty, Count: st.Count}
		}
	}
	return st, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
