package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/imgrab/internal/acquire"
	"github.com/John-Robertt/imgrab/internal/app/planner"
	"github.com/John-Robertt/imgrab/internal/config"
	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/download"
	"github.com/John-Robertt/imgrab/internal/infra/cache"
	"github.com/John-Robertt/imgrab/internal/infra/fsx"
	"github.com/John-Robertt/imgrab/internal/infra/httpx"
	"github.com/John-Robertt/imgrab/internal/resume"
	"github.com/John-Robertt/imgrab/internal/sampler"
	"github.com/John-Robertt/imgrab/internal/search"
	"github.com/John-Robertt/imgrab/internal/vocab"
)

// ReportName 是 run 报告在根目录下的文件名（根目录下的文件不参与续跑推导）。
const ReportName = "report.json"

// Deps 是 Execute 的可替换依赖；nil 字段按 EffectiveConfig 构造默认实现。
type Deps struct {
	RunID string
	Log   *slog.Logger

	HTTP       *http.Client
	Sampler    acquire.KeywordSampler
	Searcher   acquire.Searcher
	Downloader acquire.ImageDownloader
}

// Execute 执行一次完整的抓取：推导续跑点 -> 规划目录 -> 逐个目录填充 -> 写报告。
//
// 目录严格按编号顺序处理；一个目录未能填满时不会开始下一个
// （续跑只看最大编号目录，跳过未满目录会让它永远无法补齐）。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	runID := deps.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := deps.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		RunID:     runID,
		Root:      eff.Root,
		StartedAt: started,
		Folders:   make([]domain.FolderResult, 0, eff.Folders),
	}
	finish := func() domain.RunReport {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		writeReport(eff.Root, rr, log)
		return rr
	}
	fail := func(code, msg string) domain.RunReport {
		rr.ErrorCode = code
		rr.ErrorMsg = msg
		log.Error("run 失败", "error_code", code, "err", msg)
		return finish()
	}

	if err := eff.Require("words", "root"); err != nil {
		return fail(config.Code(err), err.Error())
	}

	words, err := vocab.LoadFile(eff.Words)
	if err != nil {
		if errors.Is(err, vocab.ErrEmpty) {
			return fail(domain.ErrCodeConfigInvalid, err.Error())
		}
		return fail(domain.ErrCodeIOFailed, fmt.Sprintf("读取词表失败：%v", err))
	}

	resumeStarted := time.Now()
	st, err := prepareRoot(eff)
	if err != nil {
		if resume.IsCorruptState(err) {
			return fail(domain.ErrCodeCorruptState, err.Error())
		}
		return fail(domain.ErrCodeIOFailed, fmt.Sprintf("准备输出目录失败：%v", err))
	}
	rr.Resume = domain.ResumeInfo{Fresh: st.Fresh, Folder: st.Folder, Image: st.Image}
	for _, p := range st.Removed {
		log.Info("删除疑似不完整的图片", "path", p)
	}
	if obs != nil {
		obs.OnPhaseDone("resume", map[string]any{
			"fresh":   st.Fresh,
			"folder":  st.Folder,
			"image":   st.Image,
			"removed": len(st.Removed),
		}, time.Since(resumeStarted))
	}

	jobs := planner.PlanFolders(eff.Root, st, eff.Folders, eff.ImagesPerFolder)
	if obs != nil {
		obs.OnPhaseDone("plan", map[string]any{
			"folders":   len(jobs),
			"remaining": planner.Remaining(jobs),
		}, 0)
	}

	acq, err := buildAcquirer(eff, deps, words, log)
	if err != nil {
		return fail(domain.ErrCodeConfigInvalid, err.Error())
	}
	if obs != nil {
		acq.Obs = obs
	}

	for _, job := range jobs {
		folderStarted := time.Now()
		res := domain.FolderResult{
			Index:  job.Index,
			Dir:    job.Dir,
			Start:  job.Start,
			Target: job.Target,
			Count:  job.Start,
		}

		stop := false
		if err := fsx.EnsureDir(job.Dir); err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeIOFailed
			res.ErrorMsg = fmt.Sprintf("创建目录失败：%v", err)
			if fsx.IsPathTypeConflict(err) {
				// 编号位置被同名文件占用：输出树无法解释，需要人工处理。
				res.ErrorCode = domain.ErrCodeCorruptState
			}
			stop = true
		} else {
			stats, err := acq.FillFolder(ctx, job)
			res.Count = stats.Count
			res.Saved = stats.Saved
			res.Skipped = stats.Skipped
			res.Failed = stats.Failed
			res.Searches = stats.Searches
			res.SearchErrors = stats.SearchErrors
			if err != nil {
				res.ErrorCode = classify(err)
				res.ErrorMsg = err.Error()
				stop = true
			}
			switch {
			case res.Count >= res.Target:
				res.Status = domain.StatusComplete
			case res.Count > 0:
				res.Status = domain.StatusPartial
			default:
				res.Status = domain.StatusFailed
			}
		}

		rr.Folders = append(rr.Folders, res)
		log.Info("目录结束", "folder", res.Index, "count", res.Count, "target", res.Target, "status", res.Status)
		if obs != nil {
			obs.OnFolderDone(res, time.Since(folderStarted))
		}
		if stop {
			rr.ErrorCode = res.ErrorCode
			rr.ErrorMsg = res.ErrorMsg
			break
		}
	}

	return finish()
}

// prepareRoot 推导续跑点并准备根目录。
//
// - resume=true：续跑点已越过配置的目录数时只读返回，不删除任何文件
// - resume=false：根目录存在时先校验它确实是本工具的输出树，再清空重建
func prepareRoot(eff config.EffectiveConfig) (domain.ResumeState, error) {
	if eff.Resume {
		st, err := resume.Inspect(eff.Root, eff.Naming)
		if err != nil {
			return domain.ResumeState{}, err
		}
		if !st.Fresh && st.Folder >= eff.Folders {
			return st, nil
		}
		st, err = resume.Compute(eff.Root, true, eff.Naming)
		if err != nil {
			return domain.ResumeState{}, err
		}
		if st.Fresh {
			return st, fsx.EnsureDir(eff.Root)
		}
		return st, nil
	}

	if _, err := os.Stat(eff.Root); err == nil {
		if _, err := resume.Inspect(eff.Root, eff.Naming); err != nil {
			return domain.ResumeState{}, err
		}
		if err := fsx.ResetDir(eff.Root); err != nil {
			return domain.ResumeState{}, err
		}
	} else if !os.IsNotExist(err) {
		return domain.ResumeState{}, err
	}
	st, err := resume.Compute(eff.Root, false, eff.Naming)
	if err != nil {
		return domain.ResumeState{}, err
	}
	return st, fsx.EnsureDir(eff.Root)
}

func buildAcquirer(eff config.EffectiveConfig, deps Deps, words domain.Vocabulary, log *slog.Logger) (*acquire.Acquirer, error) {
	hc := deps.HTTP
	if hc == nil && (deps.Searcher == nil || deps.Downloader == nil) {
		c, err := httpx.NewClient(httpx.Options{
			ProxyURL: eff.ProxyURL,
			Timeout:  eff.Timeout,
			RetryMax: eff.RetryMax,
		})
		if err != nil {
			return nil, fmt.Errorf("proxy.url 无效：%w", err)
		}
		hc = c
	}

	a := &acquire.Acquirer{
		Sampler:        deps.Sampler,
		Searcher:       deps.Searcher,
		Downloader:     deps.Downloader,
		Naming:         eff.Naming,
		Vocab:          words,
		Mode:           eff.Match,
		KeywordCount:   eff.KeywordsPerSearch,
		MaxEmptyCycles: eff.MaxEmptyCycles,
		Interval:       eff.SearchInterval,
		Log:            log,
	}
	if a.Sampler == nil {
		a.Sampler = sampler.New(eff.Seed)
	}
	if a.Searcher == nil {
		a.Searcher = &search.Client{
			HTTP:    hc,
			BaseURL: eff.SearchBaseURL,
			Dump:    cache.New(eff.DumpDir),
			Log:     log,
		}
	}
	if a.Downloader == nil {
		a.Downloader = &download.Downloader{HTTP: hc, Log: log}
	}
	return a, nil
}

func classify(err error) string {
	var (
		ee *acquire.SearchExhaustedError
		se *sampler.InvalidSampleSizeError
		me *search.InvalidModeError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.ErrCodeCanceled
	case errors.As(err, &ee):
		return domain.ErrCodeSearchExhausted
	case errors.As(err, &se), errors.As(err, &me):
		return domain.ErrCodeConfigInvalid
	default:
		return domain.ErrCodeIOFailed
	}
}

// writeReport 把报告原子写入 <root>/report.json；根目录不存在时不写。
func writeReport(root string, rr domain.RunReport, log *slog.Logger) {
	if root == "" {
		return
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return
	}
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		log.Error("序列化报告失败", "err", err)
		return
	}
	b = append(b, '\n')
	if err := fsx.WriteFileAtomicReplace(root, ReportName, b); err != nil {
		log.Error("写入报告失败", "path", root, "err", err)
	}
}
