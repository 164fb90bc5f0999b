package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/subcommands"
	"github.com/google/uuid"

	"github.com/John-Robertt/imgrab/internal/app/run"
	"github.com/John-Robertt/imgrab/internal/config"
	"github.com/John-Robertt/imgrab/internal/domain"
)

type grabCmd struct {
	flags cliFlags
}

func (*grabCmd) Name() string     { return "grab" }
func (*grabCmd) Synopsis() string { return "按词表搜索并下载图片，填满各编号目录（支持断点续跑）" }
func (*grabCmd) Usage() string {
	return `grab [-config imgrab.json] [-words words.txt] [-root out] [-folders N] [-images N] [-keywords K] [-match all|any] [-resume=false]:
  从词表随机抽取关键词搜索图片，逐张下载到 <root>/<目录编号>/。
  stdout 为终端时输出摘要行；否则 stdout 只输出一个 RunReport JSON。
`
}

func (c *grabCmd) SetFlags(fs *flag.FlagSet) {
	c.flags.bindCommon(fs)
	c.flags.bindLayout(fs)
	c.flags.bindGrab(fs)
}

func (c *grabCmd) Execute(ctx context.Context, fs *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "参数错误：grab 不接受位置参数 %q\n", fs.Args())
		return subcommands.ExitUsageError
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return subcommands.ExitFailure
	}

	eff, err := config.LoadEffective(cwd, c.flags.resolve(fs), os.Getenv)
	if err != nil {
		emitReport(os.Stdout, os.Stderr, reportForConfigError(err))
		return subcommands.ExitFailure
	}

	runID := uuid.NewString()
	progressW, interactive := pickProgressWriter()

	log, closeLog, err := openLogger(eff, os.Stderr, interactive, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开日志文件失败：%v\n", err)
		return subcommands.ExitFailure
	}
	defer closeLog()

	var obs run.Observer
	if interactive {
		ui := newProgressUI(progressW)
		defer ui.Close()
		obs = ui
	}

	log.Info("run 开始", "root", eff.Root, "words", eff.Words, "folders", eff.Folders, "images", eff.ImagesPerFolder)
	rr := run.Execute(ctx, eff, run.Deps{RunID: runID, Log: log}, obs)
	log.Info("run 结束", "ok", rr.OK(), "saved", rr.Summary.Saved, "error_code", rr.ErrorCode)

	emitReport(os.Stdout, os.Stderr, rr)
	if interactive && eff.Root != "" {
		fmt.Fprintf(progressW, "report: %s\n", filepath.Join(eff.Root, run.ReportName))
	}
	if rr.OK() {
		return subcommands.ExitSuccess
	}
	return subcommands.ExitFailure
}

// emitReport 按 stdout 是否为终端决定输出形式：终端输出摘要行；否则只输出一个 RunReport JSON（摘要走 stderr）。
func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	summary := fmt.Sprintf("完成：folders=%d complete=%d saved=%d skipped=%d failed=%d searches=%d",
		rr.Summary.Folders, rr.Summary.Complete, rr.Summary.Saved, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Searches,
	)

	if isTerminal(stdout) {
		fmt.Fprintln(stdout, summary)
		if rr.ErrorCode != "" {
			fmt.Fprintf(stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		}
		return
	}

	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summary)
	if rr.ErrorCode != "" {
		fmt.Fprintf(stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
	}
}

func reportForConfigError(err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		RunID:      uuid.NewString(),
		StartedAt:  now,
		FinishedAt: now,
		ErrorCode:  config.Code(err),
		ErrorMsg:   err.Error(),
	}
	if rr.ErrorCode == "" {
		rr.ErrorCode = domain.ErrCodeConfigInvalid
	}
	rr.Finalize()
	return rr
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTerminal(os.Stderr) {
		return os.Stderr, true
	}
	if isTerminal(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
