package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/John-Robertt/imgrab/internal/app/planner"
	"github.com/John-Robertt/imgrab/internal/config"
	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/resume"
)

type statusCmd struct {
	flags cliFlags
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "只读地检查输出目录，显示续跑点与剩余数量" }
func (*statusCmd) Usage() string {
	return `status [-config imgrab.json] [-root out] [-folders N] [-images N]:
  推导下一次 grab 的续跑点（不删除任何文件）。
`
}

func (c *statusCmd) SetFlags(fs *flag.FlagSet) {
	c.flags.bindCommon(fs)
	c.flags.bindLayout(fs)
}

// statusReport 是 status 的输出结构。
type statusReport struct {
	Root            string `json:"root"`
	Fresh           bool   `json:"fresh"`
	Folder          int    `json:"folder"`
	Image           int    `json:"image"`
	Folders         int    `json:"folders"`
	ImagesPerFolder int    `json:"images_per_folder"`
	Remaining       int    `json:"remaining"`
	ErrorCode       string `json:"error_code,omitempty"`
	ErrorMsg        string `json:"error_msg,omitempty"`
}

func (c *statusCmd) Execute(ctx context.Context, fs *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return subcommands.ExitFailure
	}

	eff, err := config.LoadEffective(cwd, c.flags.resolve(fs), os.Getenv)
	if err == nil {
		err = eff.Require("root")
	}
	if err != nil {
		emitStatus(os.Stdout, statusReport{ErrorCode: config.Code(err), ErrorMsg: err.Error()})
		return subcommands.ExitFailure
	}

	sr := inspectStatus(eff)
	emitStatus(os.Stdout, sr)
	if sr.ErrorCode != "" {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func inspectStatus(eff config.EffectiveConfig) statusReport {
	sr := statusReport{
		Root:            eff.Root,
		Folders:         eff.Folders,
		ImagesPerFolder: eff.ImagesPerFolder,
	}
	st, err := resume.Inspect(eff.Root, eff.Naming)
	if err != nil {
		sr.ErrorCode = domain.ErrCodeIOFailed
		if resume.IsCorruptState(err) {
			sr.ErrorCode = domain.ErrCodeCorruptState
		}
		sr.ErrorMsg = err.Error()
		return sr
	}
	sr.Fresh = st.Fresh
	sr.Folder = st.Folder
	sr.Image = st.Image
	sr.Remaining = planner.Remaining(planner.PlanFolders(eff.Root, st, eff.Folders, eff.ImagesPerFolder))
	return sr
}

func emitStatus(w io.Writer, sr statusReport) {
	if !isTerminal(w) {
		_ = json.NewEncoder(w).Encode(sr)
		return
	}
	if sr.ErrorCode != "" {
		fmt.Fprintf(w, "%s: %s\n", sr.ErrorCode, sr.ErrorMsg)
		return
	}
	if sr.Fresh {
		fmt.Fprintf(w, "%s：尚无输出，将从目录 0 开始（共 %d 张）\n", sr.Root, sr.Remaining)
		return
	}
	fmt.Fprintf(w, "%s：下次从目录 %d 第 %d 张继续（该张会重新下载），剩余约 %d 张\n", sr.Root, sr.Folder, sr.Image, sr.Remaining)
}
