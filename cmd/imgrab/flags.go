package main

import (
	"flag"

	"github.com/John-Robertt/imgrab/internal/config"
)

// cliFlags 把 flag 绑定到 config.CLIArgs；是否显式指定由 resolve 通过 FlagSet.Visit 得出。
type cliFlags struct {
	args config.CLIArgs
}

// bindCommon 注册所有子命令共用的参数。
func (c *cliFlags) bindCommon(fs *flag.FlagSet) {
	fs.StringVar(&c.args.ConfigPath, "config", "", "配置文件路径（默认读取 ./"+config.FileName+"，不存在则忽略）")
	fs.StringVar(&c.args.ProxyURL, "proxy", "", "HTTP 代理地址，例如 http://127.0.0.1:7890")
	fs.StringVar(&c.args.LogLevel, "log-level", "", "日志级别：debug|info|warn|error")
	fs.StringVar(&c.args.LogFile, "log-file", "", "额外追加写入的日志文件")
	fs.StringVar(&c.args.DumpDir, "dump-dir", "", "零链接搜索页的快照目录（排查用）")
}

// bindLayout 注册描述输出树的参数。
func (c *cliFlags) bindLayout(fs *flag.FlagSet) {
	fs.StringVar(&c.args.Root, "root", "", "输出根目录")
	fs.IntVar(&c.args.Folders, "folders", 0, "目录数量（默认 3）")
	fs.IntVar(&c.args.Images, "images", 0, "每个目录的图片数量（默认 10）")
	fs.StringVar(&c.args.Prefix, "prefix", "", "文件名前缀")
	fs.StringVar(&c.args.Suffix, "suffix", "", "文件名后缀（位于扩展名之前）")
	fs.IntVar(&c.args.ZeroPad, "zero-pad", 0, "序号零填充宽度（默认 5）")
}

// bindGrab 注册只有 grab 需要的参数。
func (c *cliFlags) bindGrab(fs *flag.FlagSet) {
	fs.StringVar(&c.args.Words, "words", "", "词表文件（每行一个词）")
	fs.IntVar(&c.args.Keywords, "keywords", 0, "每次搜索抽取的关键词数（默认 3）")
	fs.StringVar(&c.args.Match, "match", "", "匹配模式：all|any（默认 all）")
	fs.BoolVar(&c.args.Resume, "resume", true, "从上次中断处继续；-resume=false 清空根目录重新开始")
	fs.Int64Var(&c.args.Seed, "seed", 0, "随机种子（0 表示按时间）")
}

func (c *cliFlags) resolve(fs *flag.FlagSet) config.CLIArgs {
	a := c.args
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "folders":
			a.FoldersSet = true
		case "images":
			a.ImagesSet = true
		case "keywords":
			a.KeywordsSet = true
		case "resume":
			a.ResumeSet = true
		case "prefix":
			a.PrefixSet = true
		case "suffix":
			a.SuffixSet = true
		case "zero-pad":
			a.ZeroPadSet = true
		case "seed":
			a.SeedSet = true
		}
	})
	return a
}
