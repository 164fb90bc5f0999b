package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/John-Robertt/imgrab/internal/config"
	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/infra/cache"
	"github.com/John-Robertt/imgrab/internal/infra/httpx"
	"github.com/John-Robertt/imgrab/internal/search"
)

// searchCmd 只执行一次搜索并打印解析出的链接，用于排查搜索页结构变化或代理问题。
type searchCmd struct {
	flags cliFlags
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "执行一次图片搜索并逐行打印候选链接" }
func (*searchCmd) Usage() string {
	return `search [-match all|any] [-dump-dir dir] <word>...:
  不下载任何图片；请求 URL 与结果数写到 stderr。
`
}

func (c *searchCmd) SetFlags(fs *flag.FlagSet) {
	c.flags.bindCommon(fs)
	fs.StringVar(&c.flags.args.Match, "match", "", "匹配模式：all|any（默认取配置）")
}

func (c *searchCmd) Execute(ctx context.Context, fs *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	words := fs.Args()
	if len(words) == 0 {
		fmt.Fprintln(os.Stderr, "参数错误：至少需要一个关键词")
		return subcommands.ExitUsageError
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return subcommands.ExitFailure
	}
	eff, err := config.LoadEffective(cwd, c.flags.resolve(fs), os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	return runSearch(ctx, eff, words, os.Stdout, os.Stderr)
}

// runSearch 执行一次搜索：链接逐行写到 stdout，日志写到 stderr。
func runSearch(ctx context.Context, eff config.EffectiveConfig, words []string, stdout, stderr io.Writer) subcommands.ExitStatus {
	log, closeLog, err := openLogger(eff, stderr, false, "")
	if err != nil {
		fmt.Fprintf(stderr, "打开日志文件失败：%v\n", err)
		return subcommands.ExitFailure
	}
	defer closeLog()

	hc, err := httpx.NewClient(httpx.Options{ProxyURL: eff.ProxyURL, Timeout: eff.Timeout, RetryMax: eff.RetryMax})
	if err != nil {
		fmt.Fprintf(stderr, "proxy.url 无效：%v\n", err)
		return subcommands.ExitFailure
	}
	client := &search.Client{
		HTTP:    hc,
		BaseURL: eff.SearchBaseURL,
		Dump:    cache.New(eff.DumpDir),
		Log:     log,
	}

	req := domain.SearchRequest{Keywords: words, Mode: eff.Match}
	res, err := client.Search(ctx, words, eff.Match)
	if err != nil {
		log.Error("搜索失败", "query", req.Describe(), "url", res.RequestURL, "err", err)
		if search.IsTransport(err) {
			fmt.Fprintln(stderr, "提示：请求未成功，可降低频率或通过 -proxy 配置代理后重试")
		}
		return subcommands.ExitFailure
	}
	log.Info("search", "query", req.Describe(), "url", res.RequestURL, "links", len(res.Links))
	for _, l := range res.Links {
		fmt.Fprintln(stdout, l)
	}
	return subcommands.ExitSuccess
}
