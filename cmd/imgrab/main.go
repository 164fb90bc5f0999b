package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

func main() {
	// .env 可选；存在但无法解析时给出提示，不中断。
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "读取 .env 失败：%v\n", err)
	}

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&grabCmd{}, "")
	subcommands.Register(&statusCmd{}, "")
	subcommands.Register(&searchCmd{}, "diagnostics")

	flag.Parse()

	// Ctrl-C / SIGTERM：取消 context，当前下载被丢弃，下次运行从断点续跑。
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := subcommands.Execute(ctx)
	stop()
	os.Exit(int(code))
}
