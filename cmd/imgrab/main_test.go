package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"

	"github.com/John-Robertt/imgrab/internal/config"
	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/naming"
)

func TestCLIFlags_ResolveMarksExplicitValues(t *testing.T) {
	var c cliFlags
	fs := flag.NewFlagSet("grab", flag.ContinueOnError)
	c.bindCommon(fs)
	c.bindLayout(fs)
	c.bindGrab(fs)

	if err := fs.Parse([]string{"-root", "out", "-folders", "0", "-resume=false", "-prefix", "", "-seed", "7"}); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	a := c.resolve(fs)
	if a.Root != "out" || !a.FoldersSet || a.Folders != 0 {
		t.Fatalf("root/folders 不符合预期：%+v", a)
	}
	if !a.ResumeSet || a.Resume {
		t.Fatalf("-resume=false 应被视为显式指定：%+v", a)
	}
	if !a.PrefixSet || !a.SeedSet || a.Seed != 7 {
		t.Fatalf("prefix/seed 不符合预期：%+v", a)
	}
	if a.ImagesSet || a.KeywordsSet || a.ZeroPadSet || a.SuffixSet {
		t.Fatalf("未指定的参数不应标记为显式：%+v", a)
	}
}

func TestEmitReport_NonTTYWritesSingleJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	rr := domain.RunReport{RunID: "r1", ErrorCode: domain.ErrCodeCorruptState, ErrorMsg: "bad"}
	rr.Finalize()

	emitReport(&stdout, &stderr, rr)

	var got domain.RunReport
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\nstdout=%q", err, stdout.String())
	}
	if got.RunID != "r1" || got.Folders == nil {
		t.Fatalf("报告内容不符合预期：%+v", got)
	}
	if !strings.Contains(stderr.String(), "完成：folders=0") || !strings.Contains(stderr.String(), "corrupt_state: bad") {
		t.Fatalf("stderr 缺少摘要或错误：%q", stderr.String())
	}
}

func TestReportForConfigError(t *testing.T) {
	err := &config.Error{Code: config.ErrCodeNotFound, Path: "x.json"}
	rr := reportForConfigError(err)
	if rr.ErrorCode != domain.ErrCodeConfigNotFound || rr.RunID == "" || rr.OK() {
		t.Fatalf("报告不符合预期：%+v", rr)
	}

	rr = reportForConfigError(errors.New("boom"))
	if rr.ErrorCode != domain.ErrCodeConfigInvalid {
		t.Fatalf("未知错误应归为 config_invalid：%+v", rr)
	}
}

func TestOpenLogger_FileSinkCarriesRunID(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "imgrab.log")
	var stderr bytes.Buffer

	log, closeLog, err := openLogger(config.EffectiveConfig{LogLevel: "debug", LogFile: logFile}, &stderr, true, "run-42")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	log.Debug("saved", "path", "0/00000.jpg")
	log.Warn("unrecognized", "url", "https://x")
	closeLog()

	b, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("读取日志文件失败：%v", err)
	}
	if !strings.Contains(string(b), "msg=saved") || !strings.Contains(string(b), "run_id=run-42") {
		t.Fatalf("日志文件应包含 debug 行与 run_id：%q", string(b))
	}
	// 交互模式下 stderr 只保留 warn 及以上。
	if strings.Contains(stderr.String(), "msg=saved") || !strings.Contains(stderr.String(), "msg=unrecognized") {
		t.Fatalf("stderr 级别过滤不符合预期：%q", stderr.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v，期望 %v", in, got, want)
		}
	}
}

func TestInspectStatus(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"0/00000.jpg", "0/00001.jpg", "1/00000.png"} {
		full := filepath.Join(root, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
		if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
	}
	ns, _ := naming.New("", "", 5)

	sr := inspectStatus(config.EffectiveConfig{Root: root, Folders: 3, ImagesPerFolder: 2, Naming: ns})
	if sr.ErrorCode != "" || sr.Fresh || sr.Folder != 1 || sr.Image != 0 || sr.Remaining != 4 {
		t.Fatalf("status 不符合预期：%+v", sr)
	}
	// 只读：文件仍在。
	if _, err := os.Stat(filepath.Join(root, "1", "00000.png")); err != nil {
		t.Fatalf("status 不应删除文件：%v", err)
	}

	if err := os.MkdirAll(filepath.Join(root, "misc"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	sr = inspectStatus(config.EffectiveConfig{Root: root, Folders: 3, ImagesPerFolder: 2, Naming: ns})
	if sr.ErrorCode != domain.ErrCodeCorruptState {
		t.Fatalf("期望 corrupt_state，实际 %+v", sr)
	}
}

func TestRunSearch_PrintsLinksOnePerLine(t *testing.T) {
	var gotQ, gotTbm string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQ = r.URL.Query().Get("as_oq")
		gotTbm = r.URL.Query().Get("tbm")
		_, _ = w.Write([]byte(`<html><script>` +
			`["https://t/1",183,275],["https://img.test/a.jpg",1200,1800],` +
			`["https://t/2",183,275],["https://img.test/b.png",800,600]` +
			`</script></html>`))
	}))
	defer srv.Close()

	eff := config.EffectiveConfig{
		Match:         domain.MatchAny,
		Timeout:       5 * time.Second,
		SearchBaseURL: srv.URL + "/search",
		LogLevel:      "info",
	}
	var stdout, stderr bytes.Buffer
	st := runSearch(context.Background(), eff, []string{"red", "car"}, &stdout, &stderr)
	if st != subcommands.ExitSuccess {
		t.Fatalf("期望成功，实际 %v，stderr=%s", st, stderr.String())
	}
	if got := stdout.String(); got != "https://img.test/a.jpg\nhttps://img.test/b.png\n" {
		t.Fatalf("stdout 应逐行输出链接，实际 %q", got)
	}
	if gotQ != "red car" || gotTbm != "isch" {
		t.Fatalf("请求参数不符合预期：as_oq=%q tbm=%q", gotQ, gotTbm)
	}
	if !strings.Contains(stderr.String(), "links=2") {
		t.Fatalf("stderr 应记录结果数，实际：%s", stderr.String())
	}
}

func TestRunSearch_TransportErrorFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	eff := config.EffectiveConfig{
		Match:         domain.MatchAll,
		Timeout:       5 * time.Second,
		SearchBaseURL: srv.URL + "/search",
		LogLevel:      "info",
	}
	var stdout, stderr bytes.Buffer
	if st := runSearch(context.Background(), eff, []string{"cat"}, &stdout, &stderr); st != subcommands.ExitFailure {
		t.Fatalf("期望失败，实际 %v", st)
	}
	if stdout.Len() != 0 {
		t.Fatalf("失败时 stdout 应为空，实际 %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "-proxy") {
		t.Fatalf("网络失败应给出代理提示，实际：%s", stderr.String())
	}
}
