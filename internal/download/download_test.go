package download

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/infra/httpx"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png 失败：%v", err)
	}
	return buf.Bytes()
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	pb := pngBytes(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/ok.jpg", func(w http.ResponseWriter, r *http.Request) {
		// 故意给出错误的 Content-Type 与后缀：扩展名只看内容。
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(pb)
	})
	mux.HandleFunc("/page.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("<html>not an image</html>"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/cut", func(w http.ResponseWriter, r *http.Request) {
		// 声明的长度大于实际写出：客户端读 body 时会得到 unexpected EOF。
		w.Header().Set("Content-Length", "100000")
		_, _ = w.Write(pb[:10])
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newDownloader(t *testing.T) *Downloader {
	t.Helper()
	hc, err := httpx.NewClient(httpx.Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	return &Downloader{HTTP: hc}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDownload_SavedUsesSniffedExt(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "00003")

	out := newDownloader(t).Download(context.Background(), srv.URL+"/ok.jpg", target)
	if out.Status != domain.OutcomeSaved {
		t.Fatalf("期望 saved，实际：%+v", out)
	}
	if out.Ext != "png" || out.Path != target+".png" {
		t.Fatalf("扩展名应来自内容嗅探：%+v", out)
	}
	names := listDir(t, dir)
	if len(names) != 1 || names[0] != "00003.png" {
		t.Fatalf("目录内应只有 00003.png，实际：%v", names)
	}
}

func TestDownload_UnrecognizedIsSkippedAndRemoved(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	out := newDownloader(t).Download(context.Background(), srv.URL+"/page.png", filepath.Join(dir, "00000"))
	if out.Status != domain.OutcomeSkipped || out.Reason != ReasonUnrecognized {
		t.Fatalf("期望 skipped，实际：%+v", out)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Fatalf("skipped 不应留下文件：%v", names)
	}
}

func TestDownload_Non200IsFailedWithoutFile(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	out := newDownloader(t).Download(context.Background(), srv.URL+"/gone", filepath.Join(dir, "00000"))
	if out.Status != domain.OutcomeFailed || out.HTTPStatus != http.StatusGone {
		t.Fatalf("期望 failed(410)，实际：%+v", out)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Fatalf("failed 不应留下文件：%v", names)
	}
}

func TestDownload_TruncatedBodyIsFailedWithoutFile(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()

	out := newDownloader(t).Download(context.Background(), srv.URL+"/cut", filepath.Join(dir, "00000"))
	if out.Status != domain.OutcomeFailed {
		t.Fatalf("期望 failed，实际：%+v", out)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Fatalf("写了一半的文件应被清理：%v", names)
	}
}

func TestDownload_TransportErrorIsFailed(t *testing.T) {
	dir := t.TempDir()
	out := newDownloader(t).Download(context.Background(), "http://127.0.0.1:1/x.jpg", filepath.Join(dir, "00000"))
	if out.Status != domain.OutcomeFailed || out.Reason == "" {
		t.Fatalf("期望 failed 且带原因，实际：%+v", out)
	}
	if names := listDir(t, dir); len(names) != 0 {
		t.Fatalf("failed 不应留下文件：%v", names)
	}
}

func TestDownload_TargetIsDirIsFailed(t *testing.T) {
	srv := newServer(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "00000")
	if err := os.Mkdir(target+".png", 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}

	out := newDownloader(t).Download(context.Background(), srv.URL+"/ok.jpg", target)
	if out.Status != domain.OutcomeFailed || !strings.HasPrefix(out.Reason, ReasonPathConflict) {
		t.Fatalf("期望 failed（%s），实际：%+v", ReasonPathConflict, out)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatalf("无扩展名临时文件应被清理，Stat err=%v", err)
	}
}
