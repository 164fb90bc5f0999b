package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/infra/fsx"
	"github.com/John-Robertt/imgrab/internal/infra/imgx"
)

// ReasonUnrecognized 是内容无法识别为图片时的 skipped 原因。
const ReasonUnrecognized = "unrecognized content type"

// failed 原因中可识别的前缀。
const (
	ReasonPathConflict = "path type conflict"
	ReasonCrossDevice  = "cross-device rename"
)

// Downloader 下载单个 URL 并按嗅探结果加扩展名。它是图片内容的唯一写入者。
//
// 结果契约：
// - saved：留下 <targetPath>.<ext> 一个文件
// - skipped/failed：不留下任何文件（包括写了一半的无扩展名文件）
type Downloader struct {
	HTTP    *http.Client
	Sniffer imgx.Sniffer
	Log     *slog.Logger
}

func (d *Downloader) log() *slog.Logger {
	if d.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d.Log
}

func (d *Downloader) sniffer() imgx.Sniffer {
	if d.Sniffer == nil {
		return imgx.DecoderSniffer{}
	}
	return d.Sniffer
}

// Download 把 url 写到 targetPath（暂无扩展名），嗅探后重命名为 targetPath.<ext>。
// 任何失败都以 Outcome 返回，不会 panic 或返回 error。
func (d *Downloader) Download(ctx context.Context, url, targetPath string) domain.Outcome {
	out := domain.Outcome{URL: url}

	if d.HTTP == nil {
		return d.failed(out, errors.New("http client 不能为空"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return d.failed(out, err)
	}
	resp, err := d.HTTP.Do(req)
	if err != nil {
		return d.failed(out, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out.Status = domain.OutcomeFailed
		out.HTTPStatus = resp.StatusCode
		out.Reason = fmt.Sprintf("HTTP %d", resp.StatusCode)
		d.log().Error("下载返回非 200，跳过", "url", url, "status", resp.StatusCode)
		return out
	}

	if err := fsx.CheckFileTarget(targetPath); err != nil {
		return d.failed(out, err)
	}
	if err := writeBody(targetPath, resp.Body); err != nil {
		_ = fsx.RemoveIfExists(targetPath)
		return d.failed(out, err)
	}

	ext, ok, err := imgx.SniffFile(d.sniffer(), targetPath)
	if err != nil {
		_ = fsx.RemoveIfExists(targetPath)
		return d.failed(out, err)
	}
	if !ok {
		if err := fsx.RemoveIfExists(targetPath); err != nil {
			d.log().Error("删除无法识别的文件失败", "path", targetPath, "err", err)
		}
		out.Status = domain.OutcomeSkipped
		out.Reason = ReasonUnrecognized
		d.log().Warn("不是可识别的图片类型，跳过", "url", url)
		return out
	}

	final := targetPath + "." + ext
	if err := fsx.CheckFileTarget(final); err != nil {
		_ = fsx.RemoveIfExists(targetPath)
		return d.failed(out, err)
	}
	if err := fsx.Rename(targetPath, final); err != nil {
		_ = fsx.RemoveIfExists(targetPath)
		return d.failed(out, err)
	}

	out.Status = domain.OutcomeSaved
	out.Path = final
	out.Ext = ext
	d.log().Debug("已保存", "path", final, "url", url)
	return out
}

func (d *Downloader) failed(out domain.Outcome, err error) domain.Outcome {
	out.Status = domain.OutcomeFailed
	switch {
	case fsx.IsPathTypeConflict(err):
		out.Reason = ReasonPathConflict + ": " + err.Error()
		d.log().Error("目标路径被非普通文件占用，继续下一个链接", "url", out.URL, "err", err)
	case fsx.IsCrossDevice(err):
		out.Reason = ReasonCrossDevice + ": " + err.Error()
		d.log().Error("临时文件与目标不在同一文件系统，继续下一个链接", "url", out.URL, "err", err)
	default:
		out.Reason = err.Error()
		d.log().Error("下载失败，继续下一个链接", "url", out.URL, "err", err)
	}
	return out
}

func writeBody(path string, body io.Reader) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
