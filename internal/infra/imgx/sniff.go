package imgx

import (
	"bytes"
	"image"
	_ "image/gif"  // 注册 GIF 解码器
	_ "image/jpeg" // 注册 JPEG 解码器
	_ "image/png"  // 注册 PNG 解码器
	"io"
	"os"

	_ "golang.org/x/image/bmp"  // 注册 BMP 解码器
	_ "golang.org/x/image/tiff" // 注册 TIFF 解码器
	_ "golang.org/x/image/webp" // 注册 WebP 解码器
)

// HeadSize 是嗅探时读取的文件头上限。
// JPEG 的 SOF 段可能排在较大的 EXIF 段之后，1 MiB 足够覆盖常见图片。
const HeadSize = 1 << 20

// Sniffer 通过检查字节内容判断真实图片类型（不信任 URL 后缀或服务端 Content-Type）。
type Sniffer interface {
	// Sniff 返回扩展名（不含 '.'）；无法识别时 ok=false。
	Sniff(head []byte) (ext string, ok bool)
}

// DecoderSniffer 依赖已注册的 image 解码器解析图片头（DecodeConfig），
// 比单纯比对 magic number 更严格：头部损坏的文件不会被当作图片。
type DecoderSniffer struct{}

var formatExt = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"bmp":  "bmp",
	"tiff": "tiff",
	"webp": "webp",
}

func (DecoderSniffer) Sniff(head []byte) (string, bool) {
	if len(head) == 0 {
		return "", false
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(head))
	if err != nil {
		return "", false
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", false
	}
	ext, ok := formatExt[format]
	return ext, ok
}

// SniffFile 读取 path 的文件头并交给 s 判断。
func SniffFile(s Sniffer, path string) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, HeadSize))
	if err != nil {
		return "", false, err
	}
	ext, ok := s.Sniff(head)
	return ext, ok, nil
}
