package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/naming"
	"github.com/John-Robertt/imgrab/internal/search"
)

// FileName 是默认配置文件名（位于 cwd）。
const FileName = "imgrab.json"

const (
	// ErrCodeNotFound 表示 -config 显式指定的文件不存在。
	ErrCodeNotFound = domain.ErrCodeConfigNotFound
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = domain.ErrCodeConfigInvalid
	// ErrCodeMissingField 表示命令需要的必填字段在 CLI/环境变量/配置文件中都没有给出。
	ErrCodeMissingField = domain.ErrCodeConfigMissingField
)

// 环境变量（.env 由入口在进程启动时加载）。
const (
	EnvWords    = "IMGRAB_WORDS"
	EnvRoot     = "IMGRAB_ROOT"
	EnvProxyURL = "IMGRAB_PROXY_URL"
	EnvLogLevel = "IMGRAB_LOG_LEVEL"
	EnvLogFile  = "IMGRAB_LOG_FILE"
)

// 内置默认值。
const (
	DefaultFolders           = 3
	DefaultImagesPerFolder   = 10
	DefaultKeywordsPerSearch = 3
	DefaultZeroPad           = 5
	DefaultTimeoutSeconds    = 20
	DefaultLogLevel          = "info"

	maxRetry = 5
)

// CLIArgs 是 CLI 暴露的配置项，并保留“是否显式指定”的信息，
// 这样 -resume=false 这类取值才能覆盖配置文件。字符串字段空串视为未指定。
type CLIArgs struct {
	ConfigPath string

	Words    string
	Root     string
	ProxyURL string
	LogLevel string
	LogFile  string
	DumpDir  string

	Folders    int
	FoldersSet bool

	Images    int
	ImagesSet bool

	Keywords    int
	KeywordsSet bool

	Match string

	Resume    bool
	ResumeSet bool

	Prefix    string
	PrefixSet bool

	Suffix    string
	SuffixSet bool

	ZeroPad    int
	ZeroPadSet bool

	Seed    int64
	SeedSet bool
}

// FileConfig 对应 imgrab.json。数值/布尔字段用指针区分“未写”和“写了零值”。
type FileConfig struct {
	Words             string       `json:"words"`
	Root              string       `json:"root"`
	Folders           *int         `json:"folders"`
	ImagesPerFolder   *int         `json:"images_per_folder"`
	KeywordsPerSearch *int         `json:"keywords_per_search"`
	Match             string       `json:"match"`
	Resume            *bool        `json:"resume"`
	Prefix            string       `json:"prefix"`
	Suffix            string       `json:"suffix"`
	ZeroPad           *int         `json:"zero_pad"`
	Proxy             *ProxyConfig `json:"proxy"`
	TimeoutSeconds    int          `json:"timeout_seconds"`
	RetryMax          int          `json:"retry_max"`
	MaxEmptyCycles    int          `json:"max_empty_cycles"`
	SearchIntervalMS  int          `json:"search_interval_ms"`
	SearchBaseURL     string       `json:"search_base_url"`
	Seed              int64        `json:"seed"`
	DumpDir           string       `json:"dump_dir"`
	LogFile           string       `json:"log_file"`
	LogLevel          string       `json:"log_level"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置；路径均为绝对路径（未配置则为空）。
type EffectiveConfig struct {
	// ConfigPath 是实际读取的配置文件（未读取任何文件时为空）。
	ConfigPath string

	Words string
	Root  string

	Folders           int
	ImagesPerFolder   int
	KeywordsPerSearch int
	Match             domain.MatchMode
	Resume            bool

	Naming naming.Scheme

	ProxyURL       string
	Timeout        time.Duration
	RetryMax       int
	MaxEmptyCycles int
	SearchInterval time.Duration
	SearchBaseURL  string
	Seed           int64

	DumpDir  string
	LogFile  string
	LogLevel string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code  string
	Path  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingField:
		if e.Path != "" {
			return fmt.Sprintf("%s：缺少必填字段 %s（CLI、环境变量与配置文件 %q 均未提供）", e.Code, e.Field, e.Path)
		}
		return fmt.Sprintf("%s：缺少必填字段 %s（CLI 与环境变量均未提供）", e.Code, e.Field)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，与环境变量、CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 给了 -config：必须存在，否则 config_not_found
// 2) 否则尝试 <cwd>/imgrab.json（可选）
//
// 覆盖优先级：CLI（显式指定）> 环境变量 > 配置文件 > 内置默认。
// 配置文件里的相对路径相对配置文件所在目录；CLI/环境变量里的相对路径相对 cwd。
//
// 必填字段（words/root）不在这里检查：不同子命令需要的字段不同，见 Require。
func LoadEffective(cwd string, cli CLIArgs, getenv func(string) string) (EffectiveConfig, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			cfgPath = ""
		}
	}

	return merge(cwdAbs, cfgPath, cli, fc, getenv)
}

func merge(cwd, cfgPath string, cli CLIArgs, fc FileConfig, getenv func(string) string) (EffectiveConfig, error) {
	fileDir := cwd
	if cfgPath != "" {
		fileDir = filepath.Dir(cfgPath)
	}
	invalid := func(format string, args ...any) error {
		p := cfgPath
		if p == "" {
			p = "<cli/env>"
		}
		return &Error{Code: ErrCodeInvalid, Path: p, Err: fmt.Errorf(format, args...)}
	}

	eff := EffectiveConfig{ConfigPath: cfgPath}

	eff.Words = pickPath(cwd, fileDir, cli.Words, getenv(EnvWords), fc.Words)
	eff.Root = pickPath(cwd, fileDir, cli.Root, getenv(EnvRoot), fc.Root)
	eff.LogFile = pickPath(cwd, fileDir, cli.LogFile, getenv(EnvLogFile), fc.LogFile)
	eff.DumpDir = pickPath(cwd, fileDir, cli.DumpDir, "", fc.DumpDir)

	eff.Folders = pickInt(cli.FoldersSet, cli.Folders, fc.Folders, DefaultFolders)
	if eff.Folders < 1 {
		return EffectiveConfig{}, invalid("folders 必须 >= 1，实际 %d", eff.Folders)
	}
	eff.ImagesPerFolder = pickInt(cli.ImagesSet, cli.Images, fc.ImagesPerFolder, DefaultImagesPerFolder)
	if eff.ImagesPerFolder < 1 {
		return EffectiveConfig{}, invalid("images_per_folder 必须 >= 1，实际 %d", eff.ImagesPerFolder)
	}
	eff.KeywordsPerSearch = pickInt(cli.KeywordsSet, cli.Keywords, fc.KeywordsPerSearch, DefaultKeywordsPerSearch)
	if eff.KeywordsPerSearch < 1 {
		return EffectiveConfig{}, invalid("keywords_per_search 必须 >= 1，实际 %d", eff.KeywordsPerSearch)
	}

	match := firstNonEmpty(cli.Match, fc.Match, string(domain.MatchAll))
	mode, err := domain.ParseMatchMode(match)
	if err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}
	eff.Match = mode

	eff.Resume = true
	if cli.ResumeSet {
		eff.Resume = cli.Resume
	} else if fc.Resume != nil {
		eff.Resume = *fc.Resume
	}

	prefix := fc.Prefix
	if cli.PrefixSet {
		prefix = cli.Prefix
	}
	suffix := fc.Suffix
	if cli.SuffixSet {
		suffix = cli.Suffix
	}
	zeroPad := pickInt(cli.ZeroPadSet, cli.ZeroPad, fc.ZeroPad, DefaultZeroPad)
	ns, err := naming.New(prefix, suffix, zeroPad)
	if err != nil {
		return EffectiveConfig{}, invalid("%v", err)
	}
	eff.Naming = ns

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = fc.Proxy.URL
	}
	eff.ProxyURL = firstNonEmpty(cli.ProxyURL, getenv(EnvProxyURL), proxyURL)
	if eff.ProxyURL != "" {
		u, err := url.Parse(eff.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, invalid("proxy.url 无效：%q", eff.ProxyURL)
		}
	}

	timeout := fc.TimeoutSeconds
	if timeout == 0 {
		timeout = DefaultTimeoutSeconds
	}
	if timeout < 1 {
		return EffectiveConfig{}, invalid("timeout_seconds 必须 >= 1，实际 %d", timeout)
	}
	eff.Timeout = time.Duration(timeout) * time.Second

	// retry_max 超出范围截断。
	eff.RetryMax = fc.RetryMax
	if eff.RetryMax < 0 {
		eff.RetryMax = 0
	}
	if eff.RetryMax > maxRetry {
		eff.RetryMax = maxRetry
	}

	if fc.MaxEmptyCycles < 0 {
		return EffectiveConfig{}, invalid("max_empty_cycles 不能为负数，实际 %d", fc.MaxEmptyCycles)
	}
	eff.MaxEmptyCycles = fc.MaxEmptyCycles

	if fc.SearchIntervalMS < 0 {
		return EffectiveConfig{}, invalid("search_interval_ms 不能为负数，实际 %d", fc.SearchIntervalMS)
	}
	eff.SearchInterval = time.Duration(fc.SearchIntervalMS) * time.Millisecond

	eff.SearchBaseURL = firstNonEmpty(fc.SearchBaseURL, search.DefaultBaseURL)
	u, err := url.Parse(eff.SearchBaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return EffectiveConfig{}, invalid("search_base_url 必须是 http/https 地址：%q", eff.SearchBaseURL)
	}

	eff.Seed = fc.Seed
	if cli.SeedSet {
		eff.Seed = cli.Seed
	}

	eff.LogLevel = strings.ToLower(firstNonEmpty(cli.LogLevel, getenv(EnvLogLevel), fc.LogLevel, DefaultLogLevel))
	switch eff.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, invalid("log_level 只能是 debug/info/warn/error，实际 %q", eff.LogLevel)
	}

	// 根目录下只允许数字编号的子目录；ResetDir 也会清掉根目录下的文件。
	if eff.Root != "" {
		if eff.DumpDir != "" && within(eff.Root, eff.DumpDir) {
			return EffectiveConfig{}, invalid("dump_dir 不能位于 root 内：%q", eff.DumpDir)
		}
		if eff.LogFile != "" && within(eff.Root, filepath.Dir(eff.LogFile)) {
			return EffectiveConfig{}, invalid("log_file 不能位于 root 内：%q", eff.LogFile)
		}
	}

	return eff, nil
}

// Require 检查子命令需要的必填字段（目前为 "words" 与 "root"）。
func (c EffectiveConfig) Require(fields ...string) error {
	for _, f := range fields {
		var v string
		switch f {
		case "words":
			v = c.Words
		case "root":
			v = c.Root
		default:
			return fmt.Errorf("未知的配置字段：%q", f)
		}
		if v == "" {
			return &Error{Code: ErrCodeMissingField, Path: c.ConfigPath, Field: f}
		}
	}
	return nil
}

func pickInt(cliSet bool, cliVal int, fileVal *int, def int) int {
	if cliSet {
		return cliVal
	}
	if fileVal != nil {
		return *fileVal
	}
	return def
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// pickPath 按优先级取路径并转为绝对路径：文件中的相对路径以 fileDir 为基准，其余以 cwd 为基准。
func pickPath(cwd, fileDir, cliVal, envVal, fileVal string) string {
	if v := strings.TrimSpace(cliVal); v != "" {
		return absCleanFrom(cwd, v)
	}
	if v := strings.TrimSpace(envVal); v != "" {
		return absCleanFrom(cwd, v)
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return absCleanFrom(fileDir, v)
	}
	return ""
}

// within 判断 p 是否等于 root 或位于其下（两者均为 clean 的绝对路径）。
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
