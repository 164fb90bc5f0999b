package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

const (
	ErrCodeConfigNotFound     = "config_not_found"
	ErrCodeConfigInvalid      = "config_invalid"
	ErrCodeConfigMissingField = "config_missing_field"
	ErrCodeCorruptState       = "corrupt_state"
	ErrCodeSearchExhausted    = "search_exhausted"
	ErrCodeIOFailed           = "io_failed"
	ErrCodeCanceled           = "canceled"
)

// RunReport 是对外稳定输出（report.json / stdout JSON）的结构。
type RunReport struct {
	RunID string `json:"run_id"`
	Root  string `json:"root"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Resume ResumeInfo `json:"resume"`

	Summary ReportSummary  `json:"summary"`
	Folders []FolderResult `json:"folders"`

	// ErrorCode/ErrorMsg 记录 run 级失败（例如启动时的 corrupt_state）。
	ErrorCode string `json:"error_code,omitempty"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

type ResumeInfo struct {
	Fresh  bool `json:"fresh"`
	Folder int  `json:"folder"`
	Image  int  `json:"image"`
}

type ReportSummary struct {
	Folders      int `json:"folders"`
	Complete     int `json:"complete"`
	Saved        int `json:"saved"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	Searches     int `json:"searches"`
	SearchErrors int `json:"search_errors"`
}

type FolderResult struct {
	Index  int    `json:"index"`
	Dir    string `json:"dir"`
	Start  int    `json:"start"`
	Target int    `json:"target"`
	Count  int    `json:"count"`

	Saved        int `json:"saved"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	Searches     int `json:"searches"`
	SearchErrors int `json:"search_errors"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) folders 按 index 稳定排序
// 3) summary 由 folders 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Folders == nil {
		r.Folders = []FolderResult{}
	}
	sort.SliceStable(r.Folders, func(i, j int) bool { return r.Folders[i].Index < r.Folders[j].Index })

	s := ReportSummary{Folders: len(r.Folders)}
	for _, f := range r.Folders {
		if f.Status == StatusComplete {
			s.Complete++
		}
		s.Saved += f.Saved
		s.Skipped += f.Skipped
		s.Failed += f.Failed
		s.Searches += f.Searches
		s.SearchErrors += f.SearchErrors
	}
	r.Summary = s
}

// OK 表示 run 没有 run 级错误且所有目录都已填满。
func (r RunReport) OK() bool {
	if r.ErrorCode != "" {
		return false
	}
	for _, f := range r.Folders {
		if f.Status != StatusComplete {
			return false
		}
	}
	return true
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
