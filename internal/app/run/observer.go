package run

import (
	"time"

	"github.com/John-Robertt/imgrab/internal/acquire"
	"github.com/John-Robertt/imgrab/internal/config"
	"github.com/John-Robertt/imgrab/internal/domain"
)

// Observer 用于把“阶段/目录/单张图片”的进度从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）
// - 执行严格串行，事件按发生顺序到达；实现无需处理并发
type Observer interface {
	acquire.Observer

	// OnStart 在 Execute 开始时调用（配置已合并，尚未触碰输出目录）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在 resume/plan 等准备阶段结束时调用。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnFolderDone 在每个目录任务结束（完成或失败）时调用。
	OnFolderDone(res domain.FolderResult, dur time.Duration)
}
