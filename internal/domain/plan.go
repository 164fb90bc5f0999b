package domain

// FolderJob 描述一个目录的填充任务。
type FolderJob struct {
	Index int
	Dir   string
	// Start 是计数起点：续跑目录从 ResumeState.Image 开始，其余从 0 开始。
	Start  int
	Target int
}
