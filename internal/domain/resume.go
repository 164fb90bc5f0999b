package domain

// ResumeState 是启动时由目录树推导出的续跑点（从不单独持久化）。
type ResumeState struct {
	// Folder 是要继续填充的目录编号。
	Folder int
	// Image 是下一次下载的起始编号（即被删除、需重新抓取的那张图）。
	Image int
	// Fresh=true 表示全新开始：调用方应清空/创建根目录。
	Fresh bool
	// Removed 是续跑时删除的疑似不完整文件（可能为空）。
	Removed []string
}
