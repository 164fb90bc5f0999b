package planner

import (
	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/naming"
)

// PlanFolders 基于续跑点生成确定性的目录任务列表（不做任何写入）。
//
// 规则：
// - 任务从 st.Folder 开始，到 folders-1 结束；续跑点已越过 folders 时返回空列表
// - 续跑目录从 st.Image 计数，其后的目录从 0 计数
func PlanFolders(root string, st domain.ResumeState, folders, target int) []domain.FolderJob {
	first := st.Folder
	if st.Fresh {
		first = 0
	}
	if first < 0 || first >= folders {
		return []domain.FolderJob{}
	}

	jobs := make([]domain.FolderJob, 0, folders-first)
	for i := first; i < folders; i++ {
		job := domain.FolderJob{
			Index:  i,
			Dir:    naming.FolderDir(root, i),
			Target: target,
		}
		if i == first && !st.Fresh {
			job.Start = st.Image
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Remaining 统计计划中仍需下载的图片数量（已达标的目录计 0）。
func Remaining(jobs []domain.FolderJob) int {
	n := 0
	for _, j := range jobs {
		if j.Target > j.Start {
			n += j.Target - j.Start
		}
	}
	return n
}
