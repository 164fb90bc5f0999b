package resume

import (
	"errors"
	"fmt"
	"os"

	"github.com/John-Robertt/imgrab/internal/domain"
	"github.com/John-Robertt/imgrab/internal/infra/fsx"
	"github.com/John-Robertt/imgrab/internal/naming"
	"github.com/John-Robertt/imgrab/internal/scan"
)

// CorruptStateError 表示输出树状态无法解释，需要人工处理后才能续跑。
type CorruptStateError struct {
	Path   string
	Reason string
	Err    error
}

func (e *CorruptStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("输出目录状态损坏（%s）：%s：%v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("输出目录状态损坏（%s）：%s", e.Path, e.Reason)
}

func (e *CorruptStateError) Unwrap() error { return e.Err }

func IsCorruptState(err error) bool {
	var e *CorruptStateError
	return errors.As(err, &e)
}

// Inspect 只读地推导续跑点，不删除任何文件；对同一棵树重复调用结果相同。
//
// 规则：
// - root 不存在或没有编号目录：Fresh {0,0}
// - F = 最大目录编号；目录必须从 0 连续编号到 F，且 F 之前的目录不能为空
// - I = 目录 F 内最大图片序号；F 为空时 I=0（上次在首张保存前中断）
// - 任一目录名/文件名无法解析都视为状态损坏
func Inspect(root string, s naming.Scheme) (domain.ResumeState, error) {
	fi, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ResumeState{Fresh: true}, nil
		}
		return domain.ResumeState{}, err
	}
	if !fi.IsDir() {
		return domain.ResumeState{}, &CorruptStateError{Path: root, Reason: "根路径不是目录"}
	}

	folders, err := scan.Folders(root)
	if err != nil {
		return domain.ResumeState{}, wrapScan(err)
	}
	if len(folders) == 0 {
		return domain.ResumeState{Fresh: true}, nil
	}

	last := folders[len(folders)-1]
	if last.Index != len(folders)-1 {
		return domain.ResumeState{}, &CorruptStateError{Path: root, Reason: fmt.Sprintf("目录编号不连续（共 %d 个，最大 %d）", len(folders), last.Index)}
	}

	var lastImages []scan.Image
	for _, f := range folders {
		imgs, err := scan.Images(f.Path, s)
		if err != nil {
			return domain.ResumeState{}, wrapScan(err)
		}
		if f.Index < last.Index && len(imgs) == 0 {
			return domain.ResumeState{}, &CorruptStateError{Path: f.Path, Reason: "非末尾目录为空"}
		}
		if f.Index == last.Index {
			lastImages = imgs
		}
	}

	st := domain.ResumeState{Folder: last.Index}
	if len(lastImages) > 0 {
		st.Image = lastImages[len(lastImages)-1].Index
	}
	return st, nil
}

// Compute 推导续跑点并删除末尾疑似不完整的图片（同一序号的所有文件，
// 包括中断时留下的无扩展名文件）。enabled=false 时直接返回 Fresh。
func Compute(root string, enabled bool, s naming.Scheme) (domain.ResumeState, error) {
	if !enabled {
		return domain.ResumeState{Fresh: true}, nil
	}
	st, err := Inspect(root, s)
	if err != nil || st.Fresh {
		return st, err
	}

	imgs, err := scan.Images(naming.FolderDir(root, st.Folder), s)
	if err != nil {
		return domain.ResumeState{}, wrapScan(err)
	}
	for _, img := range imgs {
		if img.Index != st.Image {
			continue
		}
		if err := fsx.RemoveIfExists(img.Path); err != nil {
			return domain.ResumeState{}, err
		}
		st.Removed = append(st.Removed, img.Path)
	}
	return st, nil
}

func wrapScan(err error) error {
	var ie *scan.InvalidEntryError
	if errors.As(err, &ie) {
		return &CorruptStateError{Path: ie.Path, Reason: ie.Reason}
	}
	return err
}
