package domain

// Vocabulary 是关键词来源（按词表文件行序保存，允许重复）。
//
// 约束：加载后只读；抽样不得修改它。
type Vocabulary []string

// Len 返回词条数。
func (v Vocabulary) Len() int { return len(v) }

// At 返回第 i 个词条（调用方保证下标合法）。
func (v Vocabulary) At(i int) string { return v[i] }
