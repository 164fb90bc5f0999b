package sampler

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/John-Robertt/imgrab/internal/domain"
)

// InvalidSampleSizeError 表示 k<=0 或词表为空。
type InvalidSampleSizeError struct {
	K         int
	VocabSize int
}

func (e *InvalidSampleSizeError) Error() string {
	if e.VocabSize == 0 {
		return "词表为空，无法抽样"
	}
	return fmt.Sprintf("抽样个数必须 >= 1，实际 %d", e.K)
}

// Sampler 从词表中“有放回”地随机抽取 k 个词（等价于独立抽 k 次）。
//
// 约束：不修改词表；同一个 Sampler 可被多处共享（内部加锁）。
type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New 构造 Sampler；seed==0 时使用当前时间作为种子。
func New(seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{rnd: rand.New(rand.NewSource(seed))}
}

// Sample 返回 k 个词（顺序即抽取顺序，允许重复）。
func (s *Sampler) Sample(v domain.Vocabulary, k int) ([]string, error) {
	if k <= 0 || len(v) == 0 {
		return nil, &InvalidSampleSizeError{K: k, VocabSize: len(v)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, k)
	for i := range out {
		out[i] = v[s.rnd.Intn(len(v))]
	}
	return out, nil
}
