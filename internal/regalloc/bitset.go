// bitset.go - 固定宽度位数组及其代数运算
//
// LiveSet 按虚拟寄存器的 dense local id 索引，宽度固定为
// wordsFor(vregCount) 个 64 位字。所有实例都从 Zone 分配，随
// compile() 调用整体释放。

package regalloc

const wordBits = 64

// wordsFor 返回容纳 n 个位所需的机器字数。
func wordsFor(n int) int {
	return (n + wordBits - 1) / wordBits
}

// LiveSet 是一个定长位数组，一个位对应一个虚拟寄存器的 local id。
type LiveSet struct {
	words []uint64
}

// NewLiveSet 从区域分配一个清零的位数组，能容纳 bLen 个字。
func (z *Zone) NewLiveSet(bLen int) (*LiveSet, error) {
	words, err := AllocWords(z, bLen)
	if err != nil {
		return nil, err
	}
	return &LiveSet{words: words}, nil
}

// Len 返回底层字数。
func (s *LiveSet) Len() int { return len(s.words) }

// CopyFrom 用 src 的内容整体覆盖 s。
func (s *LiveSet) CopyFrom(src *LiveSet) {
	copy(s.words, src.words)
}

// SetBit 置位 i。
func (s *LiveSet) SetBit(i int) {
	s.words[i/wordBits] |= 1 << uint(i%wordBits)
}

// ClearBit 清零位 i。
func (s *LiveSet) ClearBit(i int) {
	s.words[i/wordBits] &^= 1 << uint(i%wordBits)
}

// GetBit 返回位 i 是否被置位。
func (s *LiveSet) GetBit(i int) bool {
	return s.words[i/wordBits]&(1<<uint(i%wordBits)) != 0
}

// IsEmpty 报告位数组是否全零。
func (s *LiveSet) IsEmpty() bool {
	for _, w := range s.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Equals 报告两个位数组内容是否相同。
func (s *LiveSet) Equals(other *LiveSet) bool {
	if len(s.words) != len(other.words) {
		return false
	}
	for i, w := range s.words {
		if w != other.words[i] {
			return false
		}
	}
	return true
}

// UnionWith 把 other 的所有置位合并进 s（self |= other）。
func (s *LiveSet) UnionWith(other *LiveSet) {
	for i, w := range other.words {
		s.words[i] |= w
	}
}

// UnionChanged 把 other 合并进 s，返回 s 是否因此发生了变化。
func (s *LiveSet) UnionChanged(other *LiveSet) bool {
	changed := false
	for i, w := range other.words {
		nv := s.words[i] | w
		if nv != s.words[i] {
			changed = true
		}
		s.words[i] = nv
	}
	return changed
}

// Clear 把所有字清零，供调用方复用一个 LiveSet 做临时计算。
func (s *LiveSet) Clear() {
	for i := range s.words {
		s.words[i] = 0
	}
}

// AddBitsDelSource 把 src 中尚未出现在 s 里的位合并进 s，并把
// src 本身削减为只剩这部分新增的位（"delete from source"），方便
// 调用方继续沿着前驱链只传播真正新增的信息。返回值表示 src 里
// 是否确实存在新位。
func (s *LiveSet) AddBitsDelSource(src *LiveSet) bool {
	changed := false
	for i := range s.words {
		newBits := src.words[i] &^ s.words[i]
		if newBits != 0 {
			changed = true
		}
		s.words[i] |= newBits
		src.words[i] = newBits
	}
	return changed
}

// DeleteFrom 从 s 中清除 other 里置位的所有位（self &= ~other），
// 返回 s 是否因此发生变化。
func (s *LiveSet) DeleteFrom(other *LiveSet) bool {
	changed := false
	for i := range s.words {
		nv := s.words[i] &^ other.words[i]
		if nv != s.words[i] {
			changed = true
		}
		s.words[i] = nv
	}
	return changed
}
