// liveness.go - 活跃性求解器
//
// 按节点链表做反向数据流不动点：live-in[n] = uses[n] ∪ (live-out[n] −
// defs-only[n])，其中 live-out[n] 是 n 在控制流图里每个后继节点的
// live-in 的并集。因为这是一个纯粹的前驱关系上的不动点（位只会
// 单调地加入 live-in，从不清除），用一个标准的工作表算法求解，
// 效果与原始设计里显式的三态（Visit/Patch/Target）遍历完全等价，
// 但不需要手写一个显式的目标栈：Go 的 map + 切片工作表足够表达
// 同样的收敛性质。
//
// 预测函数 predecessorsOf 承载了反向 CFG 的全部特殊情形：标签的
// 前驱既包含它的跳转链（from/jumpNext），也包含它的文本前驱
// ——除非那个文本前驱本身是一条跳转指令（那种情况下控制流不会
// "落入" 标签，只会通过显式跳转进入）。

package regalloc

// predecessorsOf 返回 n 在反向控制流图里的前驱节点集合。
func predecessorsOf(n *AsmNode) []*AsmNode {
	var preds []*AsmNode

	if n.Type == NodeLabel {
		for j := n.From; j != nil; j = j.JumpNext {
			preds = append(preds, j)
		}
		if n.Prev != nil && n.Prev.Type != NodeJump {
			preds = append(preds, n.Prev)
		}
		return preds
	}

	if n.Prev != nil {
		preds = append(preds, n.Prev)
	}
	return preds
}

// livenessSolver 持有一次 livenessAnalysis 调用期间的工作状态。
type livenessSolver struct {
	zone    *Zone
	bLen    int
	liveOut map[*AsmNode]*LiveSet
	scratch *LiveSet
	queue   []*AsmNode
	queued  map[*AsmNode]bool
	visited map[*AsmNode]bool
}

func newLivenessSolver(zone *Zone, bLen int) (*livenessSolver, error) {
	scratch, err := zone.NewLiveSet(bLen)
	if err != nil {
		return nil, err
	}
	return &livenessSolver{
		zone:    zone,
		bLen:    bLen,
		liveOut: make(map[*AsmNode]*LiveSet),
		scratch: scratch,
		queued:  make(map[*AsmNode]bool),
		visited: make(map[*AsmNode]bool),
	}, nil
}

func (s *livenessSolver) push(n *AsmNode) {
	if n == nil || s.queued[n] {
		return
	}
	s.queued[n] = true
	s.queue = append(s.queue, n)
}

func (s *livenessSolver) pop() *AsmNode {
	n := s.queue[0]
	s.queue = s.queue[1:]
	delete(s.queued, n)
	return n
}

func (s *livenessSolver) outOf(n *AsmNode) (*LiveSet, error) {
	if out, ok := s.liveOut[n]; ok {
		return out, nil
	}
	out, err := s.zone.NewLiveSet(s.bLen)
	if err != nil {
		return nil, err
	}
	s.liveOut[n] = out
	return out, nil
}

// ensureLiveness 返回节点持久化的 live-in 位数组（仅对有工作数据的
// 节点分配并附着，满足"每个带工作数据的节点都有非空 liveness"这一
// 不变式）。
func (s *livenessSolver) ensureLiveness(n *AsmNode) (*LiveSet, error) {
	if n.Data.Liveness == nil {
		ls, err := s.zone.NewLiveSet(s.bLen)
		if err != nil {
			return nil, err
		}
		n.Data.Liveness = ls
	}
	return n.Data.Liveness, nil
}

// applyTied 把节点的绑定寄存器使用应用到 dst（从 out 起算的一份
// 拷贝）：先按 kill 清位，再按 use 置位，得到这个节点自身的 live-in。
func applyTied(n *AsmNode, dst *LiveSet) {
	for _, t := range n.Data.Tied {
		if t.Flags.IsKill() {
			dst.ClearBit(t.Reg.LocalID)
		}
	}
	for _, t := range n.Data.Tied {
		if !t.Flags.IsKill() {
			dst.SetBit(t.Reg.LocalID)
		}
	}
}

// visit 用 out（n 在该条传播路径上的 live-out 贡献）重新计算 n 的
// live-in，返回 n 的 live-in 是否因此发生了变化。
func (s *livenessSolver) visit(n *AsmNode, out *LiveSet) (bool, error) {
	s.scratch.CopyFrom(out)
	if n.HasWorkData() {
		applyTied(n, s.scratch)
		persisted, err := s.ensureLiveness(n)
		if err != nil {
			return false, err
		}
		return persisted.UnionChanged(s.scratch), nil
	}
	// 没有工作数据的节点（例如函数入口/出口标记）没有 def/use，
	// live-in 等于 live-out，不持久化，但仍需要继续向前驱传播。
	return true, nil
}

func (s *livenessSolver) liveInOf(n *AsmNode, out *LiveSet) *LiveSet {
	if n.HasWorkData() && n.Data.Liveness != nil {
		return n.Data.Liveness
	}
	return out
}

// livenessAnalysis 是活跃性求解的入口：从每个返回节点开始，反向走
// 整个前驱图直到不动点。bLen 是位数组需要的机器字数（由虚拟寄存器
// 总数决定）。返回值是被访问过（首次求解或因新增位被重访）的
// 节点总数，供调用方做诊断统计。
func livenessAnalysis(zone *Zone, bLen int, returningList []*AsmNode) (int, error) {
	solver, err := newLivenessSolver(zone, bLen)
	if err != nil {
		return 0, err
	}
	visits := 0

	for _, r := range returningList {
		out, err := solver.outOf(r)
		if err != nil {
			return 0, err
		}
		if _, err := solver.visit(r, out); err != nil {
			return 0, err
		}
		solver.visited[r] = true
		visits++
		solver.push(r)
	}

	for len(solver.queue) > 0 {
		n := solver.pop()
		nOut, err := solver.outOf(n)
		if err != nil {
			return 0, err
		}
		nIn := solver.liveInOf(n, nOut)

		for _, pred := range predecessorsOf(n) {
			predOut, err := solver.outOf(pred)
			if err != nil {
				return 0, err
			}
			outChanged := predOut.UnionChanged(nIn)
			first := !solver.visited[pred]
			if !outChanged && !first {
				continue
			}
			solver.visited[pred] = true

			changed, err := solver.visit(pred, predOut)
			if err != nil {
				return 0, err
			}
			// 首次发现的节点即便自身 live-in 没有新增位，也必须至少
			// 一次顺着它自己的前驱继续往回走，否则环路/分支更靠前的
			// 节点永远不会被探索到；之后的重访才只在确有新位时才入队。
			if changed || first {
				visits++
				solver.push(pred)
			}
		}
	}

	return visits, nil
}
