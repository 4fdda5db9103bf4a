// sweep.go - 不可达代码清扫
//
// fetch() 把落在死代码之后的跳转目标登记为“不可达种子”。清扫阶段
// 从每个种子开始向前走，删掉那一段还没有进入 liveness 前沿（没有
// 工作数据）的节点；一旦遇到标签，就从“全删”切换到“只删
// removable 的节点”，这样控制流锚点（标签、伪指令）一旦出现就会
// 被保留，纯粹的死指令仍然被清掉。

package regalloc

// removeUnreachableCode 清扫 seeds 里每个种子开始的死代码run，
// 返回实际删除的节点数（供调用方做诊断统计）。
// stop 是本次函数编译的哨兵节点，遇到它或遇到已经有工作数据的
// 节点就停止当前种子的遍历。
func removeUnreachableCode(seeds []*AsmNode, stop *AsmNode, backend Backend) int {
	removed := 0
	for _, seed := range seeds {
		removed += sweepRun(seed, stop, backend)
	}
	return removed
}

func sweepRun(seed, stop *AsmNode, backend Backend) int {
	removed := 0
	sawLabel := false
	cur := seed
	for cur != nil && cur != stop && !cur.HasWorkData() {
		next := cur.Next

		if cur.Type == NodeLabel {
			sawLabel = true
		}

		deletable := true
		if sawLabel {
			deletable = cur.Removable
		}

		if deletable {
			backend.RemoveNode(cur)
			removed++
		}

		cur = next
	}
	return removed
}
