// node.go - 节点、工作数据与虚拟寄存器的数据模型
//
// AsmNode 是早前阶段（指令选择）产出的双向链表节点，寄存器分配上下文
// 把它当作只读为主的结构：只有外部的 RemoveNode、本包对 liveness
// 位数组的写入，以及 annotate 对 Comment 的改写会改变它。节点本身从调用方传入，上下文既不分配也不
// 释放 AsmNode —— 只有挂在节点上的 RAData/liveness 位数组来自 Zone，
// 随 compile() 调用整体释放。

package regalloc

// NodeType 区分节点承担的角色。
type NodeType int

const (
	NodeLabel NodeType = iota
	NodeJump
	NodeFuncEntry
	NodeFuncExit
	NodeInst
	NodeDirective
	NodeInfo
)

func (t NodeType) String() string {
	switch t {
	case NodeLabel:
		return "label"
	case NodeJump:
		return "jump"
	case NodeFuncEntry:
		return "func-entry"
	case NodeFuncExit:
		return "func-exit"
	case NodeInst:
		return "inst"
	case NodeDirective:
		return "directive"
	case NodeInfo:
		return "info"
	default:
		return "unknown"
	}
}

// AsmNode 是链表中的一个节点。Prev/Next 构成主链；标签节点额外通过
// From 持有指向它的跳转链表头，跳转节点通过 JumpNext 串成同目标的
// 兄弟链（这两条链一起构成 liveness 求解器遍历的反向 CFG）。
type AsmNode struct {
	Type      NodeType
	Removable bool
	Data      *RAData
	Comment   string

	Prev, Next *AsmNode

	// 仅当 Type == NodeLabel 时有意义。
	NumRefs int
	From    *AsmNode

	// 仅当 Type == NodeJump 时有意义。
	JumpTarget *AsmNode
	JumpNext   *AsmNode
}

// HasWorkData 报告节点是否已经被 fetch() 挂上了工作数据
// （尚未进入 liveness 前沿的节点没有工作数据）。
func (n *AsmNode) HasWorkData() bool {
	return n.Data != nil
}

// Liveness 返回节点的 live-in 位数组，节点没有工作数据或尚未求解时为 nil。
func (n *AsmNode) Liveness() *LiveSet {
	if n.Data == nil {
		return nil
	}
	return n.Data.Liveness
}

// TiedFlags 描述一次绑定寄存器引用的读写性质。
type TiedFlags uint8

const (
	TiedRAll  TiedFlags = 1 << iota // 读
	TiedWAll                        // 写
	TiedUnuse                       // 此处之后不再需要该值（被杀死）
)

// IsKill 报告这个绑定是否是纯定值（写而不读），即 liveness 意义上的 kill。
func (f TiedFlags) IsKill() bool {
	return f&TiedWAll != 0 && f&TiedRAll == 0
}

// TiedReg 描述一个节点对某个虚拟寄存器的一次绑定使用。
type TiedReg struct {
	Reg   *VirtReg
	Flags TiedFlags
}

// RAData 是 fetch() 挂在每个存活节点上的逐节点工作数据。
type RAData struct {
	Tied     []TiedReg
	Liveness *LiveSet

	// Private 保留给后端自用的数据，核心不解释也不触碰。
	Private any
}

// VirtReg 是跨越整个函数生命周期的虚拟寄存器描述符。
type VirtReg struct {
	Size      int
	Alignment int
	LocalID   int
	IsStack   bool
	PhysID    int

	memCell *RACell
}

// MemCell 返回已经分配给该虚拟寄存器的内存单元，尚未分配时为 nil。
func (v *VirtReg) MemCell() *RACell {
	return v.memCell
}

// cleanup 重置由上下文写入的每字段，供 Context.Cleanup 调用。
func (v *VirtReg) cleanup() {
	v.LocalID = 0
	v.PhysID = 0
	v.memCell = nil
}
