// context.go - 寄存器分配上下文（驱动器）
//
// Context 对应一个编译器实例持有、在函数之间反复复用的寄存器分配
// 上下文：每个函数编译一次，走固定的阶段顺序 fetch → sweep →
// liveness → annotate → translate，出错就记下 lastError 并返回，
// 成功与失败都由调用方决定何时 Reset。结构上参照 internal/jit 里
// JITCompiler 的生命周期风格（每次 Compile 重新填写的统计信息 +
// 最后一次错误）；Context 不加锁，只供单个 goroutine 使用。

package regalloc

import (
	"fmt"

	"go.uber.org/zap"
)

// Func 是寄存器分配上下文要编译的一个函数：一条节点链表加上它
// 涉及的虚拟寄存器表。
type Func struct {
	Entry *AsmNode
	End   *AsmNode
	Vregs []*VirtReg
}

// FetchResult 是 fetch() 必须交给核心的全部输入。
type FetchResult struct {
	UnreachableList []*AsmNode
	ReturningList   []*AsmNode
	JccList         []*AsmNode
}

// Fetcher 由架构相关的后端实现：指令选择阶段，负责给每个存活节点
// 挂上工作数据，并把函数的虚拟寄存器登记进 Context。
type Fetcher interface {
	Fetch(fn *Func, ctx *Context) (*FetchResult, error)
}

// Translator 由架构相关的后端实现：消费 liveness 位数组和单元偏移
// 量，产出最终指令形式。
type Translator interface {
	Translate(fn *Func, ctx *Context) error
}

// Backend 是核心对编译器的全部回溯依赖：移除节点、上报错误。
// 不再是一个全局的 Compiler 指针，而是显式传入的接口。
type Backend interface {
	RemoveNode(n *AsmNode)
	ReportError(err error)
}

// Stats 记录一次 compile() 调用的阶段级信息，仅用于诊断/日志。
type Stats struct {
	NodeCount      int
	RemovedCount   int
	LivenessVisits int
	VariableCells  int
	StackCells     int
	FrameBytes     int
}

// Context 是寄存器分配上下文本身。
type Context struct {
	backend Backend
	logger  *zap.Logger
	config  *Config

	zone  *Zone
	cells CellStore

	lastError error

	fn    *Func
	stop  *AsmNode

	stats Stats
}

// NewContext 创建一个新的寄存器分配上下文。logger 可以为 nil，
// 表示不记录日志也不默认生成内联注释。
func NewContext(backend Backend, logger *zap.Logger, config *Config) *Context {
	if config == nil {
		config = DefaultConfig()
	}
	return &Context{
		backend: backend,
		logger:  logger,
		config:  config,
		zone:    NewZone(config.Regalloc.ZoneChunkSize, config.Regalloc.MaxZoneBytes),
	}
}

// LastError 返回上一次 Compile 调用留下的错误，成功时为 nil。
func (c *Context) LastError() error {
	return c.lastError
}

// Stats 返回上一次 Compile 调用的阶段统计。
func (c *Context) Stats() Stats {
	return c.stats
}

// Compile 编译一个函数：fetch → sweep → liveness → annotate →
// translate，并在出错时立即返回。
func (c *Context) Compile(fn *Func, fetcher Fetcher, translator Translator) error {
	c.fn = fn
	if fn.End != nil {
		c.stop = fn.End.Next
	}
	c.stats = Stats{}
	c.lastError = nil

	c.logPhase("fetch", fn)
	result, err := fetcher.Fetch(fn, c)
	if err != nil {
		return c.fail(err)
	}
	c.stats.NodeCount = countNodes(fn.Entry, c.stop)

	c.logPhase("sweep", fn)
	c.stats.RemovedCount = removeUnreachableCode(result.UnreachableList, c.stop, c.backend)

	c.logPhase("liveness", fn)
	bLen := wordsFor(len(fn.Vregs))
	visits, err := livenessAnalysis(c.zone, bLen, result.ReturningList)
	if err != nil {
		return c.fail(err)
	}
	c.stats.LivenessVisits = visits

	c.cells.ResolveCellOffsets()
	c.stats.VariableCells = cellListLen(c.cells.VarCells())
	c.stats.StackCells = cellListLen(c.cells.StackCells())
	c.stats.FrameBytes = c.cells.MemAllTotal()

	if c.shouldAnnotate() {
		c.annotate(fn)
	}

	c.logPhase("translate", fn)
	if err := translator.Translate(fn, c); err != nil {
		return c.fail(err)
	}

	// 编译完成后游标不再允许追加代码。
	c.stop = nil

	return nil
}

func cellListLen(head *RACell) int {
	n := 0
	for c := head; c != nil; c = c.Next() {
		n++
	}
	return n
}

func (c *Context) fail(err error) error {
	c.lastError = err
	if c.backend != nil {
		c.backend.ReportError(err)
	}
	return err
}

func (c *Context) shouldAnnotate() bool {
	if c.logger == nil {
		return c.config.Regalloc.AnnotateByDefault
	}
	return true
}

func (c *Context) logPhase(phase string, fn *Func) {
	if c.logger == nil {
		return
	}
	c.logger.Debug("regalloc phase",
		zap.String("phase", phase),
		zap.Int("vreg_count", len(fn.Vregs)),
	)
}

// annotate 为每个存活节点生成内联注释，便于带日志运行时观察
// liveness 的求解结果。
func (c *Context) annotate(fn *Func) {
	for n := fn.Entry; n != nil && n != c.stop; n = n.Next {
		comment, err := c.FormatInlineComment(n)
		if err != nil {
			continue
		}
		if comment != "" {
			n.Comment = comment
		}
	}
	if c.logger != nil {
		c.logger.Info("regalloc annotate complete", zap.Int("node_count", countNodes(fn.Entry, c.stop)))
	}
}

func countNodes(entry, stop *AsmNode) int {
	n := 0
	for cur := entry; cur != nil && cur != stop; cur = cur.Next {
		n++
	}
	return n
}

// FormatInlineComment 为单个节点构造诊断用的内联注释：先是节点自带
// 的注释文本，再是（如果存在）一段 liveness 列，每个虚拟寄存器
// 占一列（没有当前函数时按位数组的全部位宽），在 liveness 中置位的
// 列为 '.'、其余为空格，再按绑定使用的读写性质覆盖为 r/w/x/u（被
// 杀死时大写）。
func (c *Context) FormatInlineComment(n *AsmNode) (string, error) {
	var out string
	if n.Comment != "" {
		out = n.Comment
	}

	ls := n.Liveness()
	if ls == nil {
		return out, nil
	}

	width := ls.Len() * wordBits
	if c.fn != nil && len(c.fn.Vregs) < width {
		width = len(c.fn.Vregs)
	}
	cols := make([]byte, width)
	for i := range cols {
		cols[i] = ' '
		if ls.GetBit(i) {
			cols[i] = '.'
		}
	}

	if n.HasWorkData() {
		for _, t := range n.Data.Tied {
			idx := t.Reg.LocalID
			if idx < 0 || idx >= width {
				continue
			}
			letter := tiedLetter(t.Flags)
			cols[idx] = letter
		}
	}

	out += fmt.Sprintf("[%s]", string(cols))
	return out, nil
}

func tiedLetter(f TiedFlags) byte {
	var c byte
	switch {
	case f&TiedRAll != 0 && f&TiedWAll != 0:
		c = 'x'
	case f&TiedRAll != 0:
		c = 'r'
	case f&TiedWAll != 0:
		c = 'w'
	default:
		c = 'u'
	}
	if f&TiedUnuse != 0 {
		c -= 'a' - 'A'
	}
	return c
}

// Reset 释放区域分配器持有的全部内存，重置单元存储，为编译下一个
// 函数做准备。releaseMemory 为 true 时连首块内存也一并释放。
func (c *Context) Reset(releaseMemory bool) {
	c.zone.Reset(releaseMemory)
	c.cells = CellStore{}
	c.fn = nil
	c.stop = nil
	c.lastError = nil
}

// Cleanup 重置本次编译涉及的每个虚拟寄存器的 localId/physId/
// memCell，虚拟寄存器本身由调用方拥有，继续存活
// 到下一次编译。
func (c *Context) Cleanup() {
	if c.fn == nil {
		return
	}
	for _, v := range c.fn.Vregs {
		v.cleanup()
	}
}
