// example_backend.go - 一个示范性的 x86-64 后端
//
// 这不是寄存器分配核心的一部分：它是外部协作者 fetch()/translate()
// 的一份具体实现，示范一个真正的目标架构后端如何驱动
// internal/regalloc.Context——从虚拟寄存器表分配物理寄存器，
// 按照单元偏移量 emit 溢出/恢复，最终把字节序列交还调用方。
//
// 字节缓冲汇编器的写法（code []byte + emit/emitU32 helper）参照的是
// 早期 x86-64 平台代码生成器的路数；寄存器编号照抄 System V AMD64
// 调用约定（RDI/RSI/RDX/RCX/R8/R9 做参数，R12-R15/RBX 是被调用者
// 保存寄存器），但这里只用作一个可分配的通用寄存器池，不处理真实
// 的调用约定细节。

package jit

import (
	"fmt"

	"github.com/tangzhangming/nova-ra/internal/bytecode"
	"github.com/tangzhangming/nova-ra/internal/regalloc"
)

// X64Register 是 x86-64 通用寄存器编号。
type X64Register int

const (
	RegRAX X64Register = iota
	RegRCX
	RegRDX
	RegRBX
	RegRSP
	RegRBP
	RegRSI
	RegRDI
	RegR8
	RegR9
	RegR10
	RegR11
	RegR12
	RegR13
	RegR14
	RegR15
)

// x64CalleeSaved 是这个示范后端拿来做虚拟寄存器分配的寄存器池
// （System V 被调用者保存寄存器子集，刻意避开 RSP/RBP）。
var x64CalleeSaved = []X64Register{RegRBX, RegR12, RegR13, RegR14, RegR15}

// x64Assembler 是一个最小的字节缓冲汇编器。
type x64Assembler struct {
	code []byte
}

func newX64Assembler() *x64Assembler {
	return &x64Assembler{code: make([]byte, 0, 256)}
}

func (a *x64Assembler) emit(b ...byte) {
	a.code = append(a.code, b...)
}

func (a *x64Assembler) emitComment(s string) {
	a.code = append(a.code, []byte("; "+s+"\n")...)
}

// MovRegFromStack 生成一条把栈单元内容装入物理寄存器的指令
// （示范字节序列，不追求完整指令编码）。
func (a *x64Assembler) MovRegFromStack(dst X64Register, offset int) {
	a.emit(0x8b, byte(dst))
	a.emit(byte(offset), byte(offset>>8), byte(offset>>16), byte(offset>>24))
}

// MovStackFromReg 生成一条把物理寄存器内容存回栈单元的指令。
func (a *x64Assembler) MovStackFromReg(offset int, src X64Register) {
	a.emit(0x89, byte(src))
	a.emit(byte(offset), byte(offset>>8), byte(offset>>16), byte(offset>>24))
}

func (a *x64Assembler) Code() []byte {
	return a.code
}

// exampleOp 是这个示范后端给节点挂的私有数据，装在
// regalloc.RAData.Private 里，核心本身从不解释它。
type exampleOp struct {
	mnemonic string
	constant *bytecode.Value
}

// ExampleBackend 同时实现 regalloc.Fetcher、regalloc.Translator 和
// regalloc.Backend，演示一个真实目标如何串起三个角色。
type ExampleBackend struct {
	free []X64Register
	code []byte
	errs []error
}

// NewExampleBackend 创建一个寄存器池已初始化好的示范后端。
func NewExampleBackend() *ExampleBackend {
	free := make([]X64Register, len(x64CalleeSaved))
	copy(free, x64CalleeSaved)
	return &ExampleBackend{free: free}
}

// Code 返回最近一次 Translate 产出的字节序列。
func (b *ExampleBackend) Code() []byte {
	return b.code
}

// Errors 返回通过 ReportError 收到的全部错误。
func (b *ExampleBackend) Errors() []error {
	return b.errs
}

// Fetch 实现 regalloc.Fetcher：给函数的虚拟寄存器分配 dense
// local id，并把每个函数出口节点登记为 liveness 求解的起点。
// 节点本身的工作数据（RAData/Tied）由更早的指令选择阶段挂好，
// 这里只填写 ReturningList 和 UnreachableList，JccList 留空。
func (b *ExampleBackend) Fetch(fn *regalloc.Func, ctx *regalloc.Context) (*regalloc.FetchResult, error) {
	for i, v := range fn.Vregs {
		v.LocalID = i
	}

	var result regalloc.FetchResult
	for n := fn.Entry; n != nil; n = n.Next {
		switch {
		case n.Type == regalloc.NodeFuncExit:
			result.ReturningList = append(result.ReturningList, n)
		case n.Removable && !n.HasWorkData() && n.Type != regalloc.NodeLabel:
			result.UnreachableList = append(result.UnreachableList, n)
		}
		if n == fn.End {
			break
		}
	}

	if len(result.ReturningList) == 0 {
		return nil, fmt.Errorf("example backend: function %p has no exit node", fn)
	}
	return &result, nil
}

// Translate 实现 regalloc.Translator：把已经求解好的单元偏移量和
// liveness 信息落到物理寄存器/栈访问指令上，写进一段示范机器码。
func (b *ExampleBackend) Translate(fn *regalloc.Func, ctx *regalloc.Context) error {
	for _, v := range fn.Vregs {
		if v.MemCell() == nil || v.IsStack {
			continue
		}
		if len(b.free) == 0 {
			continue // 寄存器池耗尽，保留在内存里（已经有 cell 了）
		}
		v.PhysID = int(b.free[0])
		b.free = b.free[1:]
	}

	asm := newX64Assembler()
	stop := fn.End
	if stop != nil {
		stop = stop.Next
	}
	for n := fn.Entry; n != nil && n != stop; n = n.Next {
		b.emitNode(asm, n)
	}
	b.code = asm.Code()
	return nil
}

func (b *ExampleBackend) emitNode(asm *x64Assembler, n *regalloc.AsmNode) {
	if !n.HasWorkData() {
		return
	}
	op, _ := n.Data.Private.(*exampleOp)
	if op == nil {
		return
	}
	if op.constant != nil && !op.constant.IsNull() {
		asm.emitComment(op.mnemonic + " " + op.constant.String())
	} else {
		asm.emitComment(op.mnemonic)
	}

	for _, t := range n.Data.Tied {
		cell := t.Reg.MemCell()
		if cell == nil || t.Reg.IsStack {
			continue // 纯栈驻留的虚拟寄存器没有分配物理寄存器，这里无需搬运
		}
		reg := X64Register(t.Reg.PhysID)
		if t.Flags.IsKill() {
			asm.MovStackFromReg(cell.Offset, reg)
		} else {
			asm.MovRegFromStack(reg, cell.Offset)
		}
	}
}

// RemoveNode 实现 regalloc.Backend：把节点从双向链表里摘除。
func (b *ExampleBackend) RemoveNode(n *regalloc.AsmNode) {
	if n.Prev != nil {
		n.Prev.Next = n.Next
	}
	if n.Next != nil {
		n.Next.Prev = n.Prev
	}
}

// ReportError 实现 regalloc.Backend：记下编译失败原因。
func (b *ExampleBackend) ReportError(err error) {
	b.errs = append(b.errs, err)
}
