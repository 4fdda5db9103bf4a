// errors.go - RA 上下文的错误模型
//
// Compile 只向外传出两类错误：区域分配失败（NoHeapMemory），以及后端
// fetch()/translate() 原样透传的错误；另外两个 sentinel
// （ErrAlreadyHasCell、ErrInvalidVarCellSize）由 NewVarCell/
// NewStackCell 直接返回给调用它们的后端。全部都通过标准 error 接口
// 传播，不使用自定义错误码表 —— 和上游 nova 编译器里面向用户的
// E/R 错误码体系不同，这里的错误只面向调用方（另一段程序），所以
// 朴素的 sentinel error 就足够。

package regalloc

import "errors"

// ErrNoHeapMemory 在区域分配器拒绝分配时返回。
var ErrNoHeapMemory = errors.New("regalloc: no heap memory")

// ErrAlreadyHasCell 在对已经拥有内存单元的虚拟寄存器再次调用
// NewVarCell/NewStackCell 时返回；调用方试图覆盖一个已经分配好的
// 内存单元属于编程错误，核心仅做防御性返回而不 panic。
var ErrAlreadyHasCell = errors.New("regalloc: virtual register already has a memory cell")

// ErrInvalidVarCellSize 在为非栈虚拟寄存器请求一个不属于
// {1,2,4,8,16,32,64} 的变量单元大小时返回。
var ErrInvalidVarCellSize = errors.New("regalloc: variable cell size must be a power of two between 1 and 64")
