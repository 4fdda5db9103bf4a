// cell.go - 内存单元与单元存储
//
// CellStore 维护两条互不相交的链表：变量单元（按二的幂次大小分类，
// 每创建一个就头插一个）与栈单元（按 (alignment 降序, size 降序)
// 保持有序插入）。两条链表加上按大小分类的计数器，是 offsets.go
// 里 ResolveCellOffsets 布局整个栈帧所需的全部输入。

package regalloc

// RACell 是一个已经（或即将）被分配的内存槽位。
type RACell struct {
	next      *RACell
	Size      int
	Alignment int
	Offset    int
}

// Next 返回同一条链表里的下一个单元。
func (c *RACell) Next() *RACell { return c.next }

// CellStore 拥有一个函数编译过程里产生的全部内存单元。
type CellStore struct {
	varCells   *RACell
	stackCells *RACell

	memMaxAlign   int
	memStackTotal int
	memAllTotal   int

	// 按变量单元大小分类的计数（只有 1/2/4/8/16/32/64 是合法取值）。
	n1, n2, n4, n8, n16, n32, n64 int
}

// VarCells 返回变量单元链表的头（按创建顺序逆序，即最近创建的在前）。
func (s *CellStore) VarCells() *RACell { return s.varCells }

// StackCells 返回按 (alignment desc, size desc) 排序的栈单元链表头。
func (s *CellStore) StackCells() *RACell { return s.stackCells }

// MemAllTotal 返回 ResolveCellOffsets 计算出的帧总字节数。
func (s *CellStore) MemAllTotal() int { return s.memAllTotal }

func classCounter(s *CellStore, size int) (*int, error) {
	switch size {
	case 1:
		return &s.n1, nil
	case 2:
		return &s.n2, nil
	case 4:
		return &s.n4, nil
	case 8:
		return &s.n8, nil
	case 16:
		return &s.n16, nil
	case 32:
		return &s.n32, nil
	case 64:
		return &s.n64, nil
	default:
		return nil, ErrInvalidVarCellSize
	}
}

// NewVarCell 为 vreg 分配一个内存单元。vreg.IsStack 时
// 转发给 NewStackCell。要求 vreg.MemCell() 此前为 nil。
func (s *CellStore) NewVarCell(z *Zone, vreg *VirtReg) (*RACell, error) {
	if vreg.memCell != nil {
		return nil, ErrAlreadyHasCell
	}
	if vreg.IsStack {
		return s.NewStackCell(z, vreg, vreg.Size, vreg.Alignment)
	}

	counter, err := classCounter(s, vreg.Size)
	if err != nil {
		return nil, err
	}

	cell, err := AllocType[RACell](z)
	if err != nil {
		return nil, err
	}
	cell.Size = vreg.Size
	cell.Alignment = vreg.Size

	cell.next = s.varCells
	s.varCells = cell

	if cell.Size > s.memMaxAlign {
		s.memMaxAlign = cell.Size
	}
	*counter++

	vreg.memCell = cell
	return cell, nil
}

// NewStackCell 分配一个独立于任何变量大小分类的栈单元。
// vreg 可以为 nil（用于不绑定特定虚拟寄存器的原始栈槽位）；非 nil 时
// 分配结果写入 vreg.memCell，并要求此前为 nil。
func (s *CellStore) NewStackCell(z *Zone, vreg *VirtReg, size, alignment int) (*RACell, error) {
	if vreg != nil && vreg.memCell != nil {
		return nil, ErrAlreadyHasCell
	}

	if alignment == 0 {
		alignment = defaultAlignmentFor(size)
	}
	if alignment > 64 {
		alignment = 64
	}
	if size%alignment != 0 {
		size = ((size + alignment - 1) / alignment) * alignment
	}

	cell, err := AllocType[RACell](z)
	if err != nil {
		return nil, err
	}
	cell.Size = size
	cell.Alignment = alignment

	insertStackCellSorted(s, cell)

	if alignment > s.memMaxAlign {
		s.memMaxAlign = alignment
	}
	s.memStackTotal += size

	if vreg != nil {
		vreg.memCell = cell
	}
	return cell, nil
}

// defaultAlignmentFor 返回 >= size 的最小二的幂，封顶到 64
// （size>32⇒64, >16⇒32, >8⇒16, >4⇒8, >2⇒4, >1⇒2, 否则 1）。
func defaultAlignmentFor(size int) int {
	switch {
	case size > 32:
		return 64
	case size > 16:
		return 32
	case size > 8:
		return 16
	case size > 4:
		return 8
	case size > 2:
		return 4
	case size > 1:
		return 2
	default:
		return 1
	}
}

// insertStackCellSorted 按 (alignment desc, size desc) 把 cell 插入
// s.stackCells，插入点取第一个不严格大于 cell 的位置，从而维持排序。
func insertStackCellSorted(s *CellStore, cell *RACell) {
	greater := func(a, b *RACell) bool {
		if a.Alignment != b.Alignment {
			return a.Alignment > b.Alignment
		}
		return a.Size > b.Size
	}

	var prev *RACell
	cur := s.stackCells
	for cur != nil && greater(cur, cell) {
		prev = cur
		cur = cur.next
	}

	cell.next = cur
	if prev == nil {
		s.stackCells = cell
	} else {
		prev.next = cell
	}
}
