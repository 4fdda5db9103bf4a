package regalloc

import (
	"errors"
	"testing"
)

type stubBackend struct {
	removed []*AsmNode
	errs    []error
}

func (b *stubBackend) RemoveNode(n *AsmNode) {
	b.removed = append(b.removed, n)
	if n.Prev != nil {
		n.Prev.Next = n.Next
	}
	if n.Next != nil {
		n.Next.Prev = n.Prev
	}
}

func (b *stubBackend) ReportError(err error) {
	b.errs = append(b.errs, err)
}

type stubFetcher struct {
	result *FetchResult
	err    error
}

func (f *stubFetcher) Fetch(fn *Func, ctx *Context) (*FetchResult, error) {
	return f.result, f.err
}

type stubTranslator struct {
	called bool
	err    error
	seenIn *LiveSet
}

func (tr *stubTranslator) Translate(fn *Func, ctx *Context) error {
	tr.called = true
	for n := fn.Entry; n != nil && tr.seenIn == nil; n = n.Next {
		tr.seenIn = n.Liveness()
	}
	return tr.err
}

func TestCompileRunsFetchSweepLivenessAndTranslateInOrder(t *testing.T) {
	v := &VirtReg{LocalID: 0}
	entry := &AsmNode{Type: NodeFuncEntry}
	dead := &AsmNode{Type: NodeInst, Removable: true}
	use := &AsmNode{Type: NodeInst, Data: &RAData{Tied: []TiedReg{{Reg: v, Flags: TiedRAll}}}}
	exit := &AsmNode{Type: NodeFuncExit, Data: &RAData{}}
	link(entry, dead, use, exit)

	fn := &Func{Entry: entry, End: exit, Vregs: []*VirtReg{v}}
	backend := &stubBackend{}
	fetcher := &stubFetcher{result: &FetchResult{
		UnreachableList: []*AsmNode{dead},
		ReturningList:   []*AsmNode{exit},
	}}
	translator := &stubTranslator{}

	ctx := NewContext(backend, nil, nil)
	if err := ctx.Compile(fn, fetcher, translator); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(backend.removed) != 1 || backend.removed[0] != dead {
		t.Fatalf("expected the unreachable node to be swept, got %v", backend.removed)
	}
	if translator.seenIn == nil || !translator.seenIn.GetBit(0) {
		t.Fatalf("expected liveness to have run before translate")
	}
	if !translator.called {
		t.Fatalf("expected translate to run after a successful fetch/sweep/liveness")
	}
	if ctx.LastError() != nil {
		t.Fatalf("expected no lingering error, got %v", ctx.LastError())
	}

	stats := ctx.Stats()
	if stats.NodeCount != 4 {
		t.Fatalf("expected NodeCount to count every fetched node before sweep runs, got %d", stats.NodeCount)
	}
	if stats.RemovedCount != 1 {
		t.Fatalf("expected RemovedCount to reflect the one swept dead node, got %d", stats.RemovedCount)
	}
	if stats.LivenessVisits == 0 {
		t.Fatalf("expected LivenessVisits to be nonzero once liveness has run")
	}
}

func TestCompileWiresVariableCellStatsFromFetchedCells(t *testing.T) {
	v := &VirtReg{LocalID: 0, Size: 4}
	exit := &AsmNode{Type: NodeFuncExit, Data: &RAData{}}
	fn := &Func{Entry: exit, End: exit, Vregs: []*VirtReg{v}}
	backend := &stubBackend{}

	cellFetcher := &cellAllocatingFetcher{vreg: v, result: &FetchResult{ReturningList: []*AsmNode{exit}}}

	ctx := NewContext(backend, nil, nil)
	if err := ctx.Compile(fn, cellFetcher, &stubTranslator{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := ctx.Stats()
	if stats.VariableCells != 1 {
		t.Fatalf("expected one variable cell counted, got %d", stats.VariableCells)
	}
	if stats.FrameBytes != 4 {
		t.Fatalf("expected frame bytes to equal the single 4-byte cell, got %d", stats.FrameBytes)
	}
}

type cellAllocatingFetcher struct {
	vreg   *VirtReg
	result *FetchResult
}

func (f *cellAllocatingFetcher) Fetch(fn *Func, ctx *Context) (*FetchResult, error) {
	if _, err := ctx.cells.NewVarCell(ctx.zone, f.vreg); err != nil {
		return nil, err
	}
	return f.result, nil
}

func TestCompileShortCircuitsOnFetchError(t *testing.T) {
	fn := &Func{Entry: &AsmNode{Type: NodeFuncEntry}, Vregs: nil}
	backend := &stubBackend{}
	fetchErr := errors.New("boom")
	fetcher := &stubFetcher{err: fetchErr}
	translator := &stubTranslator{}

	ctx := NewContext(backend, nil, nil)
	err := ctx.Compile(fn, fetcher, translator)

	if err != fetchErr {
		t.Fatalf("expected fetch error to propagate, got %v", err)
	}
	if translator.called {
		t.Fatalf("translate must not run when fetch fails")
	}
	if ctx.LastError() != fetchErr {
		t.Fatalf("expected LastError to record the fetch failure")
	}
	if len(backend.errs) != 1 || backend.errs[0] != fetchErr {
		t.Fatalf("expected the backend to be notified of the fetch failure")
	}
}

func TestCompilePropagatesTranslateError(t *testing.T) {
	exit := &AsmNode{Type: NodeFuncExit, Data: &RAData{}}
	fn := &Func{Entry: exit, End: exit, Vregs: nil}
	backend := &stubBackend{}
	fetcher := &stubFetcher{result: &FetchResult{ReturningList: []*AsmNode{exit}}}
	translateErr := errors.New("translate failed")
	translator := &stubTranslator{err: translateErr}

	ctx := NewContext(backend, nil, nil)
	err := ctx.Compile(fn, fetcher, translator)

	if err != translateErr {
		t.Fatalf("expected translate error to propagate, got %v", err)
	}
	if ctx.LastError() != translateErr {
		t.Fatalf("expected LastError to record the translate failure")
	}
}

func TestContextResetClearsZoneAndCellState(t *testing.T) {
	ctx := NewContext(&stubBackend{}, nil, nil)
	v := &VirtReg{Size: 8}
	if _, err := ctx.cells.NewVarCell(ctx.zone, v); err != nil {
		t.Fatal(err)
	}
	ctx.lastError = errors.New("stale")

	ctx.Reset(false)

	if ctx.cells.VarCells() != nil {
		t.Fatalf("expected cell store to be cleared on reset")
	}
	if ctx.LastError() != nil {
		t.Fatalf("expected lastError to be cleared on reset")
	}
}

func TestContextCleanupResetsVregBookkeeping(t *testing.T) {
	v := &VirtReg{LocalID: 3, PhysID: 7}
	exit := &AsmNode{Type: NodeFuncExit, Data: &RAData{}}
	fn := &Func{Entry: exit, End: exit, Vregs: []*VirtReg{v}}

	ctx := NewContext(&stubBackend{}, nil, nil)
	fetcher := &stubFetcher{result: &FetchResult{ReturningList: []*AsmNode{exit}}}
	if err := ctx.Compile(fn, fetcher, &stubTranslator{}); err != nil {
		t.Fatal(err)
	}

	ctx.Cleanup()

	if v.LocalID != 0 || v.PhysID != 0 {
		t.Fatalf("expected vreg bookkeeping to be reset, got %+v", v)
	}
}
