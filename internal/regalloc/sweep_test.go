package regalloc

import "testing"

type fakeBackend struct {
	removed []*AsmNode
	errs    []error
}

func (b *fakeBackend) RemoveNode(n *AsmNode) {
	b.removed = append(b.removed, n)
	if n.Prev != nil {
		n.Prev.Next = n.Next
	}
	if n.Next != nil {
		n.Next.Prev = n.Prev
	}
}

func (b *fakeBackend) ReportError(err error) {
	b.errs = append(b.errs, err)
}

func link(nodes ...*AsmNode) {
	for i := 0; i+1 < len(nodes); i++ {
		nodes[i].Next = nodes[i+1]
		nodes[i+1].Prev = nodes[i]
	}
}

func TestSweepRemovesDeadRunButKeepsLabel(t *testing.T) {
	ret := &AsmNode{Type: NodeFuncExit}
	add := &AsmNode{Type: NodeInst, Removable: true}
	l2 := &AsmNode{Type: NodeLabel, Removable: false}
	nop := &AsmNode{Type: NodeInfo, Data: &RAData{}}
	link(ret, add, l2, nop)

	backend := &fakeBackend{}
	removeUnreachableCode([]*AsmNode{add}, nil, backend)

	if len(backend.removed) != 1 || backend.removed[0] != add {
		t.Fatalf("expected exactly the add node to be removed, got %v", backend.removed)
	}
	if l2.Prev != ret {
		t.Fatalf("label should survive and remain linked to ret")
	}
	if ret.Next != l2 {
		t.Fatalf("ret should now point directly at the surviving label")
	}
}

func TestSweepDeletesNonRemovableBeforeFirstLabel(t *testing.T) {
	// Everything before the first label is scrubbed regardless of its
	// own Removable flag; only once a label is seen does the flag matter.
	dead1 := &AsmNode{Type: NodeInst, Removable: false}
	dead2 := &AsmNode{Type: NodeInst, Removable: true}
	label := &AsmNode{Type: NodeLabel, Removable: false}
	link(dead1, dead2, label)

	backend := &fakeBackend{}
	removeUnreachableCode([]*AsmNode{dead1}, nil, backend)

	if len(backend.removed) != 2 {
		t.Fatalf("expected both pre-label nodes removed, got %d", len(backend.removed))
	}
}

func TestSweepStopsAtWorkData(t *testing.T) {
	alreadyLive := &AsmNode{Type: NodeInst, Data: &RAData{}}
	backend := &fakeBackend{}
	removeUnreachableCode([]*AsmNode{alreadyLive}, nil, backend)

	if len(backend.removed) != 0 {
		t.Fatalf("a seed that already has work data must not be touched, got %v", backend.removed)
	}
}
