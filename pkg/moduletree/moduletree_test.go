package moduletree

import (
	"errors"
	"strings"
	"testing"

	"github.com/pulsarchem/pulsar/pkg/moduleinfo"
)

func TestAddRecordsParentChildLink(t *testing.T) {
	tr := New()
	mustAdd(t, tr, 1, "hf", moduleinfo.Info{Name: "hf-energy", Version: "1.0"}, 0)
	mustAdd(t, tr, 2, "scf", moduleinfo.Info{Name: "scf-energy", Version: "1.0"}, 1)

	parent, ok := tr.Get(1)
	if !ok {
		t.Fatalf("expected parent node to exist")
	}
	if len(parent.ChildrenIDs) != 1 || parent.ChildrenIDs[0] != 2 {
		t.Fatalf("expected child id 2 recorded once, got %v", parent.ChildrenIDs)
	}
}

func TestAddUnknownParentFails(t *testing.T) {
	tr := New()
	if _, err := tr.Add(1, "hf", moduleinfo.Info{}, 99); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	if tr.Size() != 0 {
		t.Fatalf("expected no node recorded when parent validation fails, got size %d", tr.Size())
	}
}

func mustAdd(t *testing.T, tr *Tree, id uint64, moduleKey string, info moduleinfo.Info, parentID uint64) *Node {
	t.Helper()
	n, err := tr.Add(id, moduleKey, info, parentID)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return n
}

func TestMarkFreeKeepsNode(t *testing.T) {
	tr := New()
	mustAdd(t, tr, 1, "hf", moduleinfo.Info{Name: "hf-energy"}, 0)
	tr.MarkFree(1)

	n, ok := tr.Get(1)
	if !ok {
		t.Fatalf("expected node to persist after MarkFree")
	}
	if n.InUse {
		t.Fatalf("expected InUse false after MarkFree")
	}
}

func TestNodeNeverRemovedOnMarkFree(t *testing.T) {
	tr := New()
	mustAdd(t, tr, 1, "hf", moduleinfo.Info{}, 0)
	before := tr.Size()
	tr.MarkFree(1)
	if tr.Size() != before {
		t.Fatalf("expected Size unchanged by MarkFree")
	}
}

func TestAppendOutputAccumulates(t *testing.T) {
	tr := New()
	n := mustAdd(t, tr, 1, "hf", moduleinfo.Info{}, 0)
	n.AppendOutput("starting\n")
	n.AppendOutput("done\n")
	if n.Output() != "starting\ndone\n" {
		t.Fatalf("got %q", n.Output())
	}
}

func TestDotContainsNodesAndEdges(t *testing.T) {
	tr := New()
	mustAdd(t, tr, 1, "hf", moduleinfo.Info{Name: "hf-energy", Version: "1.0"}, 0)
	mustAdd(t, tr, 2, "scf", moduleinfo.Info{Name: "scf-energy", Version: "2.0"}, 1)

	dot := tr.Dot()
	if !strings.HasPrefix(dot, "digraph moduletree {") {
		t.Fatalf("expected digraph header, got %q", dot)
	}
	if !strings.Contains(dot, "1 -> 2;") {
		t.Fatalf("expected edge 1 -> 2 in %q", dot)
	}
	if !strings.Contains(dot, "hf-energy v1.0") {
		t.Fatalf("expected node label with name/version in %q", dot)
	}
}
