// Package moduletree implements the process-lifetime instantiation record:
// every module ever created is recorded as a Node, never removed, so a
// ModuleManager can always answer "what ran, in what order, with which
// options" long after a handle has been dropped.
//
// © 2026 pulsar authors. MIT License.
package moduletree

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pulsarchem/pulsar/pkg/moduleinfo"
)

// Node is one instantiation record. Once appended to a Tree it is never
// removed; MarkFree only flips InUse.
type Node struct {
	ID          uint64
	ModuleKey   string
	Info        moduleinfo.Info
	ParentID    uint64
	ChildrenIDs []uint64
	InUse       bool

	mu     sync.Mutex
	output strings.Builder
}

// AppendOutput grows the node's output record. Safe for concurrent callers,
// since a module's own goroutines may write to its output sink concurrently
// with a debug snapshot reader.
func (n *Node) AppendOutput(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.output.WriteString(s)
}

// Output returns the accumulated output text.
func (n *Node) Output() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.output.String()
}

// ErrUnknownNode is returned by Add when a non-zero parentID names no node
// recorded so far — accepting it silently would produce a node unreachable
// from root 0 via parent links.
var ErrUnknownNode = fmt.Errorf("moduletree: unknown node")

// Tree is the append-only forest of every module instantiated by one
// ModuleManager. Id 0 is reserved for the implicit root and is never a real
// node.
type Tree struct {
	mu    sync.RWMutex
	nodes map[uint64]*Node
}

// New constructs an empty Tree.
func New() *Tree {
	return &Tree{nodes: make(map[uint64]*Node)}
}

// Add records a new node. parentID 0 means top-level; any other parentID
// must already have been recorded, or Add fails with ErrUnknownNode rather
// than linking the new node to a parent that doesn't exist.
func (t *Tree) Add(id uint64, moduleKey string, info moduleinfo.Info, parentID uint64) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var parent *Node
	if parentID != 0 {
		var ok bool
		parent, ok = t.nodes[parentID]
		if !ok {
			return nil, fmt.Errorf("moduletree: add %q: parent %d: %w", moduleKey, parentID, ErrUnknownNode)
		}
	}

	n := &Node{
		ID:        id,
		ModuleKey: moduleKey,
		Info:      info,
		ParentID:  parentID,
		InUse:     true,
	}
	t.nodes[id] = n
	if parent != nil {
		parent.ChildrenIDs = append(parent.ChildrenIDs, id)
	}
	return n, nil
}

// Get returns the node for id, if it has ever been recorded.
func (t *Tree) Get(id uint64) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[id]
	return n, ok
}

// MarkFree flips InUse to false for id, run when a ModuleHandle is dropped.
// The node itself, including its accumulated output, is never removed.
func (t *Tree) MarkFree(id uint64) {
	t.mu.RLock()
	n, ok := t.nodes[id]
	t.mu.RUnlock()
	if ok {
		n.mu.Lock()
		n.InUse = false
		n.mu.Unlock()
	}
}

// Size returns the number of nodes ever recorded.
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// Dot renders the tree as a Graphviz digraph: node labels are
// "id\nkey\nname vVERSION" and edges run from parent to child.
func (t *Tree) Dot() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph moduletree {\n")
	for id, n := range t.nodes {
		fmt.Fprintf(&b, "  %d [label=\"%d\\n%s\\n%s v%s\"];\n",
			id, id, n.ModuleKey, n.Info.Name, n.Info.Version)
	}
	for id, n := range t.nodes {
		if n.ParentID == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %d -> %d;\n", n.ParentID, id)
	}
	b.WriteString("}\n")
	return b.String()
}
