package module

import (
	"io"
	"sync"

	"github.com/pulsarchem/pulsar/pkg/moduletree"
)

// OutputSink is the write-only stream every Base owns: every write is
// copied both to a shared process-wide writer and appended to the owning
// tree node's output record. It stays safe to use after the module instance
// that created it is gone, because the tree node it writes into outlives
// the instance.
type OutputSink struct {
	mu      sync.Mutex
	node    *moduletree.Node
	process io.Writer
}

// newOutputSink builds a sink tied to node, teeing to process as well.
func newOutputSink(node *moduletree.Node, process io.Writer) *OutputSink {
	return &OutputSink{node: node, process: process}
}

// Write implements io.Writer.
func (s *OutputSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.node.AppendOutput(string(p))
	if s.process != nil {
		_, _ = s.process.Write(p)
	}
	return len(p), nil
}
