package fetch

import (
	"fmt"
	"sync"
)

// Node is one egress proxy endpoint the gateway can route through.
type Node struct {
	ID       string `json:"id"`
	ProxyURL string `json:"-"`
}

// NodeRegistry holds the known egress nodes and the currently selected one.
// The control API rotates the selection while the gateway reads it per
// request, so access is mutex-guarded.
type NodeRegistry struct {
	mu      sync.RWMutex
	nodes   []Node
	current int
}

// NewNodeRegistry builds a registry over the configured nodes. The first
// node starts selected; an empty registry is valid and means direct egress.
func NewNodeRegistry(nodes []Node) *NodeRegistry {
	return &NodeRegistry{nodes: nodes}
}

// List returns a snapshot of all known nodes.
func (r *NodeRegistry) List() []Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}

// Current returns the selected node and whether one exists.
func (r *NodeRegistry) Current() (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.nodes) == 0 {
		return Node{}, false
	}
	return r.nodes[r.current], true
}

// SetCurrent selects the node with the given id.
func (r *NodeRegistry) SetCurrent(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, node := range r.nodes {
		if node.ID == id {
			r.current = i
			return nil
		}
	}
	return fmt.Errorf("unknown egress node %q", id)
}
