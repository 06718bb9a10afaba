package server

import (
	"sync"

	"github.com/samber/lo"
)

// Registry holds the set of currently attached peers. Every method takes the
// same lock and none of them performs network I/O while holding it.
type Registry struct {
	mu    sync.RWMutex
	peers map[*Peer]struct{}
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[*Peer]struct{})}
}

// Register adds peer as a broadcast target. A nil peer is ignored.
func (r *Registry) Register(peer *Peer) {
	if peer == nil {
		return
	}
	r.mu.Lock()
	r.peers[peer] = struct{}{}
	r.mu.Unlock()
}

// Unregister removes peer and reports whether it was registered. Removing an
// absent peer is a no-op.
func (r *Registry) Unregister(peer *Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[peer]; !ok {
		return false
	}
	delete(r.peers, peer)
	return true
}

// Snapshot returns a fresh slice holding every registered peer. The caller
// owns the slice; later registry changes do not affect it.
func (r *Registry) Snapshot() []*Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.peers)
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}
