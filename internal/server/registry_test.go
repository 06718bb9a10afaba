package server

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPeers(n int) []*Peer {
	peers := make([]*Peer, n)
	for i := range peers {
		peers[i] = NewPeer(fmt.Sprintf("127.0.0.1:%d", 40000+i), TransportTCP, nil)
	}
	return peers
}

// TestRegistryUnregisterOne verifies that after N registrations and one
// removal the snapshot holds exactly the N-1 remaining peers.
func TestRegistryUnregisterOne(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	peers := newTestPeers(5)

	for _, p := range peers {
		registry.Register(p)
	}
	req.Equal(5, registry.Len())

	req.True(registry.Unregister(peers[2]))

	snapshot := registry.Snapshot()
	req.Len(snapshot, 4)
	req.NotContains(snapshot, peers[2])
	for _, p := range append(peers[:2:2], peers[3:]...) {
		req.Contains(snapshot, p)
	}
}

// TestRegistryUnregisterIsIdempotent verifies removing an absent peer is a no-op.
func TestRegistryUnregisterIsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	peers := newTestPeers(2)
	registry.Register(peers[0])
	registry.Register(peers[1])

	req.True(registry.Unregister(peers[0]))
	req.False(registry.Unregister(peers[0]))
	req.False(registry.Unregister(nil))
	req.Equal(1, registry.Len())
	req.Equal([]*Peer{peers[1]}, registry.Snapshot())
}

// TestRegistrySnapshotIsDetached verifies a snapshot is not affected by later
// registry changes and that mutating it does not affect the registry.
func TestRegistrySnapshotIsDetached(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	peers := newTestPeers(3)
	for _, p := range peers {
		registry.Register(p)
	}

	snapshot := registry.Snapshot()
	registry.Unregister(peers[0])
	req.Len(snapshot, 3)

	snapshot[0] = nil
	req.NotContains(registry.Snapshot(), (*Peer)(nil))
	req.Equal(2, registry.Len())
}

func TestRegistryIgnoresNilPeer(t *testing.T) {
	registry := NewRegistry()
	registry.Register(nil)
	require.Equal(t, 0, registry.Len())
	require.Empty(t, registry.Snapshot())
}

// TestRegistryConcurrentAccess exercises add, remove and snapshot from many
// goroutines at once. Run with -race.
func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	peers := newTestPeers(64)

	var wg sync.WaitGroup
	for _, p := range peers {
		wg.Add(2)
		go func(p *Peer) {
			defer wg.Done()
			registry.Register(p)
			_ = registry.Snapshot()
			registry.Unregister(p)
		}(p)
		go func() {
			defer wg.Done()
			for _, seen := range registry.Snapshot() {
				assert.NotNil(t, seen)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 0, registry.Len())
}
