package server

import (
	"log/slog"

	"github.com/samber/lo"

	"github.com/Tyrowin/linerelay/internal/logging"
	"github.com/Tyrowin/linerelay/internal/protocol"
)

// Report summarizes one broadcast.
type Report struct {
	Targets   int
	Delivered int
	Failed    int
}

// Broadcaster delivers a sender's message to every other registered peer.
type Broadcaster struct {
	registry *Registry
	log      *slog.Logger
}

// NewBroadcaster creates a Broadcaster over registry.
func NewBroadcaster(registry *Registry, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, log: logging.OrDefault(log)}
}

// Broadcast frames message as "[<sender>]:<message>\n" and writes it to every
// registered peer except sender. A failed write is logged and skipped; the
// failing peer stays registered until its own handler observes the disconnect.
func (b *Broadcaster) Broadcast(sender *Peer, message string) Report {
	if sender == nil {
		b.log.Warn("Dropping broadcast without sender")
		return Report{}
	}

	frame := protocol.FormatBroadcast(sender.ID, message)
	targets := b.targets(sender)
	report := Report{Targets: len(targets)}

	for _, peer := range targets {
		if err := peer.Write(frame); err != nil {
			report.Failed++
			if isExpectedCloseError(err) {
				b.log.Debug("Skipping closed peer", "peer", peer, "error", err)
			} else {
				b.log.Warn("Error writing broadcast", "peer", peer, "from", sender.ID, "error", err)
			}
			continue
		}
		report.Delivered++
	}

	return report
}

// targets returns the registry snapshot without sender.
func (b *Broadcaster) targets(sender *Peer) []*Peer {
	return lo.Filter(b.registry.Snapshot(), func(peer *Peer, _ int) bool {
		return peer != sender
	})
}
