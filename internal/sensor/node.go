// Package sensor implements the sensor node: it samples a motion input and
// answers Sensor Link rounds with the matching frame.
package sensor

import (
	"context"
	"sync"

	"github.com/oshokin/alarm-panel/internal/link"
	"github.com/oshokin/alarm-panel/internal/logger"
)

// Node is the slave side of the Sensor Link. It has no timing of its own:
// each round opened by the master samples the pin once and answers byte for byte.
type Node struct {
	// pin is the motion detector input.
	pin Pin
	// vocabulary selects the literals sent for each pin level.
	vocabulary link.Vocabulary

	// mu guards the fields below.
	mu sync.Mutex
	// rounds counts completed rounds.
	rounds uint64
	// lastReceived is the last full frame clocked in by the master.
	lastReceived link.Frame
}

// NewNode creates a node reading the given pin.
func NewNode(pin Pin, vocabulary link.Vocabulary) *Node {
	return &Node{
		pin:        pin,
		vocabulary: vocabulary,
	}
}

// Select implements link.Slave. It samples the pin and loads the outgoing frame.
func (n *Node) Select(ctx context.Context) link.SlaveRound {
	asserted, err := n.pin.Read()
	if err != nil {
		logger.WarnKV(ctx, "Pin read failed, reporting no movement", "error", err)

		asserted = false
	}

	return &round{
		ctx:      ctx,
		node:     n,
		outgoing: n.vocabulary.Encode(asserted),
	}
}

// Rounds returns the number of completed rounds.
func (n *Node) Rounds() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.rounds
}

// LastReceived returns the last full frame received from the master.
func (n *Node) LastReceived() link.Frame {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.lastReceived
}

// round is the state of one slave-select period.
type round struct {
	ctx      context.Context //nolint:containedctx // Scoped to a single round.
	node     *Node
	outgoing link.Frame
	incoming link.Frame
	index    int
}

// Shift answers the next byte. Clocks past the frame end read as NUL.
func (r *round) Shift(in byte) byte {
	if r.index >= link.FrameSize {
		return 0
	}

	out := r.outgoing[r.index]
	r.incoming[r.index] = in
	r.index++

	return out
}

// Deselect ends the round and records it if it was complete.
func (r *round) Deselect() {
	if r.index < link.FrameSize {
		logger.DebugKV(r.ctx, "Round ended early", "bytes", r.index)

		return
	}

	r.node.mu.Lock()
	r.node.rounds++
	r.node.lastReceived = r.incoming
	r.node.mu.Unlock()

	logger.DebugKV(r.ctx, "Round completed", "sent", r.outgoing.Text(), "received", r.incoming.Text())
}
