// Package simbus is an in-memory loopback CAN bus: every frame a node
// transmits is delivered, synchronously, to every other node's receive
// callback, mirroring a real bus's broadcast semantics without any silicon.
// It backs the canif and config tests and cmd/ecu-sim's default build.
package simbus

import (
	"sync"

	"ecuos/candrv"
	"ecuos/errcode"
)

// Bus is a shared loopback medium. Nodes attach with NewNode.
type Bus struct {
	mu    sync.Mutex
	nodes []*Node
}

func NewBus() *Bus { return &Bus{} }

// NewNode attaches a new Driver to b. mailboxes is the number of Tx
// mailboxes the node exposes; confirmations are delivered synchronously
// (the bus has no arbitration delay to model).
func (b *Bus) NewNode(mailboxes int) *Node {
	n := &Node{bus: b, mailboxCount: mailboxes, mode: candrv.Stopped}
	b.mu.Lock()
	b.nodes = append(b.nodes, n)
	b.mu.Unlock()
	return n
}

// Node is one controller attached to a Bus; it implements candrv.Driver.
type Node struct {
	bus          *Bus
	mu           sync.Mutex
	mode         candrv.Mode
	mailboxCount int
	onReceive    func(candrv.Frame)
	onTxConfirm  func(mailbox int)
}

func (n *Node) SetMode(m candrv.Mode) error {
	n.mu.Lock()
	n.mode = m
	n.mu.Unlock()
	return nil
}

func (n *Node) GetMode() candrv.Mode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mode
}

func (n *Node) OnReceive(f func(candrv.Frame))  { n.mu.Lock(); n.onReceive = f; n.mu.Unlock() }
func (n *Node) OnTxConfirm(f func(mailbox int)) { n.mu.Lock(); n.onTxConfirm = f; n.mu.Unlock() }

// Transmit broadcasts frame to every other node on the bus, then confirms
// the mailbox to the sender. A node that is not STARTED refuses to send.
func (n *Node) Transmit(mailbox int, frame candrv.Frame) error {
	if mailbox < 0 || mailbox >= n.mailboxCount {
		return errcode.InvalidID
	}
	n.mu.Lock()
	mode := n.mode
	confirm := n.onTxConfirm
	n.mu.Unlock()
	if mode != candrv.Started {
		return errcode.NotOK
	}

	n.bus.mu.Lock()
	peers := make([]*Node, 0, len(n.bus.nodes)-1)
	for _, p := range n.bus.nodes {
		if p != n {
			peers = append(peers, p)
		}
	}
	n.bus.mu.Unlock()

	for _, p := range peers {
		p.deliver(frame)
	}
	if confirm != nil {
		confirm(mailbox)
	}
	return nil
}

func (n *Node) deliver(frame candrv.Frame) {
	n.mu.Lock()
	mode := n.mode
	cb := n.onReceive
	n.mu.Unlock()
	if mode != candrv.Started || cb == nil {
		return
	}
	// Copy, never share the sender's frame, per the driver-callback
	// design note.
	cp := frame
	cb(cp)
}
