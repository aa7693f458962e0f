//----------------------------------------------------------------------
// This file is part of stackroute.
// Copyright (C) 2022 Bernd Fix >Y<
//
// stackroute is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// stackroute is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

package core

import (
	"fmt"
	"log"
	"sort"
)

// PortRecord describes one end of a link as seen from its owning node.
type PortRecord struct {
	TargetNode NodeID
	TargetPort PortNumber
	Cost       Cost
}

// Handler is the link-layer receiver registered on an Adapter. It mirrors
// net.Adapter.Handler from the original implementation: one Handle call per
// successful enqueue, one OnDisconnected call per matching disconnect.
type Handler interface {
	Handle(ingress PortNumber, msg Message)
	OnDisconnected(port PortNumber)
}

type node struct {
	ports    map[PortNumber]PortRecord
	nextPort PortNumber
}

// Adapter is a node's link-layer handle: enumerates ports, sends, and
// receives via its registered Handler.
type Adapter struct {
	network *Network
	id      NodeID
	handler Handler
}

// NodeID returns the adapter's owning node.
func (a *Adapter) NodeID() NodeID { return a.id }

// Ports returns the adapter's currently connected port numbers in
// ascending order — the order is relied on for deterministic propagator
// and broadcast behavior given a fixed random stream.
func (a *Adapter) Ports() []PortNumber {
	m := a.network.nodes[a.id].ports
	ports := make([]PortNumber, 0, len(m))
	for p := range m {
		ports = append(ports, p)
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i] < ports[j] })
	return ports
}

// PortCost returns the configured cost of sending out of port.
func (a *Adapter) PortCost(port PortNumber) Cost {
	rec, ok := a.network.nodes[a.id].ports[port]
	if !ok {
		panic(fmt.Sprintf("fabric: node %d has no port %d", a.id, port))
	}
	return rec.Cost
}

// RegisterHandler installs the adapter's link-layer receiver.
func (a *Adapter) RegisterHandler(h Handler) { a.handler = h }

// Send enqueues msg for delivery to the peer of port and drains the
// fabric's transmission queue.
func (a *Adapter) Send(port PortNumber, msg Message) {
	a.network.send(a.id, port, msg)
}

type transmission struct {
	node NodeID
	port PortNumber
	msg  Message
}

// Network owns a fixed-size vector of nodes and their Adapters, a FIFO
// transmission queue, and the transmission counter shared with the
// candidate's Tracker.
type Network struct {
	nodes             []node
	adapters          []*Adapter
	queue             []transmission
	draining          bool
	tracker           *Tracker
	transmissionCount *Counter
}

// NewNetwork creates nodeCount nodes with empty port maps and one Adapter
// each, instrumented against tracker.
func NewNetwork(nodeCount int, tracker *Tracker) *Network {
	n := &Network{
		nodes:    make([]node, nodeCount),
		adapters: make([]*Adapter, nodeCount),
		tracker:  tracker,
	}
	for i := range n.nodes {
		n.nodes[i].ports = map[PortNumber]PortRecord{}
	}
	for i := range n.adapters {
		n.adapters[i] = &Adapter{network: n, id: NodeID(i)}
	}
	if tracker != nil {
		n.transmissionCount = tracker.Counter("transmission_count")
	}
	return n
}

// NodeCount returns the number of nodes in the network.
func (n *Network) NodeCount() int { return len(n.nodes) }

// Adapters returns the network's adapters, indexed by NodeID.
func (n *Network) Adapters() []*Adapter { return n.adapters }

// PortRecord returns the port record for (node, port), if any.
func (n *Network) PortRecord(id NodeID, port PortNumber) (PortRecord, bool) {
	rec, ok := n.nodes[id].ports[port]
	return rec, ok
}

// Connect assigns fresh port numbers at each end and installs both the
// forward and backward port records atomically.
func (n *Network) Connect(a, b NodeID, costAB, costBA Cost) {
	pa := n.nodes[a].nextPort
	n.nodes[a].nextPort++
	pb := n.nodes[b].nextPort
	n.nodes[b].nextPort++
	n.nodes[a].ports[pa] = PortRecord{TargetNode: b, TargetPort: pb, Cost: costAB}
	n.nodes[b].ports[pb] = PortRecord{TargetNode: a, TargetPort: pa, Cost: costBA}
}

// Disconnect removes both port records of the link at (node, port) and
// notifies both sides' registered handlers, local side first.
func (n *Network) Disconnect(id NodeID, port PortNumber) {
	rec, ok := n.nodes[id].ports[port]
	if !ok {
		panic(fmt.Sprintf("fabric: disconnect of nonexistent port %d on node %d", port, id))
	}
	other, otherPort := rec.TargetNode, rec.TargetPort
	delete(n.nodes[id].ports, port)
	delete(n.nodes[other].ports, otherPort)
	if h := n.adapters[id].handler; h != nil {
		h.OnDisconnected(port)
	}
	if h := n.adapters[other].handler; h != nil {
		h.OnDisconnected(otherPort)
	}
}

// Execute walks route from "from" across the live port graph, returning
// the node it lands on, the accumulated cost, and whether every hop's
// port still exists. Used by the metrics layer to check claimed routes
// against the current (possibly ruined) topology.
func (n *Network) Execute(from NodeID, route Route) (NodeID, Cost, bool) {
	cur := from
	var total Cost
	for _, p := range route {
		rec, ok := n.nodes[cur].ports[p]
		if !ok {
			return cur, total, false
		}
		total += rec.Cost
		cur = rec.TargetNode
	}
	return cur, total, true
}

func (n *Network) send(from NodeID, port PortNumber, msg Message) {
	rec, ok := n.nodes[from].ports[port]
	if !ok {
		panic(fmt.Sprintf("fabric: send on nonexistent port %d from node %d", port, from))
	}
	n.queue = append(n.queue, transmission{node: rec.TargetNode, port: rec.TargetPort, msg: msg.Clone()})
	if n.draining {
		return
	}
	n.draining = true
	defer func() { n.draining = false }()
	for len(n.queue) > 0 {
		t := n.queue[0]
		n.queue = n.queue[1:]
		adapter := n.adapters[t.node]
		if adapter.handler == nil {
			log.Fatalf("fabric: no handler registered for node %d", t.node)
		}
		if n.transmissionCount != nil {
			n.transmissionCount.Increase(1)
		}
		adapter.handler.Handle(t.port, t.msg)
	}
}
