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
	"math/rand"
)

// Endpoint receives datagrams and disconnect notifications from a
// StackEngine. Routers implement Endpoint; the engine only dispatches to
// it, breaking the router/engine ownership cycle with a late-bound slot
// set once after construction rather than a shared-lifetime reference.
type Endpoint interface {
	ReceiveDatagram(d Datagram)
	OnPortDisconnected(port PortNumber)
}

// StackEngine is the single Handler registered on a node's Adapter. It
// turns raw link events into datagram events and back, deciding broadcast
// fan-out policy; the router decides whether and what to forward.
type StackEngine struct {
	adapter        *Adapter
	rnd            *rand.Rand
	forwardingRate float64
	randomWalk     bool
	endpoint       Endpoint
}

// NewStackEngine builds a StackEngine bound to adapter. forwardingRate and
// randomWalk configure broadcast fan-out (see SendDatagram). rnd is the
// injected, non-global random source required by the simulator's
// determinism guarantee.
func NewStackEngine(adapter *Adapter, forwardingRate float64, randomWalk bool, rnd *rand.Rand) *StackEngine {
	e := &StackEngine{adapter: adapter, forwardingRate: forwardingRate, randomWalk: randomWalk, rnd: rnd}
	adapter.RegisterHandler(e)
	return e
}

// SetEndpoint binds the engine's endpoint once, after the endpoint itself
// has been constructed around this engine.
func (e *StackEngine) SetEndpoint(ep Endpoint) { e.endpoint = ep }

// Adapter returns the engine's underlying link-layer handle.
func (e *StackEngine) Adapter() *Adapter { return e.adapter }

// Handle implements Handler: ingress processing per spec §4.2.
func (e *StackEngine) Handle(ingress PortNumber, msg Message) {
	d, ok := msg.(Datagram)
	if !ok {
		panic(fmt.Sprintf("stack engine: unexpected message type %T", msg))
	}
	if d.Origin != nil {
		o := append(Route{ingress}, (*d.Origin)...)
		d.Origin = &o
	}
	if d.Destination != nil {
		if len(*d.Destination) == 0 {
			e.endpoint.ReceiveDatagram(d)
		} else {
			e.SendDatagram(d)
		}
		return
	}
	e.endpoint.ReceiveDatagram(d)
}

// OnDisconnected implements Handler by forwarding the link event to the
// bound endpoint.
func (e *StackEngine) OnDisconnected(port PortNumber) {
	if e.endpoint != nil {
		e.endpoint.OnPortDisconnected(port)
	}
}

// SendDatagram implements egress per spec §4.2. A present destination
// pops the next hop and forwards unicast; an absent destination is a
// broadcast, fanned out per the engine's configured random-walk or flood
// policy.
func (e *StackEngine) SendDatagram(d Datagram) {
	if d.Destination != nil {
		dest := *d.Destination
		port := dest[0]
		tail := dest[1:].Clone()
		nd := Datagram{Payload: d.Payload, Origin: d.Origin, Destination: &tail}
		e.adapter.Send(port, nd)
		return
	}
	ports := e.adapter.Ports()
	if len(ports) == 0 {
		return
	}
	if e.randomWalk {
		if e.forwardingRate > e.rnd.Float64() {
			port := ports[e.rnd.Intn(len(ports))]
			e.adapter.Send(port, d)
		}
		return
	}
	rate := e.forwardingRate / float64(len(ports))
	for _, port := range ports {
		if rate > e.rnd.Float64() {
			e.adapter.Send(port, d)
		}
	}
}

// SendFullBroadcast transmits d on every port unconditionally, used for
// the link-failure storm.
func (e *StackEngine) SendFullBroadcast(d Datagram) {
	for _, port := range e.adapter.Ports() {
		e.adapter.Send(port, d)
	}
}
