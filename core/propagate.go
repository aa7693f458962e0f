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
	"math/rand"
)

// PropagationChoice is what a Propagator hands back: an outgoing port to
// send on, together with the target/route/cost it chose to advertise.
type PropagationChoice struct {
	Port   PortNumber
	Target NodeID
	Route  Route
	Cost   Cost
}

// Propagator selects what to advertise next. Pick returns ok=false if no
// advertisement can be made this tick (e.g. an empty port pool) — the
// caller simply skips its tick, per spec §7's "empty propagator pool"
// policy.
type Propagator interface {
	Pick(store *Store, adapter *Adapter) (PropagationChoice, bool)
}

// PortPicker selects an outgoing port.
type PortPicker interface {
	Pick(adapter *Adapter) (PortNumber, bool)
}

// RoutePicker selects a (target, route, cost) triple from a store.
type RoutePicker interface {
	Pick(store *Store) (NodeID, Route, Cost, bool)
}

// CompositePropagator combines an independent port picker and route
// picker into a single Propagator.
type CompositePropagator struct {
	Ports  PortPicker
	Routes RoutePicker
}

// NewCompositePropagator builds a CompositePropagator from its two halves.
func NewCompositePropagator(ports PortPicker, routes RoutePicker) *CompositePropagator {
	return &CompositePropagator{Ports: ports, Routes: routes}
}

// Pick implements Propagator.
func (c *CompositePropagator) Pick(store *Store, adapter *Adapter) (PropagationChoice, bool) {
	port, ok := c.Ports.Pick(adapter)
	if !ok {
		return PropagationChoice{}, false
	}
	target, route, cost, ok := c.Routes.Pick(store)
	if !ok {
		return PropagationChoice{}, false
	}
	return PropagationChoice{Port: port, Target: target, Route: route, Cost: cost}, true
}

// RandomPortPicker picks uniformly among an adapter's connected ports.
type RandomPortPicker struct {
	Rnd *rand.Rand
}

// Pick implements PortPicker.
func (p *RandomPortPicker) Pick(adapter *Adapter) (PortNumber, bool) {
	ports := adapter.Ports()
	if len(ports) == 0 {
		return 0, false
	}
	return ports[p.Rnd.Intn(len(ports))], true
}

// RandomRoutePicker walks the store from source, stopping at each step
// with probability CutoffRate, else following a uniformly random edge and
// a uniformly random priced route on it.
type RandomRoutePicker struct {
	CutoffRate float64
	Rnd        *rand.Rand
}

// Pick implements RoutePicker.
func (p *RandomRoutePicker) Pick(store *Store) (NodeID, Route, Cost, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return p.pickFrom(store, store.source)
}

func (p *RandomRoutePicker) pickFrom(store *Store, source NodeID) (NodeID, Route, Cost, bool) {
	n, ok := store.nodes[source]
	if !ok || len(n.succOrder) == 0 {
		return source, Route{}, 0, true
	}
	if p.CutoffRate > p.Rnd.Float64() {
		return source, Route{}, 0, true
	}
	succ := n.succOrder[p.Rnd.Intn(len(n.succOrder))]
	target, tailRoute, tailCost, ok := p.pickFrom(store, succ)
	if !ok {
		return 0, nil, 0, false
	}
	e := n.edges[succ]
	pr := e.routes[p.Rnd.Intn(len(e.routes))]
	full := append(pr.Path.Clone(), tailRoute...)
	return target, full, pr.Cost + tailCost, true
}

// ShortestRoutePicker picks a uniformly random known target and returns
// its shortest route.
type ShortestRoutePicker struct {
	Rnd *rand.Rand
}

// Pick implements RoutePicker.
func (p *ShortestRoutePicker) Pick(store *Store) (NodeID, Route, Cost, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	targets := sortedNodeIDs(store.nodes)
	if len(targets) == 0 {
		return 0, nil, 0, false
	}
	target := targets[p.Rnd.Intn(len(targets))]
	route, cost, ok := store.shortestRouteLocked(target)
	if !ok {
		return 0, nil, 0, false
	}
	return target, route, cost, true
}

// AlternativePropagator delegates to First with probability Ratio, else
// to Second.
type AlternativePropagator struct {
	First, Second Propagator
	Ratio         float64
	Rnd           *rand.Rand
}

// Pick implements Propagator.
func (a *AlternativePropagator) Pick(store *Store, adapter *Adapter) (PropagationChoice, bool) {
	if a.Ratio > a.Rnd.Float64() {
		return a.First.Pick(store, adapter)
	}
	return a.Second.Pick(store, adapter)
}
