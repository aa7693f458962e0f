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
	"sync"
)

// PricedRoute pairs a concrete port-sequence with the cost of executing
// it from its edge's source node to its edge's target node.
type PricedRoute struct {
	Path Route
	Cost Cost
}

// edge is a bag of priced routes between two store nodes, kept sorted
// ascending by cost.
type edge struct {
	routes []PricedRoute
}

func (e *edge) cost() Cost {
	if len(e.routes) == 0 {
		return InfCost
	}
	return e.routes[0].Cost
}

// insertPath inserts (path, cost) keeping routes sorted ascending by cost,
// ties broken by insertion order (new entries go before existing
// equal-cost entries, matching bisect.insort_left).
func (e *edge) insertPath(path Route, cost Cost) {
	idx := sort.Search(len(e.routes), func(i int) bool { return e.routes[i].Cost >= cost })
	e.routes = append(e.routes, PricedRoute{})
	copy(e.routes[idx+1:], e.routes[idx:])
	e.routes[idx] = PricedRoute{Path: path.Clone(), Cost: cost}
}

// storeNode is one node's entry in a Store: its current Dijkstra distance
// and predecessor, plus its outgoing edges kept in insertion order so that
// prefix-walk tie-breaks and propagator random picks are reproducible
// given a fixed random stream.
type storeNode struct {
	distance    Cost
	predecessor *NodeID
	succOrder   []NodeID
	edges       map[NodeID]*edge
}

func newStoreNode() *storeNode {
	return &storeNode{distance: InfCost, edges: map[NodeID]*edge{}}
}

func (n *storeNode) getEdge(target NodeID) *edge {
	e, ok := n.edges[target]
	if !ok {
		e = &edge{}
		n.edges[target] = e
		n.succOrder = append(n.succOrder, target)
	}
	return e
}

func (n *storeNode) removeEdge(target NodeID) {
	delete(n.edges, target)
	for i, s := range n.succOrder {
		if s == target {
			n.succOrder = append(n.succOrder[:i], n.succOrder[i+1:]...)
			break
		}
	}
}

// Store is a per-node compressed reachability graph rooted at source, plus
// a Dijkstra distance layer. It is the most intricate data structure in
// the simulator: edges are "macro-hops" laid out so that no edge's
// shortest segment is a proper prefix of another's, a compression that
// insert preserves by redirecting prefixed segments through newly
// introduced intermediate nodes.
type Store struct {
	mu              sync.RWMutex
	source          NodeID
	nodes           map[NodeID]*storeNode
	eliminateCycles bool
	eagerCycles     bool

	receivedRouteLength  *Counter
	routeInsertionCount  *Counter
	routeUpdateSeconds   *Timer
	distUpdateSeconds    *Timer
}

// NewStore creates a Store owned by source. eliminateCycles/eagerCycles
// select the cycle guard variant (spec §4.3.3 step 1); tracker may be nil
// for an uninstrumented store (e.g. in isolated tests).
func NewStore(source NodeID, eliminateCycles, eagerCycles bool, tracker *Tracker) *Store {
	s := &Store{
		source:          source,
		nodes:           map[NodeID]*storeNode{},
		eliminateCycles: eliminateCycles,
		eagerCycles:     eagerCycles,
	}
	owner := newStoreNode()
	owner.distance = 0
	s.nodes[source] = owner
	if tracker != nil {
		s.receivedRouteLength = tracker.Counter("received_route_length")
		s.routeInsertionCount = tracker.Counter("route_insertion_count")
		s.routeUpdateSeconds = tracker.Timer("route_update_seconds_sum")
		s.distUpdateSeconds = tracker.Timer("distance_update_seconds_sum")
	}
	return s
}

// Source returns the store's owner node.
func (s *Store) Source() NodeID { return s.source }

// ShortestRoute returns the least-cost known path to target, per spec
// §4.3.1. A broken predecessor chain is a store inconsistency and panics.
func (s *Store) ShortestRoute(target NodeID) (Route, Cost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.shortestRouteLocked(target)
}

func (s *Store) shortestRouteLocked(target NodeID) (Route, Cost, bool) {
	if target == s.source {
		return Route{}, 0, true
	}
	n, ok := s.nodes[target]
	if !ok {
		return nil, 0, false
	}
	if n.predecessor == nil {
		panic(fmt.Sprintf("store inconsistency: node %v has no predecessor", target))
	}
	pred := *n.predecessor
	predNode, ok := s.nodes[pred]
	if !ok {
		panic(fmt.Sprintf("store inconsistency: predecessor %v of %v is unknown", pred, target))
	}
	e, ok := predNode.edges[target]
	if !ok || len(e.routes) == 0 {
		panic(fmt.Sprintf("store inconsistency: missing edge %v->%v", pred, target))
	}
	predRoute, predCost, ok := s.shortestRouteLocked(pred)
	if !ok {
		panic(fmt.Sprintf("store inconsistency: predecessor %v has no route", pred))
	}
	best := e.routes[0]
	full := append(predRoute.Clone(), best.Path...)
	return full, predCost + best.Cost, true
}

// HasRoute reports whether target is known to the store (§4.3.2).
func (s *Store) HasRoute(target NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[target]
	return ok
}

// KnownTargets returns every node the store has heard of, in ascending
// NodeID order.
func (s *Store) KnownTargets() []NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedNodeIDs(s.nodes)
}

// Successors returns node's outgoing edge targets in insertion order.
func (s *Store) Successors(node NodeID) []NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[node]
	if !ok {
		return nil
	}
	return append([]NodeID(nil), n.succOrder...)
}

// EdgeRoutes returns the priced routes of the edge from->to, sorted
// ascending by cost.
func (s *Store) EdgeRoutes(from, to NodeID) []PricedRoute {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[from]
	if !ok {
		return nil
	}
	e, ok := n.edges[to]
	if !ok {
		return nil
	}
	return append([]PricedRoute(nil), e.routes...)
}

// Insert records that route reaches target at cost from the store's
// owner, per spec §4.3.3: a scoped timer brackets the structural update,
// a second brackets the Dijkstra pass, which runs only if the structural
// step touched any edge.
func (s *Store) Insert(target NodeID, route Route, cost Cost) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.receivedRouteLength != nil {
		s.receivedRouteLength.Increase(float64(len(route)))
		s.routeInsertionCount.Increase(1)
	}

	var modified [][2]NodeID
	if s.routeUpdateSeconds != nil {
		s.routeUpdateSeconds.Start()
	}
	s.storeRoute(s.source, target, route, cost, &modified)
	if s.routeUpdateSeconds != nil {
		s.routeUpdateSeconds.Stop()
	}
	if len(modified) == 0 {
		return
	}
	if s.distUpdateSeconds != nil {
		s.distUpdateSeconds.Start()
	}
	s.updateDistances(true)
	if s.distUpdateSeconds != nil {
		s.distUpdateSeconds.Stop()
	}
}

func (s *Store) storeRoute(src, target NodeID, route Route, cost Cost, modified *[][2]NodeID) {
	if s.eliminateCycles {
		if s.eagerCycles {
			if target == src {
				return
			}
		} else if target == s.source {
			return
		}
	}
	if target == src {
		return
	}

	n := s.nodes[src]
	for _, succ := range n.succOrder {
		e := n.edges[succ]
		for _, pr := range e.routes {
			if IsPrefix(pr.Path, route) {
				remaining := route[len(pr.Path):].Clone()
				s.storeRoute(succ, target, remaining, cost-pr.Cost, modified)
				return
			}
		}
	}

	if _, ok := s.nodes[target]; !ok {
		s.nodes[target] = newStoreNode()
	}
	e := n.getEdge(target)
	e.insertPath(route, cost)
	*modified = append(*modified, [2]NodeID{src, target})

	succs := append([]NodeID(nil), n.succOrder...)
	for _, succ := range succs {
		s.redirectPrefixedSegments(src, succ, target, route, cost, modified)
	}
}

// redirectPrefixedSegments implements spec §4.3.3 step 5: routes on
// src->succ whose path is properly prefixed by the just-inserted route
// move to target->succ, their cost and path trimmed by the inserted
// segment. Validated before any mutation so a would-be-negative
// remaining cost rejects the whole redirect without leaving the store
// half-mutated (spec §9 open question 3).
func (s *Store) redirectPrefixedSegments(src, succ, target NodeID, route Route, cost Cost, modified *[][2]NodeID) {
	n := s.nodes[src]
	e := n.edges[succ]
	if e == nil {
		return
	}
	var kept, prefixed []PricedRoute
	for _, pr := range e.routes {
		if IsRealPrefix(route, pr.Path) {
			prefixed = append(prefixed, pr)
		} else {
			kept = append(kept, pr)
		}
	}
	if len(prefixed) == 0 {
		return
	}
	for _, pr := range prefixed {
		if pr.Cost-cost < 0 {
			log.Printf("store: rejecting redirect source=%v succ=%v target=%v: negative remaining cost", src, succ, target)
			return
		}
	}

	e.routes = kept
	if len(e.routes) == 0 {
		n.removeEdge(succ)
	}
	*modified = append(*modified, [2]NodeID{src, succ})

	if _, ok := s.nodes[target]; !ok {
		s.nodes[target] = newStoreNode()
	}
	tgtNode := s.nodes[target]
	te := tgtNode.getEdge(succ)
	for _, pr := range prefixed {
		remaining := pr.Path[len(route):].Clone()
		if len(remaining) == 0 {
			panic(fmt.Sprintf("store inconsistency: empty remainder redirecting %v->%v via %v", src, succ, target))
		}
		te.insertPath(remaining, pr.Cost-cost)
	}
	*modified = append(*modified, [2]NodeID{target, succ})
}

// updateDistances rebuilds every node's Dijkstra distance/predecessor from
// source. When prune is set, nodes left at InfCost are dropped — used
// only on the insert path, never after failure pruning (spec §4.3.4).
func (s *Store) updateDistances(prune bool) {
	for id, n := range s.nodes {
		n.distance = InfCost
		n.predecessor = nil
		_ = id
	}
	s.nodes[s.source].distance = 0

	explored := map[NodeID]bool{}
	remaining := make([]NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		remaining = append(remaining, id)
	}

	for len(remaining) > 0 {
		best := 0
		for i := 1; i < len(remaining); i++ {
			ri, rb := remaining[i], remaining[best]
			di, db := s.nodes[ri].distance, s.nodes[rb].distance
			if di < db || (di == db && ri < rb) {
				best = i
			}
		}
		u := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		explored[u] = true

		un := s.nodes[u]
		for _, v := range un.succOrder {
			if explored[v] {
				continue
			}
			alt := un.distance + un.edges[v].cost()
			if alt < s.nodes[v].distance {
				s.nodes[v].distance = alt
				pv := u
				s.nodes[v].predecessor = &pv
			}
		}
	}

	if prune {
		for id, n := range s.nodes {
			if id == s.source {
				continue
			}
			if n.distance == InfCost {
				delete(s.nodes, id)
			}
		}
	}
}

// RemoveRoutesStartingWith recursively removes every priced route in the
// owner-rooted tree whose path has route as a prefix, then reruns
// Dijkstra without pruning (spec §4.3.5).
func (s *Store) RemoveRoutesStartingWith(route Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeFrom(s.source, route)
	s.updateDistances(false)
}

func (s *Store) removeFrom(node NodeID, route Route) {
	n, ok := s.nodes[node]
	if !ok {
		return
	}
	for _, succ := range append([]NodeID(nil), n.succOrder...) {
		e := n.edges[succ]
		if e == nil {
			continue
		}
		var kept []PricedRoute
		for _, pr := range e.routes {
			switch {
			case IsPrefix(route, pr.Path):
				continue
			case IsPrefix(pr.Path, route):
				kept = append(kept, pr)
				s.removeFrom(succ, route[len(pr.Path):])
			default:
				kept = append(kept, pr)
			}
		}
		e.routes = kept
		if len(e.routes) == 0 {
			n.removeEdge(succ)
		}
	}
}

// HasRoutesStartingWith mirrors RemoveRoutesStartingWith's recursion to
// answer in O(depth) whether pruning route would remove anything.
func (s *Store) HasRoutesStartingWith(route Route) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasFrom(s.source, route)
}

func (s *Store) hasFrom(node NodeID, route Route) bool {
	n, ok := s.nodes[node]
	if !ok {
		return false
	}
	for _, succ := range n.succOrder {
		e := n.edges[succ]
		for _, pr := range e.routes {
			if IsPrefix(route, pr.Path) {
				return true
			}
			if IsPrefix(pr.Path, route) && s.hasFrom(succ, route[len(pr.Path):]) {
				return true
			}
		}
	}
	return false
}
