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

import "testing"

func routeEq(t *testing.T, got, want Route) {
	t.Helper()
	if !Equal(got, want) {
		t.Errorf("route = %v, want %v", got, want)
	}
}

func TestShortestRouteSelf(t *testing.T) {
	s := NewStore(1, false, false, nil)
	route, cost, ok := s.ShortestRoute(1)
	if !ok {
		t.Fatalf("shortest_route(1) on self: not found")
	}
	routeEq(t, route, Route{})
	if cost != 0 {
		t.Errorf("cost = %v, want 0", cost)
	}
}

func TestSimpleInsertion(t *testing.T) {
	s := NewStore(0, false, false, nil)
	s.Insert(2, Route{1, 2, 3, 4}, 4)

	route, cost, ok := s.ShortestRoute(2)
	if !ok {
		t.Fatalf("shortest_route(2): not found")
	}
	routeEq(t, route, Route{1, 2, 3, 4})
	if cost != 4 {
		t.Errorf("cost = %v, want 4", cost)
	}
}

func TestCombinedRoutes(t *testing.T) {
	s := NewStore(0, false, false, nil)
	s.Insert(3, Route{1, 2, 4}, 3)
	s.Insert(2, Route{1, 2}, 2)
	s.Insert(2, Route{3}, 1)

	route, _, ok := s.ShortestRoute(3)
	if !ok {
		t.Fatalf("shortest_route(3): not found")
	}
	routeEq(t, route, Route{3, 4})
}

func TestFindingShorterPath(t *testing.T) {
	s := NewStore(0, false, false, nil)
	s.Insert(1, Route{1, 2}, 10)
	s.Insert(1, Route{1}, 3)

	route, cost, ok := s.ShortestRoute(1)
	if !ok {
		t.Fatalf("shortest_route(1): not found")
	}
	if cost != 3 {
		t.Errorf("cost = %v, want 3", cost)
	}
	if len(route) == 0 {
		t.Errorf("route unexpectedly empty")
	}

	n := s.nodes[1]
	if n.predecessor == nil {
		t.Fatalf("node 1 has no predecessor")
	}
	if len(s.nodes[0].edges[1].routes) == 0 {
		t.Errorf("edge 0->1 unexpectedly empty")
	}
}

func TestRedirect(t *testing.T) {
	s := NewStore(0, false, false, nil)
	s.Insert(2, Route{1, 2}, 3)
	s.Insert(2, Route{1, 3}, 4)
	s.Insert(1, Route{1}, 1)

	e01 := s.nodes[0].edges[1]
	if e01 == nil || len(e01.routes) != 1 {
		t.Fatalf("0->1 edge = %+v, want exactly one route", e01)
	}
	if !Equal(e01.routes[0].Path, Route{1}) || e01.routes[0].Cost != 1 {
		t.Errorf("0->1 route = %+v, want ([1], 1)", e01.routes[0])
	}

	e12 := s.nodes[1].edges[2]
	if e12 == nil || len(e12.routes) != 2 {
		t.Fatalf("1->2 edge = %+v, want exactly two routes", e12)
	}
	if !Equal(e12.routes[0].Path, Route{2}) || e12.routes[0].Cost != 2 {
		t.Errorf("1->2 route[0] = %+v, want ([2], 2)", e12.routes[0])
	}
	if !Equal(e12.routes[1].Path, Route{3}) || e12.routes[1].Cost != 3 {
		t.Errorf("1->2 route[1] = %+v, want ([3], 3)", e12.routes[1])
	}

	if e02, ok := s.nodes[0].edges[2]; ok && len(e02.routes) != 0 {
		t.Errorf("0->2 edge still has routes: %+v", e02)
	}
}

func TestIdempotentInsertion(t *testing.T) {
	s := NewStore(0, false, false, nil)
	s.Insert(1, Route{1}, 1)
	s.Insert(1, Route{1}, 1)

	e := s.nodes[0].edges[1]
	if e == nil || len(e.routes) != 1 {
		t.Fatalf("0->1 edge = %+v, want exactly one route after duplicate insertion", e)
	}
}

func TestInsertToSourceIsNoop(t *testing.T) {
	s := NewStore(0, false, false, nil)
	s.Insert(0, Route{1, 2}, 5)
	if len(s.nodes) != 1 {
		t.Errorf("store grew after inserting a route to its own source: %d nodes", len(s.nodes))
	}
}

func TestSingleNodeDijkstra(t *testing.T) {
	s := NewStore(0, false, false, nil)
	if s.nodes[0].distance != 0 {
		t.Errorf("source distance = %v, want 0", s.nodes[0].distance)
	}
	if len(s.nodes) != 1 {
		t.Errorf("single-node store pruned or grew: %d nodes", len(s.nodes))
	}
}

func TestIsPrefixAntisymmetry(t *testing.T) {
	a := Route{1, 2}
	b := Route{1, 2, 3}
	if !IsPrefix(a, b) {
		t.Errorf("IsPrefix(%v, %v) = false, want true", a, b)
	}
	if IsPrefix(b, a) {
		t.Errorf("IsPrefix(%v, %v) = true, want false", b, a)
	}
	if !IsPrefix(a, a) || !IsPrefix(a, a) {
		t.Errorf("IsPrefix(a, a) = false, want true")
	}
}

func TestFailurePruning(t *testing.T) {
	s := NewStore(0, false, false, nil)
	s.Insert(2, Route{1, 2, 3, 4}, 4)

	if !s.HasRoutesStartingWith(Route{1, 2}) {
		t.Fatalf("HasRoutesStartingWith([1,2]) = false, want true")
	}
	s.RemoveRoutesStartingWith(Route{1, 2})
	if s.HasRoutesStartingWith(Route{1, 2}) {
		t.Errorf("HasRoutesStartingWith([1,2]) = true after pruning, want false")
	}
	// Failure pruning reruns Dijkstra without dropping unreached nodes, so
	// node 2 stays known even though no stored route reaches it any more.
	if !s.HasRoute(2) {
		t.Errorf("HasRoute(2) = false after failure pruning, want true (no prune on the failure path)")
	}
}

func TestEagerCycleElimination(t *testing.T) {
	s := NewStore(0, true, true, nil)
	s.Insert(0, Route{1}, 1)
	if len(s.nodes) != 1 {
		t.Errorf("eager cycle guard let a route to the current src through: %d nodes", len(s.nodes))
	}
}
