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

package metrics

import (
	"testing"

	"stackroute/core"
)

type fakeRouter struct {
	id     core.NodeID
	routes map[core.NodeID]core.PricedRoute
	demand map[core.NodeID]float64
}

func (f *fakeRouter) ID() core.NodeID { return f.id }

func (f *fakeRouter) RouteCost(target core.NodeID) (core.Route, core.Cost, bool) {
	pr, ok := f.routes[target]
	if !ok {
		return nil, 0, false
	}
	return pr.Path, pr.Cost, true
}

func (f *fakeRouter) HasRoute(target core.NodeID) bool {
	_, ok := f.routes[target]
	return ok
}

func (f *fakeRouter) Demand(target core.NodeID) float64 { return f.demand[target] }

func TestBuildCostGraphAndReachabilityDistances(t *testing.T) {
	n := core.NewNetwork(3, nil)
	n.Connect(0, 1, 1, 1)
	n.Connect(1, 2, 2, 2)

	g := BuildCostGraph(n)
	reach := Reachabilities(g)
	dist := Distances(g)

	if !reach[0][2] {
		t.Errorf("reach[0][2] = false, want true (0->1->2)")
	}
	if dist[0][2] != 3 {
		t.Errorf("dist[0][2] = %v, want 3", dist[0][2])
	}
}

func TestRoutabilityAndEfficiency(t *testing.T) {
	n := core.NewNetwork(2, nil)
	n.Connect(0, 1, 5, 5)

	r0 := &fakeRouter{id: 0, routes: map[core.NodeID]core.PricedRoute{
		1: {Path: core.Route{0}, Cost: 5},
	}}
	r1 := &fakeRouter{id: 1}

	calc := NewCalculator(n, []Router{r0, r1}, core.NewTracker())
	got, err := calc.Scrape([]string{"routability", "efficiency", "efficient_routability"})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	if got["routability"] != 0.5 {
		t.Errorf("routability = %v, want 0.5 (only 0->1 known, 1->0 unknown)", got["routability"])
	}
	if got["efficiency"] != 1 {
		t.Errorf("efficiency = %v, want 1 (claimed route matches ground truth cost)", got["efficiency"])
	}
	if got["efficient_routability"] != 0.5 {
		t.Errorf("efficient_routability = %v, want 0.5", got["efficient_routability"])
	}
}

func TestRouteFailuresDetectsBrokenClaims(t *testing.T) {
	n := core.NewNetwork(2, nil)
	n.Connect(0, 1, 1, 1)

	r0 := &fakeRouter{id: 0, routes: map[core.NodeID]core.PricedRoute{
		1: {Path: core.Route{9}, Cost: 1}, // port 9 does not exist
	}}

	calc := NewCalculator(n, []Router{r0}, core.NewTracker())
	got, err := calc.Scrape([]string{"route_failures"})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	if got["route_failures"] != 1 {
		t.Errorf("route_failures = %v, want 1 (the only claimed route is broken)", got["route_failures"])
	}
}

func TestScrapeRejectsUnknownMetricName(t *testing.T) {
	n := core.NewNetwork(1, nil)
	calc := NewCalculator(n, nil, core.NewTracker())
	if _, err := calc.Scrape([]string{"not_a_real_metric"}); err == nil {
		t.Errorf("Scrape with an unknown metric name returned no error")
	}
}

func TestDemandedRoutabilityWeightsByDemand(t *testing.T) {
	n := core.NewNetwork(3, nil)
	n.Connect(0, 1, 1, 1)
	n.Connect(0, 2, 1, 1)

	r0 := &fakeRouter{
		id:     0,
		routes: map[core.NodeID]core.PricedRoute{1: {Path: core.Route{0}, Cost: 1}},
		demand: map[core.NodeID]float64{1: 3, 2: 1},
	}

	calc := NewCalculator(n, []Router{r0}, core.NewTracker())
	got, err := calc.Scrape([]string{"demanded_routability"})
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	want := 3.0 / 4.0
	if got["demanded_routability"] != want {
		t.Errorf("demanded_routability = %v, want %v", got["demanded_routability"], want)
	}
}
