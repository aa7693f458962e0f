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
	"fmt"

	"stackroute/core"
)

// Router is the subset of core.Router the calculator needs: a route
// lookup, an existence check and a demand weight, so metrics can be
// computed without importing core's router construction machinery.
type Router interface {
	ID() core.NodeID
	RouteCost(target core.NodeID) (core.Route, core.Cost, bool)
	HasRoute(target core.NodeID) bool
	Demand(target core.NodeID) float64
}

// Calculator computes every closed-set metric name (spec §6) for one
// candidate, against a ground-truth CostGraph rebuilt fresh each Scrape
// and a MeasurementSession taken from the candidate's shared Tracker.
type Calculator struct {
	network *core.Network
	routers []Router
	tracker *core.Tracker
}

// NewCalculator builds a Calculator over network's current topology and
// routers, reporting duration/throughput metrics from tracker.
func NewCalculator(network *core.Network, routers []Router, tracker *core.Tracker) *Calculator {
	return &Calculator{network: network, routers: routers, tracker: tracker}
}

// Scrape computes every metric named in names and returns them keyed by
// name. An unrecognized name is a configuration error (spec §7).
func (c *Calculator) Scrape(names []string) (map[string]float64, error) {
	graph := BuildCostGraph(c.network)
	reach := Reachabilities(graph)
	dist := Distances(graph)
	session := c.tracker.Session()

	out := make(map[string]float64, len(names))
	for _, name := range names {
		v, err := c.compute(name, reach, dist, session)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func (c *Calculator) compute(name string, reach [][]bool, dist [][]core.Cost, session *core.MeasurementSession) (float64, error) {
	switch name {
	case "transmissions_per_node":
		return c.transmissionsPerNode(session), nil
	case "routability":
		return c.routability(reach, false), nil
	case "demanded_routability":
		return c.routability(reach, true), nil
	case "efficiency":
		return c.efficiency(reach, dist, false), nil
	case "demanded_efficiency":
		return c.efficiency(reach, dist, true), nil
	case "efficient_routability":
		return c.efficientRoutability(reach, dist, false), nil
	case "demanded_efficient_routability":
		return c.efficientRoutability(reach, dist, true), nil
	case "route_failures":
		return c.routeFailures(reach), nil
	case "route_insertion_duration":
		return session.Rate("route_update_seconds_sum", "route_insertion_count"), nil
	case "distance_update_duration":
		return session.Rate("distance_update_seconds_sum", "route_insertion_count"), nil
	case "propagated_route_length":
		return session.Rate("received_route_length", "route_insertion_count"), nil
	default:
		return 0, fmt.Errorf("metrics: unknown metric name %q", name)
	}
}

func (c *Calculator) transmissionsPerNode(session *core.MeasurementSession) float64 {
	n := c.network.NodeCount()
	if n == 0 {
		return 0
	}
	return session.Get("transmission_count") / float64(n)
}

// weightOf returns the pair's contribution to a demanded sum (the
// router's demand for j, normalized by its total demand over every node)
// or 1 for the pair-uniform variant.
func (c *Calculator) weightOf(router Router, j core.NodeID, demanded bool) float64 {
	if !demanded {
		return 1
	}
	var total float64
	for k := 0; k < c.network.NodeCount(); k++ {
		total += router.Demand(core.NodeID(k))
	}
	if total == 0 {
		return 0
	}
	return router.Demand(j) / total
}

func (c *Calculator) routability(reach [][]bool, demanded bool) float64 {
	var num, den float64
	for _, r := range c.routers {
		i := r.ID()
		for j := 0; j < len(reach); j++ {
			jid := core.NodeID(j)
			if jid == i || !reach[i][jid] {
				continue
			}
			w := c.weightOf(r, jid, demanded)
			if w == 0 {
				continue
			}
			den += w
			if r.HasRoute(jid) {
				num += w
			}
		}
	}
	if den == 0 {
		return 1
	}
	return num / den
}

func (c *Calculator) efficiency(reach [][]bool, dist [][]core.Cost, demanded bool) float64 {
	var truthSum, claimedSum float64
	any := false
	for _, r := range c.routers {
		i := r.ID()
		for j := 0; j < len(reach); j++ {
			jid := core.NodeID(j)
			if jid == i || !reach[i][jid] {
				continue
			}
			_, cost, ok := r.RouteCost(jid)
			if !ok {
				continue
			}
			w := c.weightOf(r, jid, demanded)
			if w == 0 {
				continue
			}
			any = true
			truthSum += w * float64(dist[i][jid])
			claimedSum += w * float64(cost)
		}
	}
	if !any || claimedSum == 0 {
		return 1
	}
	return truthSum / claimedSum
}

func (c *Calculator) efficientRoutability(reach [][]bool, dist [][]core.Cost, demanded bool) float64 {
	var num, den float64
	for _, r := range c.routers {
		i := r.ID()
		for j := 0; j < len(reach); j++ {
			jid := core.NodeID(j)
			if jid == i || !reach[i][jid] {
				continue
			}
			w := c.weightOf(r, jid, demanded)
			if w == 0 {
				continue
			}
			den += w
			_, cost, ok := r.RouteCost(jid)
			if !ok {
				continue
			}
			if cost == dist[i][jid] {
				num += w
			}
		}
	}
	if den == 0 {
		return 1
	}
	return num / den
}

// routeFailures executes every claimed route against the live (possibly
// ruined) network and reports the fraction that do not land on the
// claimed target.
func (c *Calculator) routeFailures(reach [][]bool) float64 {
	var failed, total float64
	for _, r := range c.routers {
		i := r.ID()
		for j := 0; j < len(reach); j++ {
			jid := core.NodeID(j)
			if jid == i {
				continue
			}
			route, _, ok := r.RouteCost(jid)
			if !ok {
				continue
			}
			total++
			landed, _, ok := c.network.Execute(i, route)
			if !ok || landed != jid {
				failed++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return failed / total
}
