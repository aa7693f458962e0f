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

// Package metrics computes all-pairs reachability and distance from the
// live network topology and the deterministic exact statistics the
// candidate driver scrapes each sample tick.
package metrics

import "stackroute/core"

// CostGraph is the live, possibly ruined, topology expressed as direct
// neighbor costs, independent of any router's route store.
type CostGraph map[core.NodeID]map[core.NodeID]core.Cost

// BuildCostGraph reads the direct-neighbor edge costs off network's ports.
func BuildCostGraph(network *core.Network) CostGraph {
	g := make(CostGraph, network.NodeCount())
	for i := 0; i < network.NodeCount(); i++ {
		id := core.NodeID(i)
		g[id] = map[core.NodeID]core.Cost{}
	}
	for i := 0; i < network.NodeCount(); i++ {
		id := core.NodeID(i)
		for _, port := range network.Adapters()[i].Ports() {
			rec, ok := network.PortRecord(id, port)
			if !ok {
				continue
			}
			if cur, ok := g[id][rec.TargetNode]; !ok || rec.Cost < cur {
				g[id][rec.TargetNode] = rec.Cost
			}
		}
	}
	return g
}

// Reachabilities computes the transitive closure of g by repeated
// relaxation (Warshall's algorithm), returned as an n*n boolean matrix
// indexed by NodeID.
func Reachabilities(g CostGraph) [][]bool {
	n := len(g)
	reach := make([][]bool, n)
	for i := range reach {
		reach[i] = make([]bool, n)
	}
	for u, neighbors := range g {
		reach[u][u] = true
		for v := range neighbors {
			reach[u][v] = true
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if !reach[i][k] {
				continue
			}
			for j := 0; j < n; j++ {
				if reach[k][j] {
					reach[i][j] = true
				}
			}
		}
	}
	return reach
}

// Distances computes all-pairs shortest distances over g with
// Floyd-Warshall, returned as an n*n matrix indexed by NodeID with
// core.InfCost where no path exists.
func Distances(g CostGraph) [][]core.Cost {
	n := len(g)
	dist := make([][]core.Cost, n)
	for i := range dist {
		dist[i] = make([]core.Cost, n)
		for j := range dist[i] {
			dist[i][j] = core.InfCost
		}
		dist[i][i] = 0
	}
	for u, neighbors := range g {
		for v, cost := range neighbors {
			if cost < dist[u][v] {
				dist[u][v] = cost
			}
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if dist[i][k] == core.InfCost {
				continue
			}
			for j := 0; j < n; j++ {
				if dist[k][j] == core.InfCost {
					continue
				}
				if alt := dist[i][k] + dist[k][j]; alt < dist[i][j] {
					dist[i][j] = alt
				}
			}
		}
	}
	return dist
}
