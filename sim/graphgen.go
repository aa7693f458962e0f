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

package sim

import (
	"fmt"
	"math/rand"
	"sort"

	"stackroute/core"
	"stackroute/metrics"
)

// costGenerator returns a (forward, backward) cost pair generator for one
// of the two configured cost distributions.
func costGenerator(dist string, rnd *rand.Rand) (func() (core.Cost, core.Cost), error) {
	switch dist {
	case "", "same":
		return func() (core.Cost, core.Cost) { return 1, 1 }, nil
	case "uniform":
		return func() (core.Cost, core.Cost) {
			return core.Cost(rnd.Float64()), core.Cost(rnd.Float64())
		}, nil
	default:
		return nil, fmt.Errorf("sim: unknown cost distribution %q", dist)
	}
}

// GenerateGilbertGraph builds a Gilbert-style random graph: every ordered
// pair (i, j), i == j included, is tried independently with probability
// p, and each hit installs both directions i->j and j->i, costed by gen.
// An unordered pair {i, j} is therefore linked with probability
// 1-(1-p)^2, and a later hit overwrites the costs of an earlier one.
func GenerateGilbertGraph(n int, p float64, rnd *rand.Rand, gen func() (core.Cost, core.Cost)) metrics.CostGraph {
	g := make(metrics.CostGraph, n)
	for i := 0; i < n; i++ {
		g[core.NodeID(i)] = map[core.NodeID]core.Cost{}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if p > rnd.Float64() {
				fwd, back := gen()
				g[core.NodeID(i)][core.NodeID(j)] = fwd
				g[core.NodeID(j)][core.NodeID(i)] = back
			}
		}
	}
	return g
}

// GenerateWattsStrogatzGraph builds a Watts-Strogatz small-world graph: a
// ring lattice where each node connects to its k nearest neighbors, then
// every lattice edge is rewired to a uniformly random endpoint with
// probability beta (the standard construction; the original source's
// Python body was not retrievable, so this follows the canonical
// algorithm description rather than a ported implementation).
func GenerateWattsStrogatzGraph(n, k int, beta float64, rnd *rand.Rand, gen func() (core.Cost, core.Cost)) (metrics.CostGraph, error) {
	if k < 0 || k >= n {
		return nil, fmt.Errorf("sim: watts_strogatz degree %d invalid for %d nodes", k, n)
	}
	if k%2 != 0 {
		return nil, fmt.Errorf("sim: watts_strogatz degree %d must be even", k)
	}
	g := make(metrics.CostGraph, n)
	for i := 0; i < n; i++ {
		g[core.NodeID(i)] = map[core.NodeID]core.Cost{}
	}
	connect := func(i, j int) {
		fwd, back := gen()
		g[core.NodeID(i)][core.NodeID(j)] = fwd
		g[core.NodeID(j)][core.NodeID(i)] = back
	}
	disconnect := func(i, j int) {
		delete(g[core.NodeID(i)], core.NodeID(j))
		delete(g[core.NodeID(j)], core.NodeID(i))
	}
	connected := func(i, j int) bool {
		_, ok := g[core.NodeID(i)][core.NodeID(j)]
		return ok
	}

	for i := 0; i < n; i++ {
		for step := 1; step <= k/2; step++ {
			connect(i, (i+step)%n)
		}
	}

	for i := 0; i < n; i++ {
		for step := 1; step <= k/2; step++ {
			j := (i + step) % n
			if beta <= rnd.Float64() {
				continue
			}
			candidate := rnd.Intn(n)
			if candidate == i || connected(i, candidate) {
				continue
			}
			disconnect(i, j)
			connect(i, candidate)
		}
	}
	return g, nil
}

// GraphToNetwork builds a core.Network from g, connecting each undirected
// edge exactly once (successor_id > vertex_id), exactly as the reference
// implementation's _graph_to_network does. Successors are visited in
// ascending NodeID order so that port assignment is reproducible given
// the same graph, independent of Go's randomized map iteration.
func GraphToNetwork(g metrics.CostGraph, tracker *core.Tracker) *core.Network {
	n := core.NewNetwork(len(g), tracker)
	for i := 0; i < len(g); i++ {
		vid := core.NodeID(i)
		successors := make([]core.NodeID, 0, len(g[vid]))
		for sid := range g[vid] {
			if sid > vid {
				successors = append(successors, sid)
			}
		}
		sort.Slice(successors, func(a, b int) bool { return successors[a] < successors[b] })
		for _, sid := range successors {
			n.Connect(vid, sid, g[vid][sid], g[sid][vid])
		}
	}
	return n
}
