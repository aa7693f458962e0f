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

	"stackroute/core"
	"stackroute/metrics"
)

// createPropagator dispatches on cfg.Strategy exactly as the reference
// implementation's _create_propagator does (spec §4.4).
func createPropagator(cfg PropagationConfig, rnd *rand.Rand) (core.Propagator, error) {
	switch cfg.Strategy {
	case "random_route":
		return core.NewCompositePropagator(
			&core.RandomPortPicker{Rnd: rnd},
			&core.RandomRoutePicker{CutoffRate: cfg.CutoffRate, Rnd: rnd},
		), nil
	case "shortest_route":
		return core.NewCompositePropagator(
			&core.RandomPortPicker{Rnd: rnd},
			&core.ShortestRoutePicker{Rnd: rnd},
		), nil
	case "alternate":
		if cfg.Random == nil || cfg.Shortest == nil {
			return nil, fmt.Errorf("sim: alternate propagation requires both random and shortest sub-configs")
		}
		first := core.NewCompositePropagator(
			&core.RandomPortPicker{Rnd: rnd},
			&core.RandomRoutePicker{CutoffRate: cfg.Random.CutoffRate, Rnd: rnd},
		)
		second := core.NewCompositePropagator(
			&core.RandomPortPicker{Rnd: rnd},
			&core.ShortestRoutePicker{Rnd: rnd},
		)
		return &core.AlternativePropagator{First: first, Second: second, Ratio: cfg.RandomRatio, Rnd: rnd}, nil
	default:
		return nil, fmt.Errorf("sim: unknown propagation strategy %q", cfg.Strategy)
	}
}

// RouterFactory builds identically-configured routers for every node of a
// candidate's network, mirroring OptimisedRouterFactory/StackedRouterFactory.
type RouterFactory struct {
	cfg        RoutingConfig
	propagator core.Propagator
}

// NewRouterFactory validates cfg and builds a RouterFactory that shares
// one propagator (and its random stream) across every router it creates,
// exactly as the reference factories do.
func NewRouterFactory(cfg RoutingConfig, rnd *rand.Rand) (*RouterFactory, error) {
	prop, err := createPropagator(cfg.Propagation, rnd)
	if err != nil {
		return nil, err
	}
	return &RouterFactory{cfg: cfg, propagator: prop}, nil
}

// CreateRouter wires a Router for one node per cfg: stack engine, store,
// scheduled tasks and message handlers, following spec §4.5.
func (f *RouterFactory) CreateRouter(adapter *core.Adapter, id core.NodeID, tracker *core.Tracker, rnd *rand.Rand, demand map[core.NodeID]float64) *core.Router {
	engine := core.NewStackEngine(adapter, f.cfg.BroadcastForwardingRate, f.cfg.RandomWalkBroadcasting, rnd)
	store := core.NewStore(id, f.cfg.Store.EliminateCycles, f.cfg.Store.EliminateCyclesEagerly, tracker)
	router := core.NewRouter(id, engine, store, demand)

	router.RegisterHandler(core.KindRouteAdvertisement, &core.AdvertisementHandler{
		Store:       store,
		Stack:       engine,
		AutoForward: f.cfg.AutoForwardPropagations,
	})

	if f.cfg.SelfPropagation {
		router.AddTask(&core.SelfAdvertiserTask{Stack: engine, Address: id})
	}
	if f.cfg.RoutePropagation {
		router.AddTask(&core.RouteAdvertiserTask{Propagator: f.propagator, Store: store, Stack: engine})
	}
	if f.cfg.Searching {
		searcher := core.NewSearcher(store, engine, rnd, demand)
		router.AddTask(searcher)
		router.RegisterHandler(core.KindRouteSearch, searcher)
	}
	if f.cfg.AdvertiseLinkFailures {
		router.AddDisconnectTask(&core.LinkFailureAdvertiserTask{Stack: engine})
		router.RegisterHandler(core.KindLinkFailureAdvertisement, core.NewLinkFailureHandler(store, engine, rnd))
	}
	return router
}

// Candidate is one named experiment's live state: its network, routers,
// shared tracker, and ruin-and-recreate schedule (spec §4.7).
type Candidate struct {
	Network *core.Network
	Tracker *core.Tracker
	Routers []*core.Router

	factory      *RouterFactory
	rnd          *rand.Rand
	linkFailRate float64
	genCost      func() (core.Cost, core.Cost)
}

// CreateCandidate assembles one candidate per cfg: generates its network
// topology, builds a router per node, and wires one shared demand map
// giving weight 1 to every node, each router's own node included (the
// reference implementation's default demand map,
// carried forward since spec.md leaves non-uniform demand configuration
// out of scope).
func CreateCandidate(cfg CandidateConfig, rnd *rand.Rand) (*Candidate, error) {
	gen, err := costGenerator(cfg.Network.CostDistribution, rnd)
	if err != nil {
		return nil, err
	}

	var graph metrics.CostGraph
	switch cfg.Network.Strategy {
	case "", "gilbert":
		graph = GenerateGilbertGraph(cfg.Network.NodeCount, cfg.Network.Density, rnd, gen)
	case "watts_strogatz":
		graph, err = GenerateWattsStrogatzGraph(cfg.Network.NodeCount, cfg.Network.Degree, cfg.Network.Beta, rnd, gen)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("sim: unknown network generation strategy %q", cfg.Network.Strategy)
	}

	tracker := core.NewTracker()
	network := GraphToNetwork(graph, tracker)

	factory, err := NewRouterFactory(cfg.Routing, rnd)
	if err != nil {
		return nil, err
	}

	demand := uniformDemand(network.NodeCount())

	c := &Candidate{
		Network:      network,
		Tracker:      tracker,
		factory:      factory,
		rnd:          rnd,
		linkFailRate: cfg.LinkFailRate,
		genCost:      gen,
	}
	for i := 0; i < network.NodeCount(); i++ {
		id := core.NodeID(i)
		c.Routers = append(c.Routers, factory.CreateRouter(network.Adapters()[i], id, tracker, rnd, demand))
	}
	return c, nil
}

func uniformDemand(n int) map[core.NodeID]float64 {
	d := make(map[core.NodeID]float64, n)
	for i := 0; i < n; i++ {
		d[core.NodeID(i)] = 1
	}
	return d
}

// Tick advances the candidate by one step: every router ticks in order,
// then the network is ruined and recreated (spec §4.7).
func (c *Candidate) Tick() {
	for _, r := range c.Routers {
		r.Tick()
	}
	c.ruinAndRecreate()
}

// ruinAndRecreate enumerates every currently-connected undirected link
// canonically (node_id > peer_id, once each) before mutating anything, so
// that disconnecting one link never changes which others are considered
// this step.
func (c *Candidate) ruinAndRecreate() {
	type link struct {
		node core.NodeID
		port core.PortNumber
	}
	var failing []link
	for i := 0; i < c.Network.NodeCount(); i++ {
		id := core.NodeID(i)
		for _, port := range c.Network.Adapters()[i].Ports() {
			rec, ok := c.Network.PortRecord(id, port)
			if !ok || id <= rec.TargetNode {
				continue
			}
			if c.linkFailRate > c.rnd.Float64() {
				failing = append(failing, link{node: id, port: port})
			}
		}
	}

	for _, l := range failing {
		if _, ok := c.Network.PortRecord(l.node, l.port); !ok {
			continue
		}
		c.Network.Disconnect(l.node, l.port)

		a := core.NodeID(c.rnd.Intn(c.Network.NodeCount()))
		b := core.NodeID(c.rnd.Intn(c.Network.NodeCount()))
		fwd, back := c.genCost()
		c.Network.Connect(a, b, fwd, back)
	}
}

// ScrapeMetrics computes every metric named in names over the candidate's
// current live state.
func (c *Candidate) ScrapeMetrics(names []string) (map[string]float64, error) {
	routers := make([]metrics.Router, len(c.Routers))
	for i, r := range c.Routers {
		routers[i] = r
	}
	calc := metrics.NewCalculator(c.Network, routers, c.Tracker)
	return calc.Scrape(names)
}
