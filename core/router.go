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
	"encoding/binary"
	"fmt"
	"math/rand"
	"sort"

	"github.com/bfix/gospel/data"
)

// Task is a scheduled unit of per-tick router behavior.
type Task interface {
	Execute()
}

// MessageHandler processes a received datagram of one payload variant.
type MessageHandler interface {
	Handle(d Datagram)
}

// PortDisconnectedTask runs when one of the router's ports disconnects.
type PortDisconnectedTask interface {
	Execute(port PortNumber)
}

// Router composes a stack engine, an optional route store, an ordered
// list of scheduled tasks, a type-dispatched message handler table, a
// list of port-disconnect tasks and a demand map — the extensible
// per-node routing machine (spec §4.5).
type Router struct {
	id       NodeID
	stack    *StackEngine
	store    *Store
	tasks    []Task
	handlers map[PayloadKind]MessageHandler
	onDrop   []PortDisconnectedTask
	demand   map[NodeID]float64
}

// NewRouter builds a Router for id around stack, binding itself as the
// stack engine's endpoint. store may be nil for a router with no routing
// table of its own.
func NewRouter(id NodeID, stack *StackEngine, store *Store, demand map[NodeID]float64) *Router {
	r := &Router{
		id:       id,
		stack:    stack,
		store:    store,
		demand:   demand,
		handlers: map[PayloadKind]MessageHandler{},
	}
	stack.SetEndpoint(r)
	return r
}

// ID returns the router's node.
func (r *Router) ID() NodeID { return r.id }

// Store returns the router's route store, or nil.
func (r *Router) Store() *Store { return r.store }

// StackEngine returns the router's stack engine.
func (r *Router) StackEngine() *StackEngine { return r.stack }

// AddTask appends a scheduled task, run in order each tick.
func (r *Router) AddTask(t Task) { r.tasks = append(r.tasks, t) }

// AddDisconnectTask appends a port-disconnect task.
func (r *Router) AddDisconnectTask(t PortDisconnectedTask) { r.onDrop = append(r.onDrop, t) }

// RegisterHandler installs the handler for one payload variant. Unknown
// tags reaching ReceiveDatagram are an implementation error (spec §6).
func (r *Router) RegisterHandler(kind PayloadKind, h MessageHandler) { r.handlers[kind] = h }

// Tick executes every scheduled task once, in order.
func (r *Router) Tick() {
	for _, t := range r.tasks {
		t.Execute()
	}
}

// ReceiveDatagram implements Endpoint by dispatching to the handler
// registered for the datagram's payload variant.
func (r *Router) ReceiveDatagram(d Datagram) {
	h, ok := r.handlers[d.Payload.Kind()]
	if !ok {
		panic(fmt.Sprintf("router %v: no handler registered for payload kind %v", r.id, d.Payload.Kind()))
	}
	h.Handle(d)
}

// OnPortDisconnected implements Endpoint by running every disconnect
// task with the dropped port.
func (r *Router) OnPortDisconnected(port PortNumber) {
	for _, t := range r.onDrop {
		t.Execute(port)
	}
}

// Route returns the router's best known route to target, if any.
func (r *Router) Route(target NodeID) (Route, bool) {
	if r.store == nil {
		return nil, false
	}
	route, _, ok := r.store.ShortestRoute(target)
	return route, ok
}

// RouteCost returns the router's best known route to target together with
// its store-reported cost, if any.
func (r *Router) RouteCost(target NodeID) (Route, Cost, bool) {
	if r.store == nil {
		return nil, 0, false
	}
	return r.store.ShortestRoute(target)
}

// HasRoute reports whether the router's store claims a route to target.
func (r *Router) HasRoute(target NodeID) bool {
	if r.store == nil {
		return false
	}
	return r.store.HasRoute(target)
}

// Demand returns the router's interest weight in target.
func (r *Router) Demand(target NodeID) float64 { return r.demand[target] }

// SelfAdvertiserTask broadcasts the owner's own address at zero cost
// each tick.
type SelfAdvertiserTask struct {
	Stack   *StackEngine
	Address NodeID
}

// Execute implements Task.
func (t *SelfAdvertiserTask) Execute() {
	origin := Route{}
	t.Stack.SendDatagram(Datagram{
		Payload: RouteAdvertisement{Target: t.Address, Cost: 0},
		Origin:  &origin,
	})
}

// RouteAdvertiserTask asks a Propagator for a choice each tick and
// broadcasts it.
type RouteAdvertiserTask struct {
	Propagator Propagator
	Store      *Store
	Stack      *StackEngine
}

// Execute implements Task.
func (t *RouteAdvertiserTask) Execute() {
	choice, ok := t.Propagator.Pick(t.Store, t.Stack.Adapter())
	if !ok {
		return
	}
	origin := choice.Route
	t.Stack.SendDatagram(Datagram{
		Payload: RouteAdvertisement{Target: choice.Target, Cost: choice.Cost},
		Origin:  &origin,
	})
}

// AdvertisementHandler inserts received advertisements into the route
// store, charging the incoming port's cost, and optionally re-broadcasts.
type AdvertisementHandler struct {
	Store       *Store
	Stack       *StackEngine
	AutoForward bool
}

// Handle implements MessageHandler.
func (h *AdvertisementHandler) Handle(d Datagram) {
	adv := d.Payload.(RouteAdvertisement)
	if h.Store != nil && d.Origin != nil && len(*d.Origin) > 0 {
		incoming := (*d.Origin)[0]
		adv.Cost += h.Stack.Adapter().PortCost(incoming)
		h.Store.Insert(adv.Target, *d.Origin, adv.Cost)
	}
	if h.AutoForward {
		h.Stack.SendDatagram(d)
	}
}

// LinkFailureAdvertiserTask broadcasts a failure marker when its port
// disconnects.
type LinkFailureAdvertiserTask struct {
	Stack *StackEngine
}

// Execute implements PortDisconnectedTask.
func (t *LinkFailureAdvertiserTask) Execute(port PortNumber) {
	origin := Route{port}
	t.Stack.SendDatagram(Datagram{
		Payload: LinkFailureAdvertisement{},
		Origin:  &origin,
	})
}

// LinkFailureHandler prunes the store of any route starting with the
// advertised failed segment and re-floods the failure, deduplicating
// storms across cyclic topologies with a small salted bloom filter of
// already-forwarded origins — the same "salt + Add + Contains" idiom the
// teacher used for neighbor-set filtering, repurposed here.
type LinkFailureHandler struct {
	Store *Store
	Stack *StackEngine
	seen  *data.SaltedBloomFilter
}

// NewLinkFailureHandler builds a LinkFailureHandler with a fresh bloom
// filter sized for a modest number of distinct failure signatures per
// candidate lifetime.
func NewLinkFailureHandler(store *Store, stack *StackEngine, rnd *rand.Rand) *LinkFailureHandler {
	return &LinkFailureHandler{
		Store: store,
		Stack: stack,
		seen:  data.NewSaltedBloomFilter(rnd.Uint32(), 256, 0.01),
	}
}

// Handle implements MessageHandler.
func (h *LinkFailureHandler) Handle(d Datagram) {
	if d.Origin == nil {
		return
	}
	route := *d.Origin
	if !h.Store.HasRoutesStartingWith(route) {
		return
	}
	key := routeKey(route)
	if h.seen.Contains(key) {
		return
	}
	h.Store.RemoveRoutesStartingWith(route)
	h.seen.Add(key)
	h.Stack.SendFullBroadcast(Datagram{Payload: d.Payload, Origin: d.Origin})
}

func routeKey(route Route) []byte {
	buf := make([]byte, len(route)*8)
	for i, p := range route {
		binary.BigEndian.PutUint64(buf[i*8:], uint64(p))
	}
	return buf
}

// Searcher implements the optional demand-weighted route search (spec
// §4.5): it picks demanded targets weighted by the router's demand map
// using a prefix-sum plus binary search, exactly as the original
// _prepare_demand_pairs/_pick_random pair does.
type Searcher struct {
	Store       *Store
	Stack       *StackEngine
	Rnd         *rand.Rand
	pairs       []demandPair
	totalWeight float64
}

type demandPair struct {
	cumulative float64
	node       NodeID
}

// NewSearcher builds a Searcher over demand, which must contain every
// node the candidate knows about.
func NewSearcher(store *Store, stack *StackEngine, rnd *rand.Rand, demand map[NodeID]float64) *Searcher {
	ids := make([]NodeID, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	pairs := make([]demandPair, 0, len(ids))
	var acc float64
	for _, id := range ids {
		acc += demand[id]
		pairs = append(pairs, demandPair{cumulative: acc, node: id})
	}
	return &Searcher{Store: store, Stack: stack, Rnd: rnd, pairs: pairs, totalWeight: acc}
}

// Execute implements Task: broadcasts a search request for a
// demand-weighted random target.
func (s *Searcher) Execute() {
	target := s.pickDemanded()
	s.sendRequest(target, Route{})
}

func (s *Searcher) pickDemanded() NodeID {
	pos := s.Rnd.Float64() * s.totalWeight
	idx := sort.Search(len(s.pairs), func(i int) bool { return s.pairs[i].cumulative >= pos })
	if idx >= len(s.pairs) {
		idx = len(s.pairs) - 1
	}
	return s.pairs[idx].node
}

func (s *Searcher) sendRequest(target NodeID, origin Route) {
	s.Stack.SendDatagram(Datagram{
		Payload: RouteSearchMessage{Target: target},
		Origin:  &origin,
	})
}

// Handle implements MessageHandler: replies with a unicast advertisement
// if the store knows target, then re-broadcasts the request.
func (s *Searcher) Handle(d Datagram) {
	msg := d.Payload.(RouteSearchMessage)
	if s.Store.HasRoute(msg.Target) {
		route, cost, ok := s.Store.ShortestRoute(msg.Target)
		if ok {
			dest := (*d.Origin).Clone()
			s.Stack.SendDatagram(Datagram{
				Payload:     RouteAdvertisement{Target: msg.Target, Cost: cost},
				Origin:      &route,
				Destination: &dest,
			})
		}
	}
	s.sendRequest(msg.Target, *d.Origin)
}
