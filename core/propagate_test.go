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
	"testing"
)

func TestRandomPortPickerFailsWithNoPorts(t *testing.T) {
	n := NewNetwork(1, nil)
	p := &RandomPortPicker{Rnd: rand.New(rand.NewSource(1))}
	if _, ok := p.Pick(n.Adapters()[0]); ok {
		t.Errorf("Pick on an adapter with no ports returned ok=true")
	}
}

func TestShortestRoutePickerUsesShortestRoute(t *testing.T) {
	s := NewStore(0, false, false, nil)
	s.Insert(1, Route{1}, 5)

	p := &ShortestRoutePicker{Rnd: rand.New(rand.NewSource(1))}
	target, route, cost, ok := p.Pick(s)
	if !ok {
		t.Fatalf("Pick: not ok")
	}
	if target != 0 && target != 1 {
		t.Fatalf("target = %v, want 0 or 1", target)
	}
	if target == 1 {
		if !Equal(route, Route{1}) || cost != 5 {
			t.Errorf("route/cost = %v/%v, want [1]/5", route, cost)
		}
	} else if len(route) != 0 || cost != 0 {
		t.Errorf("self route/cost = %v/%v, want []/0", route, cost)
	}
}

func TestAlternativePropagatorDelegates(t *testing.T) {
	n := NewNetwork(2, nil)
	n.Connect(0, 1, 1, 1)

	s := NewStore(0, false, false, nil)
	s.Insert(1, Route{0}, 1)

	first := NewCompositePropagator(&RandomPortPicker{Rnd: rand.New(rand.NewSource(1))}, &ShortestRoutePicker{Rnd: rand.New(rand.NewSource(1))})
	second := NewCompositePropagator(&RandomPortPicker{Rnd: rand.New(rand.NewSource(2))}, &ShortestRoutePicker{Rnd: rand.New(rand.NewSource(2))})

	alwaysFirst := &AlternativePropagator{First: first, Second: second, Ratio: 1, Rnd: rand.New(rand.NewSource(1))}
	if _, ok := alwaysFirst.Pick(s, n.Adapters()[0]); !ok {
		t.Errorf("alwaysFirst.Pick: not ok")
	}

	neverFirst := &AlternativePropagator{First: first, Second: second, Ratio: 0, Rnd: rand.New(rand.NewSource(1))}
	if _, ok := neverFirst.Pick(s, n.Adapters()[0]); !ok {
		t.Errorf("neverFirst.Pick: not ok")
	}
}
