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

// Package core implements the route-discovery simulator's hard core: the
// network fabric, the per-node stack engine, the compressed route store,
// propagator strategies and the extensible router that composes them.
package core

import (
	"fmt"
	"math"
)

// NodeID identifies a node. It is dense, non-negative and stable for a
// candidate's lifetime — the network fabric assigns 0..node_count-1.
type NodeID int

func (n NodeID) String() string { return fmt.Sprintf("node-%d", int(n)) }

// PortNumber identifies a port on a single node. Port numbers are assigned
// monotonically by the fabric and are never reused after disconnection.
type PortNumber int

// Cost is a non-negative real-valued link or route cost. InfCost marks
// "no route".
type Cost float64

// InfCost is the cost sentinel meaning unreachable.
var InfCost = Cost(math.Inf(1))

// Route is an ordered sequence of ports, interpreted from a source node by
// following each port in turn. The empty route denotes "stay at source".
type Route []PortNumber

// Clone returns an independent copy of r.
func (r Route) Clone() Route {
	return Clone(r)
}

// IsPrefix reports whether short is a (not necessarily proper) prefix of long.
func IsPrefix(short, long Route) bool {
	if len(short) > len(long) {
		return false
	}
	for i := range short {
		if short[i] != long[i] {
			return false
		}
	}
	return true
}

// IsRealPrefix reports whether short is a proper prefix of long.
func IsRealPrefix(short, long Route) bool {
	return len(short) < len(long) && IsPrefix(short, long)
}
