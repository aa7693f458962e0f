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

// Package sim assembles candidates (network + routers) from JSON
// configuration and drives them through a tick/scrape experiment loop.
package sim

import (
	"encoding/json"
	"fmt"
	"os"
)

// NetworkConfig selects a graph-generation strategy and its parameters.
type NetworkConfig struct {
	Strategy         string  `json:"strategy"`
	NodeCount        int     `json:"node_count"`
	Density          float64 `json:"density"`
	Degree           int     `json:"degree"`
	Beta             float64 `json:"beta"`
	CostDistribution string  `json:"cost_distribution"`
}

// RandomRoutePropagationConfig configures the random-route propagator.
type RandomRoutePropagationConfig struct {
	CutoffRate float64 `json:"cutoff_rate"`
}

// ShortestRoutePropagationConfig configures the shortest-route propagator
// (currently parameterless, kept for symmetry with the other strategies
// and forward-compatible config shapes).
type ShortestRoutePropagationConfig struct{}

// PropagationConfig selects a propagator strategy (spec §4.4).
type PropagationConfig struct {
	Strategy    string                          `json:"strategy"`
	CutoffRate  float64                         `json:"cutoff_rate"`
	Random      *RandomRoutePropagationConfig   `json:"random"`
	Shortest    *ShortestRoutePropagationConfig `json:"shortest"`
	RandomRatio float64                         `json:"random_ratio"`
}

// StoreConfig selects the route store's cycle-guard variant.
type StoreConfig struct {
	EliminateCycles        bool `json:"eliminate_cycles"`
	EliminateCyclesEagerly bool `json:"eliminate_cycles_eagerly"`
}

// RoutingConfig is the router-factory configuration (spec §6).
type RoutingConfig struct {
	BroadcastForwardingRate float64            `json:"broadcast_forwarding_rate"`
	RandomWalkBroadcasting  bool               `json:"random_walk_broadcasting"`
	RoutePropagation        bool               `json:"route_propagation"`
	SelfPropagation         bool               `json:"self_propagation"`
	AutoForwardPropagations bool               `json:"auto_forward_propagations"`
	Searching               bool               `json:"searching"`
	AdvertiseLinkFailures   bool               `json:"advertise_link_failures"`
	Propagation             PropagationConfig  `json:"propagation"`
	Store                   StoreConfig        `json:"store"`
}

// CandidateConfig is one named candidate's full configuration.
type CandidateConfig struct {
	Network     NetworkConfig `json:"network"`
	Routing     RoutingConfig `json:"routing"`
	LinkFailRate float64      `json:"link_fail_rate"`
}

// MeasurementConfig governs the experiment driver's tick/scrape loop.
type MeasurementConfig struct {
	Steps   int `json:"steps"`
	Samples int `json:"samples"`
}

// Config is the top-level experiment configuration (spec §6): a set of
// named candidates, a single measurement schedule shared by all of them,
// and the list of metric names to scrape.
type Config struct {
	Candidates  map[string]CandidateConfig `json:"candidates"`
	Measurement MeasurementConfig          `json:"measurement"`
	Metrics     []string                   `json:"metrics"`
}

// ReadConfig loads and decodes a Config from a JSON file. Unknown keys
// are implementation-defined (spec §6) and silently ignored by
// encoding/json's default decoding.
func ReadConfig(fn string) (*Config, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		return nil, fmt.Errorf("sim: reading config %q: %w", fn, err)
	}
	cfg := new(Config)
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("sim: parsing config %q: %w", fn, err)
	}
	if cfg.Measurement.Steps <= 0 {
		return nil, fmt.Errorf("sim: config %q: measurement.steps must be positive", fn)
	}
	if cfg.Measurement.Samples <= 0 || cfg.Measurement.Samples > cfg.Measurement.Steps {
		return nil, fmt.Errorf("sim: config %q: measurement.samples must be in [1, steps]", fn)
	}
	return cfg, nil
}
