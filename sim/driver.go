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
)

// Sample is one scrape's result across every candidate (spec §6's
// external sample record).
type Sample struct {
	Candidates map[string]map[string]float64 `json:"candidates"`
}

// SampleFunc receives each Sample as it is produced.
type SampleFunc func(Sample)

// Driver holds the named candidates of one experiment, the tick/scrape
// schedule, and the metric names to report (spec §4.7).
type Driver struct {
	names      []string
	candidates map[string]*Candidate
	steps      int
	interval   int
	metrics    []string
	emit       SampleFunc
}

// NewDriver assembles every candidate named in cfg.Candidates, sharing
// one random source across the whole experiment so a single seed
// reproduces the entire run bit-for-bit (spec §5).
func NewDriver(cfg *Config, rnd *rand.Rand, emit SampleFunc) (*Driver, error) {
	names := make([]string, 0, len(cfg.Candidates))
	for name := range cfg.Candidates {
		names = append(names, name)
	}
	sort.Strings(names)

	candidates := make(map[string]*Candidate, len(names))
	for _, name := range names {
		c, err := CreateCandidate(cfg.Candidates[name], rnd)
		if err != nil {
			return nil, fmt.Errorf("sim: assembling candidate %q: %w", name, err)
		}
		candidates[name] = c
	}

	interval := cfg.Measurement.Steps / cfg.Measurement.Samples
	if interval <= 0 {
		interval = 1
	}

	return &Driver{
		names:      names,
		candidates: candidates,
		steps:      cfg.Measurement.Steps,
		interval:   interval,
		metrics:    cfg.Metrics,
		emit:       emit,
	}, nil
}

// Run executes the tick/scrape loop (spec §4.7): scrape on every interval
// boundary (including step 0), tick every candidate, then scrape once
// more after the loop exits.
func (d *Driver) Run() error {
	for step := 0; step < d.steps; step++ {
		if step%d.interval == 0 {
			if err := d.scrape(); err != nil {
				return err
			}
		}
		d.tick()
	}
	return d.scrape()
}

func (d *Driver) tick() {
	for _, name := range d.names {
		d.candidates[name].Tick()
	}
}

func (d *Driver) scrape() error {
	sample := Sample{Candidates: make(map[string]map[string]float64, len(d.names))}
	for _, name := range d.names {
		values, err := d.candidates[name].ScrapeMetrics(d.metrics)
		if err != nil {
			return fmt.Errorf("sim: scraping candidate %q: %w", name, err)
		}
		sample.Candidates[name] = values
	}
	if d.emit != nil {
		d.emit(sample)
	}
	return nil
}
