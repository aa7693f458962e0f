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
	"math/rand"
	"os"
	"testing"
)

func testConfig() *Config {
	return &Config{
		Candidates: map[string]CandidateConfig{
			"baseline": basicCandidateConfig(),
		},
		Measurement: MeasurementConfig{Steps: 10, Samples: 5},
		Metrics:     []string{"routability", "efficiency"},
	}
}

func TestDriverRunScrapesAtEveryIntervalPlusFinal(t *testing.T) {
	var samples []Sample
	d, err := NewDriver(testConfig(), rand.New(rand.NewSource(1)), func(s Sample) {
		samples = append(samples, s)
	})
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := d.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// steps=10, samples=5 -> interval=2 -> scrapes at step 0,2,4,6,8 (5)
	// plus one final scrape after the loop = 6.
	if len(samples) != 6 {
		t.Fatalf("got %d samples, want 6", len(samples))
	}
	for _, s := range samples {
		vals, ok := s.Candidates["baseline"]
		if !ok {
			t.Fatalf("sample missing candidate %q", "baseline")
		}
		if _, ok := vals["routability"]; !ok {
			t.Errorf("sample missing metric %q", "routability")
		}
	}
}

func TestDriverRejectsUnknownMetricName(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics = []string{"not_a_real_metric"}
	d, err := NewDriver(cfg, rand.New(rand.NewSource(1)), nil)
	if err != nil {
		t.Fatalf("NewDriver: %v", err)
	}
	if err := d.Run(); err == nil {
		t.Errorf("Run with an unknown metric name returned no error")
	}
}

func TestReadConfigRejectsInvalidMeasurementWindow(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.json"
	bad := `{"candidates":{},"measurement":{"steps":0,"samples":1},"metrics":[]}`
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatalf("os.WriteFile: %v", err)
	}
	if _, err := ReadConfig(path); err == nil {
		t.Errorf("ReadConfig with steps=0 returned no error")
	}
}
