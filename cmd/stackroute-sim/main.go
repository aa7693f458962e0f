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

package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"

	"stackroute/sim"
)

func main() {
	var (
		configPath string
		seed       int64
	)
	flag.StringVar(&configPath, "c", "experiment.json", "experiment configuration file")
	flag.Int64Var(&seed, "seed", 1, "random seed")
	flag.Parse()

	log.Println("Loading configuration...")
	cfg, err := sim.ReadConfig(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	emit := func(s sim.Sample) {
		if err := enc.Encode(s); err != nil {
			log.Fatalf("emit sample: %v", err)
		}
	}

	log.Println("Assembling candidates...")
	driver, err := sim.NewDriver(cfg, rand.New(rand.NewSource(seed)), emit)
	if err != nil {
		log.Fatalf("assembling driver: %v", err)
	}

	log.Println("Running experiment...")
	if err := driver.Run(); err != nil {
		log.Fatalf("run: %v", err)
	}
	log.Println("Done")
}
