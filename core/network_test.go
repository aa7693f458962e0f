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

import "testing"

type recordingHandler struct {
	delivered []PortNumber
	dropped   []PortNumber
	onHandle  func(ingress PortNumber, msg Message)
}

func (h *recordingHandler) Handle(ingress PortNumber, msg Message) {
	h.delivered = append(h.delivered, ingress)
	if h.onHandle != nil {
		h.onHandle(ingress, msg)
	}
}

func (h *recordingHandler) OnDisconnected(port PortNumber) {
	h.dropped = append(h.dropped, port)
}

type stringMessage string

func (s stringMessage) Clone() Message { return s }

func TestConnectInstallsReversePair(t *testing.T) {
	n := NewNetwork(2, nil)
	n.Connect(0, 1, 3, 7)

	rec, ok := n.PortRecord(0, 0)
	if !ok || rec.TargetNode != 1 || rec.Cost != 3 {
		t.Fatalf("port (0,0) = %+v, ok=%v", rec, ok)
	}
	back, ok := n.PortRecord(1, rec.TargetPort)
	if !ok || back.TargetNode != 0 || back.Cost != 7 || back.TargetPort != 0 {
		t.Fatalf("reverse port = %+v, ok=%v", back, ok)
	}
}

func TestSendDrainsFIFOInOrder(t *testing.T) {
	n := NewNetwork(3, nil)
	n.Connect(0, 1, 1, 1)
	n.Connect(1, 2, 1, 1)

	var order []string
	h1 := &recordingHandler{}
	h1.onHandle = func(ingress PortNumber, msg Message) {
		order = append(order, "1:"+string(msg.(stringMessage)))
		// reentrant send during delivery — must be drained after the
		// current batch, not immediately.
		n.Adapters()[1].Send(1, stringMessage("reentrant"))
	}
	h2 := &recordingHandler{}
	h2.onHandle = func(ingress PortNumber, msg Message) {
		order = append(order, "2:"+string(msg.(stringMessage)))
	}
	n.Adapters()[1].RegisterHandler(h1)
	n.Adapters()[2].RegisterHandler(h2)

	n.Adapters()[0].Send(0, stringMessage("first"))

	want := []string{"1:first", "2:reentrant"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestDisconnectNotifiesBothSidesAfterRemoval(t *testing.T) {
	n := NewNetwork(2, nil)
	n.Connect(0, 1, 1, 1)

	h0 := &recordingHandler{}
	h1 := &recordingHandler{}
	n.Adapters()[0].RegisterHandler(h0)
	n.Adapters()[1].RegisterHandler(h1)

	n.Disconnect(0, 0)

	if _, ok := n.PortRecord(0, 0); ok {
		t.Errorf("port (0,0) still present after disconnect")
	}
	if _, ok := n.PortRecord(1, 0); ok {
		t.Errorf("port (1,0) still present after disconnect")
	}
	if len(h0.dropped) != 1 || len(h1.dropped) != 1 {
		t.Errorf("dropped notifications = %v / %v, want exactly one each", h0.dropped, h1.dropped)
	}
}

func TestExecuteStopsAtMissingPort(t *testing.T) {
	n := NewNetwork(2, nil)
	n.Connect(0, 1, 2, 2)

	landed, cost, ok := n.Execute(0, Route{0})
	if !ok || landed != 1 || cost != 2 {
		t.Fatalf("Execute = (%v, %v, %v), want (1, 2, true)", landed, cost, ok)
	}

	_, _, ok = n.Execute(0, Route{0, 5})
	if ok {
		t.Errorf("Execute over a nonexistent port reported ok=true")
	}
}
