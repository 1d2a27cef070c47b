/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"strings"
	"testing"

	"plotboard/internal/diagram"
	"plotboard/internal/geom"
)

func TestEncodeFormat(t *testing.T) {
	s := Snapshot{ViewID: 3, Positions: map[diagram.NodeID]geom.Pt{2: {X: 10, Y: 20.5}, 1: {X: -4, Y: 0}}}
	b, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := `{"characters":{"1":{"x":-4,"y":0},"2":{"x":10,"y":20.5}}}`
	if string(b) != want {
		t.Fatalf("Encode = %s, want %s", b, want)
	}
}

func TestRoundTrip(t *testing.T) {
	s := Snapshot{ViewID: 9, Positions: map[diagram.NodeID]geom.Pt{
		1:  {X: 100.125, Y: 350},
		42: {X: -0.1, Y: 1e6},
		7:  {X: 1.0 / 3.0, Y: 2.0 / 3.0},
	}}
	b, err := Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(9, b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !Equal(s, got, 1e-9) {
		t.Fatalf("round trip mismatch: %+v vs %+v", s.Positions, got.Positions)
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "{}", "null", `{"characters":{}}`} {
		s, err := Decode(1, []byte(in))
		if err != nil {
			t.Fatalf("Decode(%q): %v", in, err)
		}
		if len(s.Positions) != 0 {
			t.Fatalf("Decode(%q) = %v, want empty", in, s.Positions)
		}
	}
}

func TestDecodeRejectsBadData(t *testing.T) {
	cases := []string{
		`{"characters":{"abc":{"x":1,"y":2}}}`,
		`{"characters":{"1":{"x":"1","y":2}}}`,
		`{"characters":{"1":{"x":1}}}`,
		`[1,2,3]`,
		`{"characters":`,
	}
	for _, in := range cases {
		if _, err := Decode(1, []byte(in)); !errors.Is(err, ErrInvalidSnapshot) {
			t.Fatalf("Decode(%s) err = %v, want ErrInvalidSnapshot", in, err)
		}
	}
}

func TestDecodeKeepsExtraTopLevelKeys(t *testing.T) {
	s, err := Decode(1, []byte(`{"characters":{"5":{"x":1,"y":2}},"zoom":1.5}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Positions[5] != (geom.Pt{X: 1, Y: 2}) {
		t.Fatalf("Positions = %v", s.Positions)
	}
}

func TestEncodeRejectsNaN(t *testing.T) {
	var zero float64
	s := Snapshot{Positions: map[diagram.NodeID]geom.Pt{1: {X: zero / zero}}}
	if _, err := Encode(s); err == nil || !strings.Contains(err.Error(), "node 1") {
		t.Fatalf("err = %v", err)
	}
}

func TestCaptureAndApply(t *testing.T) {
	m := diagram.NewModel()
	_ = m.AddNode(1, diagram.CardData{}, geom.Pt{X: 5, Y: 6})
	_ = m.AddNode(2, diagram.CardData{}, geom.Pt{X: 7, Y: 8})
	s := Capture(4, m)
	_ = m.MoveNode(1, geom.Pt{X: 500, Y: 500})
	m.ApplyLayout(s.Positions)
	if !Equal(s, Capture(4, m), 0) {
		t.Fatalf("apply did not restore captured positions")
	}
}

func TestGridArrangement(t *testing.T) {
	ids := []diagram.NodeID{11, 12, 13, 14, 15}
	got := GridArrangement(ids)
	// five nodes: two columns
	want := map[diagram.NodeID]geom.Pt{
		11: {X: 100, Y: 100}, 12: {X: 300, Y: 100},
		13: {X: 100, Y: 350}, 14: {X: 300, Y: 350},
		15: {X: 100, Y: 600},
	}
	for id, p := range want {
		if got[id] != p {
			t.Fatalf("GridArrangement[%d] = %+v, want %+v", id, got[id], p)
		}
	}
	if one := GridArrangement([]diagram.NodeID{1}); one[1] != (geom.Pt{X: 100, Y: 100}) {
		t.Fatalf("single node = %+v", one[1])
	}
	if len(GridArrangement(nil)) != 0 {
		t.Fatalf("empty arrangement should be empty")
	}
}
