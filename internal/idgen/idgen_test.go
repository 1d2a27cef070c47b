/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package idgen

import (
	"strings"
	"testing"
)

func TestNewHasPrefixAndLength(t *testing.T) {
	id, err := New(GesturePrefix)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !strings.HasPrefix(id, GesturePrefix) {
		t.Fatalf("id %q lacks prefix", id)
	}
	if got := len(id) - len(GesturePrefix); got != Length {
		t.Fatalf("random part length = %d, want %d", got, Length)
	}
	for _, r := range strings.TrimPrefix(id, GesturePrefix) {
		if !strings.ContainsRune(alphabet, r) {
			t.Fatalf("unexpected rune %q in %q", r, id)
		}
	}
}

func TestNewIsUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 500; i++ {
		id := MustNew(SavePrefix)
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}
