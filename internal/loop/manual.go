/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package loop

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler driven by Advance. Callbacks run on the
// goroutine calling Advance. It is not safe for concurrent use.
type Manual struct {
	now    time.Duration
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	m       *Manual
	due     time.Duration
	seq     int
	fn      func()
	pending bool
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, due: m.now + d, seq: m.seq, fn: fn, pending: true}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	was := t.pending
	t.pending = false
	t.m.prune()
	return was
}

// Now is the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration { return m.now }

// Pending returns the number of armed timers.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if t.pending {
			n++
		}
	}
	return n
}

// Advance moves virtual time forward by d and fires every timer that comes
// due, in deadline order. Timers armed by callbacks fire in the same call
// when their deadline falls inside the window.
func (m *Manual) Advance(d time.Duration) {
	end := m.now + d
	for {
		next := m.nextDue(end)
		if next == nil {
			break
		}
		m.now = next.due
		next.pending = false
		m.prune()
		next.fn()
	}
	m.now = end
}

func (m *Manual) nextDue(end time.Duration) *manualTimer {
	var due []*manualTimer
	for _, t := range m.timers {
		if t.pending && t.due <= end {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}

func (m *Manual) prune() {
	kept := m.timers[:0]
	for _, t := range m.timers {
		if t.pending {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(m.timers); i++ {
		m.timers[i] = nil
	}
	m.timers = kept
}
