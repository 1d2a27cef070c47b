/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package loop provides the single-threaded event loop that owns all board
// state. Timers never run their callbacks on their own goroutine: they post
// back onto the loop, so model, selection and gesture code needs no locks.
package loop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is a cancelable one-shot timer.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the timer
	// was still pending.
	Stop() bool
}

// Scheduler arms one-shot timers whose callbacks run on the owning loop.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Loop is a FIFO of callbacks drained by Run on the caller's goroutine.
// Post and AfterFunc are safe from any goroutine.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post enqueues fn to run on the loop.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

type loopTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (lt *loopTimer) Stop() bool {
	already := lt.stopped.Swap(true)
	return lt.t.Stop() && !already
}

// AfterFunc arms a timer that posts fn onto the loop after d. A Stop that
// races with the timer firing still suppresses fn.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if !lt.stopped.Load() {
				lt.stopped.Store(true)
				fn()
			}
		})
	})
	return lt
}

// Drain runs every callback queued so far, including ones queued by the
// callbacks themselves, and returns how many ran.
func (l *Loop) Drain() int {
	n := 0
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
			n++
		}
	}
}

// Run drains the queue until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Do runs fn on the loop and waits for it. It must not be called from the
// loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	l.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
