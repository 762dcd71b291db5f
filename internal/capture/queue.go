// {{{ Copyright (c) bladeRF-power contributors, 2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package capture

import (
	"context"
	"sync"
	"time"
)

// Queue is the FIFO of Captures shared between the single capture-loop
// producer and the worker pool's consumers. Push never blocks - the
// capture thread must not stall waiting on workers - so the queue grows
// unbounded if workers fall behind; Pop busy-waits with a short sleep when
// empty, the same idiom the worker pool uses everywhere else it waits on
// shared state.
type Queue struct {
	mu    sync.Mutex
	items []*Capture
}

// NewQueue returns an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push enqueues c. Never blocks.
func (q *Queue) Push(c *Capture) {
	q.mu.Lock()
	q.items = append(q.items, c)
	q.mu.Unlock()
}

// TryPop removes and returns the oldest Capture, or (nil, false) if the
// queue is currently empty.
func (q *Queue) TryPop() (*Capture, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	c := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return c, true
}

// Pop blocks, busy-waiting in 1us increments, until a Capture is available
// or ctx is done.
func (q *Queue) Pop(ctx context.Context) (*Capture, error) {
	for {
		if c, ok := q.TryPop(); ok {
			return c, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Microsecond):
		}
	}
}

// Len reports the current queue depth, for the status renderer.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// vim: foldmethod=marker
