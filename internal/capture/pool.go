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
	"sync"

	"github.com/staticfloat/bladeRF-power/internal/iq"
)

// BufferPool reuses iq.Samples buffers keyed by length, so repeated
// Count*fftLen-sample captures don't allocate on every pull. This is the
// same sync.Pool-backed idiom as hz.tools/sdr's SamplesPool, generalized to
// more than one buffer size since this program's capture size (Count)
// varies with how many integrations remain for the current frequency.
type BufferPool struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

// NewBufferPool returns an empty BufferPool.
func NewBufferPool() *BufferPool {
	return &BufferPool{pools: map[int]*sync.Pool{}}
}

func (p *BufferPool) poolFor(length int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pool, ok := p.pools[length]; ok {
		return pool
	}
	pool := &sync.Pool{
		New: func() interface{} {
			return iq.Make(length)
		},
	}
	p.pools[length] = pool
	return pool
}

// Get returns a buffer of exactly length samples, reused from the pool if
// one of that size is available.
func (p *BufferPool) Get(length int) iq.Samples {
	return p.poolFor(length).Get().(iq.Samples)
}

// Put returns buf to the pool for reuse by a future Get of the same length.
func (p *BufferPool) Put(buf iq.Samples) {
	p.poolFor(buf.Length()).Put(buf)
}

// vim: foldmethod=marker
