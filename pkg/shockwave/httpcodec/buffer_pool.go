package httpcodec

import (
	"sync"
	"sync/atomic"
)

// Buffer size classes for the input/output byte slices a Facade grows
// into. Sizes are powers of two, adapted from the teacher's
// shockwave.BufferPool (pkg/shockwave/buffer_pool.go) down to the two
// workloads this codec actually has: header blocks (small, a handful of
// KB) and bodies (can run much larger, hence the 32KB and 64KB classes).
// Requests above the 64KB class are allocated directly and not pooled.
const (
	bufClass2KB  = 2 * 1024
	bufClass8KB  = 8 * 1024
	bufClass32KB = 32 * 1024
	bufClass64KB = 64 * 1024
)

var bufClasses = [...]int{bufClass2KB, bufClass8KB, bufClass32KB, bufClass64KB}

// sizedPool is one size class's sync.Pool plus the gets/misses counters
// the teacher's sizedBufferPool tracks. Hits are derived as gets - misses
// (New increments misses; anything Get() returns without calling New is a
// reuse), the same derivation the teacher's comment in buffer_pool.go
// documents rather than tracking hits as a separate counter.
type sizedPool struct {
	size   int
	pool   sync.Pool
	gets   atomic.Uint64
	misses atomic.Uint64
}

func newSizedPool(size int) *sizedPool {
	sp := &sizedPool{size: size}
	sp.pool.New = func() any {
		sp.misses.Add(1)
		buf := make([]byte, 0, size)
		return &buf
	}
	return sp
}

func (sp *sizedPool) get() []byte {
	sp.gets.Add(1)
	bufPtr := sp.pool.Get().(*[]byte)
	return (*bufPtr)[:0]
}

func (sp *sizedPool) put(buf []byte) {
	if cap(buf) < sp.size {
		return
	}
	buf = buf[:0]
	sp.pool.Put(&buf)
}

// bufferPool is a size-classed []byte pool shared by every Facade's input
// and output buffers. A class serves any request at or below its size;
// requests larger than the top class allocate directly and are never
// pooled, matching the teacher's BufferPool.Get/Put fallback for
// oversized buffers.
type bufferPool struct {
	classes [len(bufClasses)]*sizedPool
}

func newBufferPool() *bufferPool {
	bp := &bufferPool{}
	for i, size := range bufClasses {
		bp.classes[i] = newSizedPool(size)
	}
	return bp
}

// get returns an empty []byte with capacity at least size.
func (bp *bufferPool) get(size int) []byte {
	for _, sp := range bp.classes {
		if size <= sp.size {
			return sp.get()
		}
	}
	return make([]byte, 0, size)
}

// put returns buf to the pool, if it belongs to one of the size classes.
func (bp *bufferPool) put(buf []byte) {
	c := cap(buf)
	for _, sp := range bp.classes {
		if c == sp.size {
			sp.put(buf)
			return
		}
	}
}

// snapshot reports cumulative hits/misses across all size classes, used by
// Metrics.ObserveBufferPool.
func (bp *bufferPool) snapshot() (hits, misses uint64) {
	for _, sp := range bp.classes {
		gets := sp.gets.Load()
		miss := sp.misses.Load()
		misses += miss
		if gets >= miss {
			hits += gets - miss
		}
	}
	return hits, misses
}

// globalBufferPool backs every Facade's input buffer growth (AddInput);
// the output buffer grows by plain append. ReleaseFacade returns both
// buffers to it when their capacity matches a size class.
var globalBufferPool = newBufferPool()
