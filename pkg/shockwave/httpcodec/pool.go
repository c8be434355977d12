package httpcodec

import "sync"

// facadePool recycles Facade instances across connections, the same
// sync.Pool-per-type shape the teacher's http11/pool.go uses for Request
// and ResponseWriter. A pooled Facade does not keep its buffers:
// ReleaseFacade hands them to the shared bufferPool and clears them.
var facadePool = sync.Pool{
	New: func() any { return &Facade{} },
}

// AcquireFacade gets a Facade from the pool (or allocates a fresh one) and
// applies the given flags. The returned Facade's buffers are empty and its
// contexts are Uninit.
func AcquireFacade(readFlags ReadFlag, writeFlags WriteFlag) *Facade {
	f := facadePool.Get().(*Facade)
	f.Read = ReadContext{Flags: readFlags}
	f.Write = WriteContext{Flags: writeFlags}
	f.input = f.input[:0]
	f.output = f.output[:0]
	f.Metrics = nil
	return f
}

// ReleaseFacade returns f's buffers to the shared bufferPool and f itself
// to the facade pool. The caller must not use f again afterward.
func ReleaseFacade(f *Facade) {
	if cap(f.input) > 0 {
		globalBufferPool.put(f.input[:0])
	}
	if cap(f.output) > 0 {
		globalBufferPool.put(f.output[:0])
	}
	f.input = nil
	f.output = nil
	facadePool.Put(f)
}
