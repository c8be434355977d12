package httpcodec

// Span is a byte range `(Start, End)` into a buffer the caller owns. A Span
// is only valid against the buffer it was produced from, and only until
// that buffer is trimmed by Facade.AdjustInput — see the Adjusted Offset
// contract on ReadContext.
type Span struct {
	Start, End int
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Slice resolves the span against buf.
func (s Span) Slice(buf []byte) []byte { return buf[s.Start:s.End] }

// RangeSink receives a zero-copy view during parsing: buf is the buffer the
// codec is currently scanning and span locates the field within it. The
// sink must not retain buf past the call if the caller may later trim or
// reuse the underlying storage.
type RangeSink interface {
	AcceptRange(buf []byte, span Span)
}

// KVSink receives a resolved header or trailer field as a pair of byte
// slices. Unlike RangeSink, the codec itself decides when a (key, value)
// pair is complete — after trimming and semantic scanning — so a KVSink is
// the right shape for header/trailer callbacks, while RangeSink fits the
// request-line token-at-a-time shape.
type KVSink interface {
	AcceptKV(key, value []byte)
}

// RangeSinkFunc adapts a plain function to RangeSink.
type RangeSinkFunc func(buf []byte, span Span)

// AcceptRange implements RangeSink.
func (f RangeSinkFunc) AcceptRange(buf []byte, span Span) { f(buf, span) }

// KVSinkFunc adapts a plain function to KVSink.
type KVSinkFunc func(key, value []byte)

// AcceptKV implements KVSink.
func (f KVSinkFunc) AcceptKV(key, value []byte) { f(key, value) }

// DiscardRangeSink ignores every range it receives; useful when a caller
// needs the parser to run past a token (e.g. a path) without collecting it.
var DiscardRangeSink RangeSink = RangeSinkFunc(func([]byte, Span) {})

// DiscardKVSink ignores every (key, value) pair, for callers that need a
// header or trailer block parsed without collecting its fields.
var DiscardKVSink KVSink = KVSinkFunc(func([]byte, []byte) {})
