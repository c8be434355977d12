package httpcodec

import (
	"github.com/intuitivelabs/bytescase"
)

// ReadFlag configures tolerance and semantic-scanning behavior of a
// ReadContext. Flags are immutable for the duration of a parse — they are
// set once by the caller (typically via DefaultReadFlags()) and never
// mutated mid-message, per spec.md §9's "global mutable flag word" note.
type ReadFlag uint32

const (
	AllowOnlyN ReadFlag = 1 << iota
	AllowOnlyR

	RoughMethod
	RoughPath
	RoughRequestVersion
	RoughResponseVersion
	RoughStatusCode
	RoughStatusCodeLength
	RoughHeaderKey
	RoughHeaderValue

	AllowObsText

	NotTrimPreSpace
	NotTrimPostSpace

	NotScanBodyInfo
	NotScanConnectionHeader
	NotScanTrailerHeader

	SuspendOnChunked

	ConsistentChunkedContentLength
	ChunkedContentLengthAsChunked

	LegacyHTTP09

	NotStrictTrailer

	DeleteMethodHasBody

	AllowNoHost
)

// Has reports whether flag f is set.
func (c ReadFlag) Has(f ReadFlag) bool { return c&f != 0 }

// scratchKind discriminates what the two aliased scratch slots currently
// hold. spec.md §3 invariant 3 says at most one pair is live at a time,
// determined by state; here that determination is reified as a type tag
// instead of being left implicit in the state value (spec.md §9's
// "overloaded scratch fields" note).
type scratchKind uint8

const (
	scratchNone scratchKind = iota
	scratchHeaderKey
	scratchBodyCounters
	scratchStatusCode
)

// ReadContext is the resumable parse state for one HTTP/1.1 message. It is
// reused across messages on the same connection via Reset, which clears
// positions and semantic observations but preserves Flags.
type ReadContext struct {
	Flags ReadFlag

	state ReadState

	startPos   int
	suspendPos int
	resumable  bool

	httpMajor uint8
	httpMinor uint8

	bodyType      BodyType
	contentLength uint64

	kind    scratchKind
	scratch [2]uint64 // see scratchKind for interpretation

	hasHost        bool
	hasTrailer     bool
	hasClose       bool
	hasKeepAlive   bool
	requireNoBody  bool
	isServer       bool
	scanningReq    bool // scanning_request(): true while parsing a request

	lastContentLength    uint64
	lastContentLengthSet bool
}

// DefaultReadFlags returns the strict, RFC-conformant default: no lenient
// line terminators, full token validation, semantic scanning on, both
// hybrid-framing tolerance flags off (Open Question 1 in SPEC_FULL.md).
func DefaultReadFlags() ReadFlag { return 0 }

// Reset returns the context to Uninit, clearing all positions and
// semantic observations, but preserving Flags — the lifecycle spec.md §3
// describes for reuse across messages on one connection.
func (c *ReadContext) Reset() {
	flags := c.Flags
	*c = ReadContext{Flags: flags}
}

// State returns the current read state.
func (c *ReadContext) State() ReadState { return c.state }

// IsResumable reports whether the most recent suspension was recoverable.
func (c *ReadContext) IsResumable() bool { return c.resumable }

// SuspendPos returns the position recorded by the last SavePos/FailPos.
func (c *ReadContext) SuspendPos() int { return c.suspendPos }

// HTTPMajor and HTTPMinor return the parsed version, valid once the
// version token has been consumed (invariant 4).
func (c *ReadContext) HTTPMajor() uint8 { return c.httpMajor }
func (c *ReadContext) HTTPMinor() uint8 { return c.httpMinor }

// BodyType returns the body framing observed while scanning headers.
func (c *ReadContext) BodyType() BodyType { return c.bodyType }

// ContentLength returns the advertised Content-Length, valid when
// BodyType is BodyContentLength or BodyChunkedContentLength.
func (c *ReadContext) ContentLength() uint64 { return c.contentLength }

func (c *ReadContext) HasHost() bool       { return c.hasHost }
func (c *ReadContext) HasTrailer() bool    { return c.hasTrailer }
func (c *ReadContext) HasClose() bool      { return c.hasClose }
func (c *ReadContext) HasKeepAlive() bool  { return c.hasKeepAlive }
func (c *ReadContext) RequireNoBody() bool { return c.requireNoBody }

// ScanningRequest reports whether this context is parsing a request (as
// opposed to a response). Grounded on the original's scanning_request() /
// scan_request_ stored bit (read_context.h) — see DESIGN.md.
func (c *ReadContext) ScanningRequest() bool { return c.scanningReq }

// IsServer reports whether this context was prepared to parse a request
// (server role) as opposed to a response (client role).
func (c *ReadContext) IsServer() bool { return c.isServer }

// requireHost is computed, not stored, mirroring the original's
// require_host(): true only for HTTP/1.1 requests. See DESIGN.md.
func (c *ReadContext) requireHost() bool {
	return c.scanningReq && c.httpMajor == 1 && c.httpMinor == 1
}

// PrepareRead starts a fresh parse at initial if the context is Uninit; a
// context already mid-message is left untouched so resume is a no-op call
// into the same entry point.
func (c *ReadContext) PrepareRead(pos int, initial ReadState) {
	if c.state != StUninit {
		return
	}
	c.state = initial
	c.startPos = pos
	c.suspendPos = pos
	c.resumable = false
	if initial == StMethodInit {
		c.scanningReq = true
		c.isServer = true
	} else if initial == StResponseVersionInit {
		c.scanningReq = false
		c.isServer = false
	}
}

// ChangeState moves to a new state, resetting both tracked positions to
// pos — used whenever a sub-state completes cleanly (e.g. a field's EOL is
// consumed) so the next suspend/resume round trip has a fresh anchor.
func (c *ReadContext) ChangeState(next ReadState, pos int) {
	c.state = next
	c.startPos = pos
	c.suspendPos = pos
}

// SavePos records a recoverable suspension: the caller may supply more
// bytes and call the same operation again.
func (c *ReadContext) SavePos(pos int) {
	c.suspendPos = pos
	c.resumable = true
}

// FailPos records a fatal suspension: the caller must Reset before reusing
// this context.
func (c *ReadContext) FailPos(pos int) {
	c.suspendPos = pos
	c.resumable = false
}

// AdjustedOffset returns the smallest input-buffer index that can be
// discarded without invalidating state the context is holding — the key's
// start when a header key is saved, otherwise startPos.
func (c *ReadContext) AdjustedOffset() int {
	if isHeaderKeyReserved(c.state) && c.kind == scratchHeaderKey {
		return c.headerKeyStart()
	}
	return c.startPos
}

// AdjustOffsetToStart trims startPos, suspendPos, and any saved header-key
// range by AdjustedOffset() and returns the delta the caller must remove
// from the front of the input buffer.
func (c *ReadContext) AdjustOffsetToStart() int {
	delta := c.AdjustedOffset()
	if delta <= 0 {
		return 0
	}
	c.startPos -= delta
	c.suspendPos -= delta
	if c.kind == scratchHeaderKey {
		c.scratch[0] -= uint64(delta)
		c.scratch[1] -= uint64(delta)
	}
	return delta
}

// saveHeaderKey records the (start, end) range of a header key under
// parse, tagging the scratch slots as scratchHeaderKey.
func (c *ReadContext) saveHeaderKey(start, end int) {
	c.kind = scratchHeaderKey
	c.scratch[0] = uint64(start)
	c.scratch[1] = uint64(end)
}

func (c *ReadContext) headerKeyStart() int {
	if c.kind != scratchHeaderKey {
		return c.startPos
	}
	return int(c.scratch[0])
}

func (c *ReadContext) headerKeyEnd() int {
	if c.kind != scratchHeaderKey {
		return c.startPos
	}
	return int(c.scratch[1])
}

// setBodyCounters switches the scratch slots to the body-counter
// interpretation. Called once, at body_init, after the scratch slots are
// done holding header-key ranges for this message.
func (c *ReadContext) setBodyCounters(remainContentLength, remainChunkSize uint64) {
	c.kind = scratchBodyCounters
	c.scratch[0] = remainContentLength
	c.scratch[1] = remainChunkSize
}

func (c *ReadContext) saveRemainContentLength(n uint64) {
	c.kind = scratchBodyCounters
	c.scratch[0] = n
}

func (c *ReadContext) remainContentLength() uint64 {
	if c.kind != scratchBodyCounters {
		return 0
	}
	return c.scratch[0]
}

func (c *ReadContext) saveRemainChunkSize(n uint64) {
	c.kind = scratchBodyCounters
	c.scratch[1] = n
}

func (c *ReadContext) remainChunkSize() uint64 {
	if c.kind != scratchBodyCounters {
		return 0
	}
	return c.scratch[1]
}

// saveStatusCode stashes the parsed status code across a suspend between
// the status-code and reason-phrase tokens, so a resumed ParseStatusLine
// call can still report it without re-deriving it from the buffer.
func (c *ReadContext) saveStatusCode(code int) {
	c.kind = scratchStatusCode
	c.scratch[0] = uint64(code)
}

func (c *ReadContext) savedStatusCode() int {
	if c.kind != scratchStatusCode {
		return 0
	}
	return int(c.scratch[0])
}

// ScanMethod records that this message is a request and evaluates
// require_no_body for the scanned method range.
func (c *ReadContext) ScanMethod(buf []byte, span Span) {
	c.scanningReq = true
	m := span.Slice(buf)
	switch {
	case bytescase.CmpEq(m, []byte("GET")),
		bytescase.CmpEq(m, []byte("HEAD")),
		bytescase.CmpEq(m, []byte("OPTIONS")),
		bytescase.CmpEq(m, []byte("TRACE")):
		c.requireNoBody = true
	case bytescase.CmpEq(m, []byte("DELETE")):
		c.requireNoBody = !c.Flags.Has(DeleteMethodHasBody)
	}
}

// ScanStatusCode records that this message is a response and evaluates
// require_no_body for the scanned status code.
func (c *ReadContext) ScanStatusCode(code int) {
	c.scanningReq = false
	if (code >= 100 && code <= 199) || code == 204 || code == 304 {
		c.requireNoBody = true
	}
}

// ScanHTTPVersion stores the parsed version. Invariant 4: set exactly once
// per message; PrepareRead/Reset are the only ways to clear it.
func (c *ReadContext) ScanHTTPVersion(major, minor uint8) {
	c.httpMajor = major
	c.httpMinor = minor
}

var (
	hdrHost             = []byte("Host")
	hdrTrailer          = []byte("Trailer")
	hdrConnection       = []byte("Connection")
	hdrContentLength    = []byte("Content-Length")
	hdrTransferEncoding = []byte("Transfer-Encoding")
	tokChunked          = []byte("chunked")
	tokClose            = []byte("close")
	tokKeepAlive        = []byte("keep-alive")
)

// ScanHeader performs the semantic header scan described in spec.md §4.2:
// case-insensitively matches a small set of framing-relevant header names
// and updates the monotonic observation flags and body-type state machine.
// It returns a non-nil error when a framing invariant is violated (a
// conflicting Content-Length, or an incompatible Content-Length +
// Transfer-Encoding combination under the default strict policy).
func (c *ReadContext) ScanHeader(key, value []byte) error {
	if c.Flags.Has(NotScanBodyInfo) && c.Flags.Has(NotScanConnectionHeader) && c.Flags.Has(NotScanTrailerHeader) {
		return nil
	}

	if !c.Flags.Has(NotScanTrailerHeader) && bytescase.CmpEq(key, hdrTrailer) {
		c.hasTrailer = true
	}

	if !c.Flags.Has(NotScanBodyInfo) && bytescase.CmpEq(key, hdrHost) {
		c.hasHost = true
	}

	if !c.Flags.Has(NotScanConnectionHeader) && bytescase.CmpEq(key, hdrConnection) {
		for _, tok := range splitTokens(value) {
			switch {
			case bytescase.CmpEq(tok, tokClose):
				c.hasClose = true
			case bytescase.CmpEq(tok, tokKeepAlive):
				c.hasKeepAlive = true
			}
		}
	}

	if c.Flags.Has(NotScanBodyInfo) {
		return nil
	}

	if bytescase.CmpEq(key, hdrContentLength) {
		n, ok := parseDecimal(value)
		if !ok {
			return ErrInvalidContentLength
		}
		if c.lastContentLengthSet && c.lastContentLength != n {
			return ErrDuplicateContentLength
		}
		c.lastContentLength = n
		c.lastContentLengthSet = true
		c.contentLength = n
		switch c.bodyType {
		case BodyNoInfo:
			c.bodyType = BodyContentLength
		case BodyChunked:
			if err := c.resolveHybridFraming(); err != nil {
				return err
			}
		}
	}

	if bytescase.CmpEq(key, hdrTransferEncoding) {
		for _, tok := range splitTokens(value) {
			if bytescase.CmpEq(tok, tokChunked) {
				switch c.bodyType {
				case BodyNoInfo:
					c.bodyType = BodyChunked
				case BodyContentLength:
					if err := c.resolveHybridFraming(); err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

// resolveHybridFraming decides what happens when both Content-Length and
// Transfer-Encoding: chunked are observed on the same message — SPEC_FULL
// Open Question 1: reject by default, tolerate under explicit flags.
func (c *ReadContext) resolveHybridFraming() error {
	consistent := c.Flags.Has(ConsistentChunkedContentLength)
	asChunked := c.Flags.Has(ChunkedContentLengthAsChunked)
	if consistent && asChunked {
		return ErrInconsistentFlags
	}
	if !consistent && !asChunked {
		return ErrContentLengthWithTransferEncoding
	}
	if asChunked {
		c.bodyType = BodyChunked
		return nil
	}
	c.bodyType = BodyChunkedContentLength
	return nil
}

// IsKeepAlive implements the RFC 9112 §9.3 truth table described in
// spec.md §4.2/§6: HTTP/1.0 and earlier require an explicit keep-alive
// token; HTTP/1.1+ defaults to persistent unless `close` was observed.
func (c *ReadContext) IsKeepAlive(endOfMessage bool) bool {
	if !endOfMessage {
		return false
	}
	if c.hasClose {
		return false
	}
	if c.httpMajor > 1 || (c.httpMajor == 1 && c.httpMinor >= 1) {
		return true
	}
	return c.hasKeepAlive
}

// splitTokens splits a header value on commas and surrounding OWS, the
// shape Connection and Transfer-Encoding values take.
func splitTokens(value []byte) [][]byte {
	var toks [][]byte
	start := -1
	for i := 0; i <= len(value); i++ {
		if i < len(value) && value[i] != ',' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			toks = append(toks, trimOWS(value[start:i]))
			start = -1
		}
	}
	return toks
}

func trimOWS(b []byte) []byte {
	for len(b) > 0 && (b[0] == ' ' || b[0] == '\t') {
		b = b[1:]
	}
	for len(b) > 0 && (b[len(b)-1] == ' ' || b[len(b)-1] == '\t') {
		b = b[:len(b)-1]
	}
	return b
}

func parseDecimal(b []byte) (uint64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var n uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	return n, true
}
