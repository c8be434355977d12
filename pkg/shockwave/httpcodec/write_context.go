package httpcodec

import "github.com/intuitivelabs/bytescase"

// WriteFlag configures render-side tolerance, mirroring ReadFlag's shape
// (spec.md §4.3: "write-side flags mirror read-side flags for validation
// tightness plus toggles to allow malformed output for testing").
type WriteFlag uint32

const (
	WRoughHeaderKey WriteFlag = 1 << iota
	WRoughHeaderValue
	WAllowObsText
	WAllowBestEffortBody   // permit best_effort_body instead of erroring when no framing is given
	WAllowBestEffortKeepAlive // permit best_effort_body even when the connection is being kept alive
	WAllowContentLengthChunked // permit content_length_chunked_body instead of erroring
)

func (f WriteFlag) Has(g WriteFlag) bool { return f&g != 0 }

// WriteContext is the render-side mirror of ReadContext: it performs the
// same semantic scan (§4.2) on each emitted header field and, at
// end-of-headers, selects the next WriteState per the table in spec.md
// §4.3.
type WriteContext struct {
	Flags WriteFlag

	wstate WriteState

	httpMajor uint8
	httpMinor uint8

	scanningReq bool
	isServer    bool

	hasHost          bool
	hasTrailer       bool
	hasClose         bool
	hasKeepAlive     bool
	hasContentLength bool
	hasChunked       bool
	contentLength    uint64
	requireNoBody    bool

	remainContentLength uint64
}

// Reset returns the context to its zero render state, preserving Flags.
func (w *WriteContext) Reset() {
	flags := w.Flags
	*w = WriteContext{Flags: flags}
}

func (w *WriteContext) State() WriteState { return w.wstate }

func (w *WriteContext) HasClose() bool     { return w.hasClose }
func (w *WriteContext) HasKeepAlive() bool { return w.hasKeepAlive }

// ScanMethod mirrors ReadContext.ScanMethod for the render side: a
// WriteRequest call records direction, and GET, HEAD, OPTIONS and TRACE
// set the no-body policy. DELETE is always treated as body-bearing here;
// there is no write-side counterpart to DeleteMethodHasBody.
func (w *WriteContext) ScanMethod(method []byte) {
	w.scanningReq = true
	w.isServer = false
	switch {
	case bytescase.CmpEq(method, []byte("GET")),
		bytescase.CmpEq(method, []byte("HEAD")),
		bytescase.CmpEq(method, []byte("OPTIONS")),
		bytescase.CmpEq(method, []byte("TRACE")):
		w.requireNoBody = true
	}
}

// ScanStatusCode mirrors ReadContext.ScanStatusCode for the render side.
func (w *WriteContext) ScanStatusCode(code int) {
	w.scanningReq = false
	w.isServer = true
	if (code >= 100 && code <= 199) || code == 204 || code == 304 {
		w.requireNoBody = true
	}
}

// ScanHTTPVersion records the outgoing message's version.
func (w *WriteContext) ScanHTTPVersion(major, minor uint8) {
	w.httpMajor = major
	w.httpMinor = minor
}

// requireHost mirrors ReadContext.requireHost(): computed, not stored.
// The original's write_context.h hardcodes the end-of-message parameter
// to true when invoked for parsing — not applicable here since this is
// the render side, where require_host gates what the caller must supply,
// not what is enforced against incoming bytes.
func (w *WriteContext) requireHost() bool {
	return !w.isServer && w.httpMajor == 1 && w.httpMinor == 1
}

// ScanHeader performs the render-side semantic scan, updating the same
// class of observations ReadContext.ScanHeader does.
func (w *WriteContext) ScanHeader(key, value []byte) error {
	switch {
	case bytescase.CmpEq(key, hdrHost):
		w.hasHost = true
	case bytescase.CmpEq(key, hdrTrailer):
		w.hasTrailer = true
	case bytescase.CmpEq(key, hdrConnection):
		for _, tok := range splitTokens(value) {
			switch {
			case bytescase.CmpEq(tok, tokClose):
				w.hasClose = true
			case bytescase.CmpEq(tok, tokKeepAlive):
				w.hasKeepAlive = true
			}
		}
	case bytescase.CmpEq(key, hdrContentLength):
		n, ok := parseDecimal(value)
		if !ok {
			return ErrInvalidContentLength
		}
		w.hasContentLength = true
		w.contentLength = n
	case bytescase.CmpEq(key, hdrTransferEncoding):
		for _, tok := range splitTokens(value) {
			if bytescase.CmpEq(tok, tokChunked) {
				w.hasChunked = true
			}
		}
	}
	return nil
}

// SelectBodyState implements the table in spec.md §4.3, run once at
// end-of-headers to decide which body-writing state follows.
func (w *WriteContext) SelectBodyState() (WriteState, error) {
	switch {
	case w.requireNoBody:
		w.wstate = WEnd
		return w.wstate, nil

	case w.hasChunked && w.hasContentLength:
		if !w.Flags.Has(WAllowContentLengthChunked) {
			return w.fail(ErrContentLengthWithTransferEncoding)
		}
		w.remainContentLength = w.contentLength
		w.wstate = WContentLengthChunkedBody
		return w.wstate, nil

	case w.hasChunked:
		w.wstate = WChunkedBody
		return w.wstate, nil

	case w.hasContentLength && w.contentLength == 0:
		w.wstate = WEnd
		return w.wstate, nil

	case w.hasContentLength:
		w.remainContentLength = w.contentLength
		w.wstate = WContentLengthBody
		return w.wstate, nil

	default:
		if !w.Flags.Has(WAllowBestEffortBody) {
			return w.fail(ErrBodyInvalidState)
		}
		// A best-effort body has no length of its own, so keep-alive is
		// judged against the headers already rendered, not against
		// whether the body itself has ended.
		if w.IsKeepAlive(true) && !w.Flags.Has(WAllowBestEffortKeepAlive) {
			return w.fail(ErrBodyInvalidState)
		}
		w.wstate = WBestEffortBody
		return w.wstate, nil
	}
}

// fail moves the context into the sticky WFailed state (the REDESIGN
// extension documented in DESIGN.md) and returns a WriteError.
func (w *WriteContext) fail(err error) (WriteState, error) {
	w.wstate = WFailed
	return w.wstate, &WriteError{State: w.wstate, Err: err}
}

// IsKeepAlive mirrors ReadContext.IsKeepAlive for the render side.
func (w *WriteContext) IsKeepAlive(endOfMessage bool) bool {
	if !endOfMessage {
		return false
	}
	if w.hasClose {
		return false
	}
	if w.httpMajor > 1 || (w.httpMajor == 1 && w.httpMinor >= 1) {
		return true
	}
	return w.hasKeepAlive
}
