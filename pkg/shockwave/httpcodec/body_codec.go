package httpcodec

// ReadBody drives the body sub-state-machine described in spec.md §4.5.
// bodySink receives body-content ranges; extSink (may be DiscardRangeSink)
// receives chunk-extension ranges when body_type is one of the chunked
// modes. The returned BodyResult distinguishes a clean end (BodyFull), an
// unframed best-effort read (BodyBestEffort), and "call again with more
// bytes" (BodyIncomplete, err == nil). A non-nil err is always fatal.
func ReadBody(rc *ReadContext, sc *Scanner, bodySink, extSink RangeSink) (BodyResult, error) {
	if rc.state == StBodyInit {
		switch rc.bodyType {
		case BodyContentLength:
			rc.setBodyCounters(rc.ContentLength(), 0)
			rc.ChangeState(StBodyContentLength, sc.Pos())
		case BodyChunked:
			rc.ChangeState(StBodyChunkedSize, sc.Pos())
		case BodyChunkedContentLength:
			rc.setBodyCounters(rc.ContentLength(), 0)
			rc.ChangeState(StBodyChunkedSize, sc.Pos())
		default:
			// BodyNoInfo stays parked at StBodyInit across calls: there is
			// no framed end, only "connection closed", which is outside
			// this codec's contract (§5).
		}
	}

	switch {
	case rc.bodyType == BodyNoInfo:
		return readBodyNoInfo(rc, sc, bodySink)
	case rc.state == StBodyEnd:
		return BodyFull, nil
	case rc.bodyType == BodyContentLength:
		return readBodyContentLength(rc, sc, bodySink)
	default: // BodyChunked, BodyChunkedContentLength
		return readBodyChunked(rc, sc, bodySink, extSink)
	}
}

func readBodyNoInfo(rc *ReadContext, sc *Scanner, bodySink RangeSink) (BodyResult, error) {
	sc.Backto(rc.startPos)
	if sc.Remain() == 0 {
		return BodyBestEffort, nil
	}
	span := Span{sc.Pos(), sc.Len()}
	bodySink.AcceptRange(sc.buf, span)
	rc.ChangeState(StBodyInit, sc.Len())
	return BodyBestEffort, nil
}

func readBodyContentLength(rc *ReadContext, sc *Scanner, bodySink RangeSink) (BodyResult, error) {
	sc.Backto(rc.startPos)
	remain := rc.remainContentLength()
	avail := uint64(sc.Remain())
	n := remain
	if avail < n {
		n = avail
	}
	if n > 0 {
		span := Span{sc.Pos(), sc.Pos() + int(n)}
		bodySink.AcceptRange(sc.buf, span)
		rc.saveRemainContentLength(remain - n)
	}
	next := sc.Pos() + int(n)
	if remain-n == 0 {
		rc.ChangeState(StBodyEnd, next)
		return BodyFull, nil
	}
	rc.SavePos(next)
	return BodyIncomplete, nil
}

// readBodyChunked implements both `chunked` and `chunked_content_length`
// (spec.md §4.5); the latter additionally tracks remainContentLength and
// checks it at each chunk boundary and at the terminal chunk.
func readBodyChunked(rc *ReadContext, sc *Scanner, bodySink, extSink RangeSink) (BodyResult, error) {
	hybrid := rc.bodyType == BodyChunkedContentLength

	for {
		switch rc.state {
		case StBodyChunkedSize:
			sc.Backto(rc.startPos)
			end, size, ok, needMore := scanChunkSize(sc, rc.startPos)
			if needMore {
				rc.SavePos(sc.Len())
				return BodyIncomplete, nil
			}
			if !ok {
				rc.FailPos(end)
				return 0, &ReadError{State: rc.state, Pos: end, BodyErr: ErrBadLine}
			}
			if hybrid && size > rc.remainContentLength() {
				rc.FailPos(end)
				return 0, &ReadError{State: rc.state, Pos: end, BodyErr: ErrLengthMismatch}
			}
			rc.saveRemainChunkSize(size)
			rc.ChangeState(StBodyChunkedExtensionInit, end)
			continue

		case StBodyChunkedExtensionInit:
			sc.Backto(rc.startPos)
			p := rc.startPos
			for p < sc.Len() && (sc.buf[p] == ' ' || sc.buf[p] == '\t') {
				p++
			}
			if p == sc.Len() {
				rc.SavePos(sc.Len())
				return BodyIncomplete, nil
			}
			if sc.buf[p] == ';' {
				rc.ChangeState(StBodyChunkedExtension, p+1)
				continue
			}
			if p != rc.startPos {
				// BWS preceded a non-';' byte: bad_space per spec.md §4.5 step 2.
				rc.FailPos(p)
				return 0, &ReadError{State: rc.state, Pos: p, BodyErr: ErrBadSpace}
			}
			rc.ChangeState(StBodyChunkedSizeEOL1, p)
			continue

		case StBodyChunkedExtension:
			eol := findLineEnd(sc, rc.startPos, rc.Flags)
			if !eol.found {
				rc.SavePos(sc.Len())
				return BodyIncomplete, nil
			}
			extSink.AcceptRange(sc.buf, Span{rc.startPos, eol.lineStart})
			rc.ChangeState(StBodyChunkedDataInit, eol.next)
			continue

		case StBodyChunkedSizeEOL1:
			eol := findLineEnd(sc, rc.startPos, rc.Flags)
			if !eol.found {
				rc.SavePos(sc.Len())
				return BodyIncomplete, nil
			}
			rc.ChangeState(StBodyChunkedDataInit, eol.next)
			continue

		case StBodyChunkedDataInit:
			size := rc.remainChunkSize()
			if size == 0 {
				if hybrid && rc.remainContentLength() != 0 {
					rc.FailPos(rc.startPos)
					return 0, &ReadError{State: rc.state, Pos: rc.startPos, BodyErr: ErrLengthMismatch}
				}
				if rc.hasTrailer || rc.Flags.Has(NotStrictTrailer) {
					rc.ChangeState(StTrailerInit, rc.startPos)
					return BodyIncomplete, nil // caller must now drive ParseTrailerBlock
				}
				eol := findLineEnd(sc, rc.startPos, rc.Flags)
				if !eol.found {
					rc.SavePos(sc.Len())
					return BodyIncomplete, nil
				}
				rc.ChangeState(StBodyEnd, eol.next)
				return BodyFull, nil
			}
			rc.ChangeState(StBodyChunkedData, rc.startPos)
			continue

		case StBodyChunkedData:
			sc.Backto(rc.startPos)
			remain := rc.remainChunkSize()
			avail := uint64(sc.Remain())
			n := remain
			if avail < n {
				n = avail
			}
			if n > 0 {
				bodySink.AcceptRange(sc.buf, Span{sc.Pos(), sc.Pos() + int(n)})
			}
			next := sc.Pos() + int(n)
			rc.saveRemainChunkSize(remain - n)
			if hybrid {
				rc.saveRemainContentLength(rc.remainContentLength() - n)
			}
			if remain-n > 0 {
				rc.SavePos(next)
				return BodyIncomplete, nil
			}
			rc.ChangeState(StBodyChunkedDataEOL1, next)
			if rc.Flags.Has(SuspendOnChunked) {
				return BodyIncomplete, nil
			}
			continue

		case StBodyChunkedDataEOL1:
			eol := findLineEnd(sc, rc.startPos, rc.Flags)
			if !eol.found {
				rc.SavePos(sc.Len())
				return BodyIncomplete, nil
			}
			rc.ChangeState(StBodyChunkedSize, eol.next)
			continue

		default:
			rc.FailPos(sc.Pos())
			return 0, &ReadError{State: rc.state, Pos: sc.Pos(), BodyErr: ErrBodyInvalidState}
		}
	}
}

// scanChunkSize parses the hex chunk-size token at pos, stopping at the
// first byte that is not a hex digit (the caller inspects what follows to
// decide between `;ext` and the line terminator).
func scanChunkSize(sc *Scanner, pos int) (end int, size uint64, ok bool, needMore bool) {
	p := pos
	for p < sc.Len() {
		b := sc.buf[p]
		v, isHex := hexVal(b)
		if !isHex {
			break
		}
		size = size<<4 | uint64(v)
		p++
	}
	if p == pos {
		if p == sc.Len() {
			return p, 0, false, true
		}
		return p, 0, false, false
	}
	if p == sc.Len() {
		// Could be mid-token if more digits are about to arrive; a
		// trailing hex run with nothing after it is ambiguous, so ask
		// for more bytes.
		return p, 0, false, true
	}
	return p, size, true, false
}

func hexVal(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	default:
		return 0, false
	}
}

// WriteBody appends one chunk or content-length slice of body data per
// spec.md §4.5's "Writing" section. It takes no end-of-body flag: a
// content-length body moves to WEnd once its declared length has been
// written, and a chunked body is closed by WriteEndOfChunk.
func WriteBody(wc *WriteContext, out *[]byte, data []byte) error {
	switch wc.wstate {
	case WBestEffortBody:
		*out = append(*out, data...)
		return nil

	case WContentLengthBody, WContentLengthChunkedBody:
		if uint64(len(data)) > wc.remainContentLength {
			wc.wstate = WFailed
			return &WriteError{State: wc.wstate, Err: ErrLengthMismatch}
		}
		if wc.wstate == WContentLengthChunkedBody {
			appendChunk(out, data, nil)
		} else {
			*out = append(*out, data...)
		}
		wc.remainContentLength -= uint64(len(data))
		if wc.remainContentLength == 0 && wc.wstate == WContentLengthBody {
			wc.wstate = WEnd
		}
		return nil

	case WChunkedBody:
		appendChunk(out, data, nil)
		return nil

	default:
		wc.wstate = WFailed
		return &WriteError{State: wc.wstate, Err: ErrBodyInvalidState}
	}
}

// WriteEndOfChunk writes the terminal zero-size chunk. If expectTrailer is
// true it transitions to WTrailer so the caller must follow with trailer
// fields and a final CRLF; otherwise it writes the closing CRLF itself and
// transitions to WEnd.
func WriteEndOfChunk(wc *WriteContext, out *[]byte, expectTrailer bool) error {
	switch wc.wstate {
	case WChunkedBody, WContentLengthChunkedBody:
		if wc.wstate == WContentLengthChunkedBody && wc.remainContentLength != 0 {
			wc.wstate = WFailed
			return &WriteError{State: wc.wstate, Err: ErrLengthMismatch}
		}
		*out = append(*out, '0', '\r', '\n')
		if expectTrailer {
			wc.wstate = WTrailer
			return nil
		}
		*out = append(*out, '\r', '\n')
		wc.wstate = WEnd
		return nil
	default:
		wc.wstate = WFailed
		return &WriteError{State: wc.wstate, Err: ErrBodyInvalidState}
	}
}

// WriteTrailer emits one trailer field; the caller signals the end of
// trailers by calling WriteTrailerEnd.
func WriteTrailer(wc *WriteContext, out *[]byte, key, value []byte) error {
	if wc.wstate != WTrailer {
		wc.wstate = WFailed
		return &WriteError{State: wc.wstate, Err: ErrBodyInvalidState}
	}
	*out = append(*out, key...)
	*out = append(*out, ':', ' ')
	*out = append(*out, value...)
	*out = append(*out, '\r', '\n')
	return nil
}

// WriteTrailerEnd emits the final blank line after a trailer block.
func WriteTrailerEnd(wc *WriteContext, out *[]byte) error {
	if wc.wstate != WTrailer {
		wc.wstate = WFailed
		return &WriteError{State: wc.wstate, Err: ErrBodyInvalidState}
	}
	*out = append(*out, '\r', '\n')
	wc.wstate = WEnd
	return nil
}

const hexDigits = "0123456789abcdef"

func appendChunk(out *[]byte, data []byte, ext []byte) {
	size := len(data)
	var hdr [20]byte
	i := len(hdr)
	if size == 0 {
		i--
		hdr[i] = '0'
	} else {
		for size > 0 {
			i--
			hdr[i] = hexDigits[size&0xf]
			size >>= 4
		}
	}
	*out = append(*out, hdr[i:]...)
	if len(ext) > 0 {
		*out = append(*out, ';')
		*out = append(*out, ext...)
	}
	*out = append(*out, '\r', '\n')
	*out = append(*out, data...)
	*out = append(*out, '\r', '\n')
}
