package httpcodec

// ParseHeaderBlock parses zero or more header field lines followed by the
// terminating blank line, delivering each (key, value) pair to sink. On
// the terminating CRLF it transitions to StBodyInit and enforces the Host
// requirement (spec.md §4.4: "require_host && !has_host && !allow_no_host
// ⇒ no_host").
func ParseHeaderBlock(rc *ReadContext, sc *Scanner, sink KVSink) error {
	return parseFieldBlock(rc, sc, sink, false)
}

// ParseTrailerBlock is ParseHeaderBlock's trailer-phase counterpart: same
// grammar, but the terminating blank line transitions to StBodyEnd and
// there is no Host check.
func ParseTrailerBlock(rc *ReadContext, sc *Scanner, sink KVSink) error {
	return parseFieldBlock(rc, sc, sink, true)
}

func parseFieldBlock(rc *ReadContext, sc *Scanner, sink KVSink, trailer bool) error {
	initState, keyState, colonState, preSpaceState, valueState, _ :=
		fieldStates(trailer)

	if rc.state == StUninit {
		rc.PrepareRead(sc.Pos(), initState)
	}

	for {
		switch rc.state {
		case initState:
			eol := findLineEnd(sc, rc.startPos, rc.Flags)
			// A blank line is just CRLF at the current position; distinguish
			// "blank line here" from "a key starts here" by checking
			// whether the terminator begins exactly at startPos.
			if eol.found && eol.lineStart == rc.startPos {
				return finishFieldBlock(rc, sc, eol.next, trailer)
			}
			// Nothing after startPos, or only a lone CR that may still be
			// the start of the blank line: wait for more bytes.
			if rest := sc.Len() - rc.startPos; !eol.found && (rest == 0 || (rest == 1 && sc.buf[rc.startPos] == '\r')) {
				rc.SavePos(sc.Len())
				return &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrNoData, Resumable: true}
			}
			rc.ChangeState(keyState, rc.startPos)
			continue

		case keyState:
			sc.Backto(rc.startPos)
			colonIdx := sc.IndexByte(':')
			if colonIdx < 0 {
				rc.SavePos(sc.Len())
				return &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrInvalidHeaderKey, Resumable: true}
			}
			keySpan := Span{rc.startPos, colonIdx}
			if !validateHeaderKey(keySpan.Slice(sc.buf), rc.Flags.Has(RoughHeaderKey)) {
				rc.FailPos(colonIdx)
				return &ReadError{State: rc.state, Pos: colonIdx, HeaderErr: ErrInvalidHeaderKey}
			}
			rc.saveHeaderKey(rc.startPos, colonIdx)
			rc.ChangeState(colonState, colonIdx+1)
			continue

		case colonState:
			rc.ChangeState(preSpaceState, rc.startPos)
			continue

		case preSpaceState:
			p := rc.startPos
			if !rc.Flags.Has(NotTrimPreSpace) {
				for p < sc.Len() && (sc.buf[p] == ' ' || sc.buf[p] == '\t') {
					p++
				}
				if p == sc.Len() {
					rc.SavePos(sc.Len())
					return &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrNoData, Resumable: true}
				}
			}
			rc.ChangeState(valueState, p)
			continue

		case valueState:
			eol := findLineEnd(sc, rc.startPos, rc.Flags)
			if !eol.found {
				rc.SavePos(sc.Len())
				return &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrInvalidHeaderValue, Resumable: true}
			}
			valueEnd := eol.lineStart
			valueStart := rc.startPos
			if !rc.Flags.Has(NotTrimPostSpace) {
				for valueEnd > valueStart && (sc.buf[valueEnd-1] == ' ' || sc.buf[valueEnd-1] == '\t') {
					valueEnd--
				}
			}
			valueSpan := Span{valueStart, valueEnd}
			if !validateHeaderValue(valueSpan.Slice(sc.buf), rc.Flags) {
				rc.FailPos(eol.lineStart)
				return &ReadError{State: rc.state, Pos: eol.lineStart, HeaderErr: ErrInvalidHeaderValue}
			}

			key := sc.buf[rc.headerKeyStart():rc.headerKeyEnd()]
			value := valueSpan.Slice(sc.buf)

			if err := rc.ScanHeader(key, value); err != nil {
				rc.FailPos(eol.lineStart)
				return &ReadError{State: rc.state, Pos: eol.lineStart, HeaderErr: err}
			}
			sink.AcceptKV(key, value)

			rc.ChangeState(initState, eol.next)
			continue

		default:
			rc.FailPos(sc.Pos())
			return &ReadError{State: rc.state, Pos: sc.Pos(), HeaderErr: ErrInvalidState}
		}
	}
}

func fieldStates(trailer bool) (init, key, colon, preSpace, value, lastEOL ReadState) {
	if trailer {
		return StTrailerInit, StTrailerKey, StTrailerColon, StTrailerPreSpace, StTrailerValue, StTrailerLastEOL2
	}
	return StHeaderInit, StHeaderKey, StHeaderColon, StHeaderPreSpace, StHeaderValue, StHeaderLastEOL2
}

func finishFieldBlock(rc *ReadContext, sc *Scanner, next int, trailer bool) error {
	if trailer {
		rc.ChangeState(StBodyEnd, next)
		return nil
	}
	if rc.requireHost() && !rc.hasHost && !rc.Flags.Has(AllowNoHost) {
		rc.FailPos(next)
		return &ReadError{State: rc.state, Pos: next, HeaderErr: ErrNoHost}
	}
	rc.ChangeState(StBodyInit, next)
	return nil
}

func validateHeaderKey(b []byte, rough bool) bool {
	if len(b) == 0 {
		return false
	}
	if rough {
		return true
	}
	for _, c := range b {
		if !isTokenChar(c) {
			return false
		}
	}
	return true
}

func validateHeaderValue(b []byte, flags ReadFlag) bool {
	if len(b) == 0 {
		return false
	}
	rough := flags.Has(RoughHeaderValue)
	allowObs := flags.Has(AllowObsText)
	if rough {
		return true
	}
	for _, c := range b {
		switch {
		case c == ' ' || c == '\t':
		case c >= 0x21 && c <= 0x7e:
		case c >= 0x80 && allowObs:
		default:
			return false
		}
	}
	return true
}
