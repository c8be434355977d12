package httpcodec

import "strconv"

// The request-line / status-line grammar is delimiter-driven (tokens
// separated by SP, terminated by CRLF), so this implementation finds each
// delimiter with Scanner.IndexByte rather than walking a separate state
// for every byte of a token. Each token search is itself the resumable
// unit: if the delimiter is not yet in the buffer, the context suspends
// at the token's start and retries the same search once more bytes
// arrive. This collapses spec.md §3's per-byte enumerated sub-states
// (method → method_sp → path_init → …) into one state per token boundary,
// while preserving the suspend/resume contract and AdjustedOffset's
// invariants exactly: a context parked at, say, StMethodInit still has
// startPos pointing at the first unconsumed byte, so nothing can be
// trimmed out from under it.

func isTokenChar(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}

func isPathByte(b byte) bool {
	return b > 0x20 && b != 0x7f
}

func validateToken(b []byte, rough bool) bool {
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

func validatePath(b []byte, rough bool) bool {
	if len(b) == 0 {
		return false
	}
	if rough {
		return true
	}
	for _, c := range b {
		if !isPathByte(c) {
			return false
		}
	}
	return true
}

// findSP finds the next space at or after from, returning -1 if absent.
func findSP(sc *Scanner, from int) int {
	sc.Backto(from)
	return sc.IndexByte(' ')
}

// consumeEOL matches a line terminator at pos: CRLF always; bare LF or CR
// alone when the corresponding lenient flag is set. Returns the position
// just past the terminator, or -1 if a terminator is not present *and*
// cannot yet be determined (need more bytes), or -2 if the bytes present
// are definitively not a terminator.
func consumeEOL(sc *Scanner, pos int, flags ReadFlag) int {
	sc.Backto(pos)
	b, ok := sc.Current()
	if !ok {
		return -1
	}
	if b == '\r' {
		b2, ok2 := sc.CurrentAt(1)
		if !ok2 {
			if flags.Has(AllowOnlyR) {
				return pos + 1
			}
			return -1 // could still be \r\n if more arrives
		}
		if b2 == '\n' {
			return pos + 2
		}
		if flags.Has(AllowOnlyR) {
			return pos + 1
		}
		return -2
	}
	if b == '\n' {
		if flags.Has(AllowOnlyN) {
			return pos + 1
		}
		return -2
	}
	return -2
}

// ParseRequestLine parses `METHOD SP TARGET SP VERSION CRLF` (or the
// legacy `METHOD SP TARGET CRLF` form under LegacyHTTP09), reporting
// tokens to methodSink/pathSink. rc.State() must be StUninit or one of
// the request-line states it suspends in (StMethodInit, StPathInit,
// StRequestVersion); PrepareRead is called if still Uninit.
func ParseRequestLine(rc *ReadContext, sc *Scanner, methodSink, pathSink RangeSink) error {
	rc.PrepareRead(sc.Pos(), StMethodInit)

	switch rc.state {
	case StMethodInit:
		spIdx := findSP(sc, rc.startPos)
		if spIdx < 0 {
			rc.SavePos(sc.Len())
			return &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrInvalidMethod, Resumable: true}
		}
		methodSpan := Span{rc.startPos, spIdx}
		if !validateToken(methodSpan.Slice(sc.buf), rc.Flags.Has(RoughMethod)) {
			rc.FailPos(spIdx)
			return &ReadError{State: rc.state, Pos: spIdx, HeaderErr: ErrInvalidMethod}
		}
		methodSink.AcceptRange(sc.buf, methodSpan)
		rc.ScanMethod(sc.buf, methodSpan)
		rc.ChangeState(StPathInit, spIdx+1)
		fallthrough

	case StPathInit:
		spIdx := findSP(sc, rc.startPos)
		if rc.Flags.Has(LegacyHTTP09) {
			// HTTP/0.9: the path is followed directly by the line terminator.
			if eol := findLineEnd(sc, rc.startPos, rc.Flags); eol.found && (spIdx < 0 || eol.lineStart < spIdx) {
				pathSpan := Span{rc.startPos, eol.lineStart}
				if !validatePath(pathSpan.Slice(sc.buf), rc.Flags.Has(RoughPath)) {
					rc.FailPos(eol.lineStart)
					return &ReadError{State: rc.state, Pos: eol.lineStart, HeaderErr: ErrInvalidPath}
				}
				pathSink.AcceptRange(sc.buf, pathSpan)
				rc.ScanHTTPVersion(0, 9)
				rc.ChangeState(StBodyEnd, eol.next)
				return nil
			}
		}
		if spIdx < 0 {
			rc.SavePos(sc.Len())
			return &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrInvalidPath, Resumable: true}
		}
		pathSpan := Span{rc.startPos, spIdx}
		if !validatePath(pathSpan.Slice(sc.buf), rc.Flags.Has(RoughPath)) {
			rc.FailPos(spIdx)
			return &ReadError{State: rc.state, Pos: spIdx, HeaderErr: ErrInvalidPath}
		}
		pathSink.AcceptRange(sc.buf, pathSpan)
		rc.ChangeState(StRequestVersion, spIdx+1)
		fallthrough

	case StRequestVersion:
		return parseRequestVersionAndEOL(rc, sc)

	default:
		rc.FailPos(sc.Pos())
		return &ReadError{State: rc.state, Pos: sc.Pos(), HeaderErr: ErrInvalidState}
	}
}

func parseRequestVersionAndEOL(rc *ReadContext, sc *Scanner) error {
	sc.Backto(rc.startPos)

	// Legacy HTTP/0.9 with a space after the path ("METHOD PATH \r\n"): the
	// next bytes are a line terminator instead of "HTTP/". The bare
	// "METHOD PATH\r\n" form is handled in ParseRequestLine's StPathInit.
	if rc.Flags.Has(LegacyHTTP09) {
		if eol := consumeEOL(sc, rc.startPos, rc.Flags); eol >= 0 {
			rc.ScanHTTPVersion(0, 9)
			rc.ChangeState(StBodyEnd, eol)
			return nil
		}
	}

	major, minor, next, ok, needMore := scanVersionToken(sc, rc.startPos, rc.Flags.Has(RoughRequestVersion))
	if needMore {
		rc.SavePos(sc.Len())
		return &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrInvalidVersion, Resumable: true}
	}
	if !ok {
		rc.FailPos(next)
		return &ReadError{State: rc.state, Pos: next, HeaderErr: ErrInvalidVersion}
	}
	rc.ScanHTTPVersion(major, minor)

	eol := consumeEOL(sc, next, rc.Flags)
	switch eol {
	case -1:
		rc.SavePos(sc.Len())
		return &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrNotEndOfLine, Resumable: true}
	case -2:
		rc.FailPos(next)
		return &ReadError{State: rc.state, Pos: next, HeaderErr: ErrNotEndOfLine}
	}
	rc.ChangeState(StHeaderInit, eol)
	return nil
}

// scanVersionToken matches "HTTP/<d>.<d>" at pos, returning the parsed
// version, the offset just past it, whether it matched, and whether more
// bytes are needed to decide.
func scanVersionToken(sc *Scanner, pos int, rough bool) (major, minor uint8, next int, ok bool, needMore bool) {
	sc.Backto(pos)
	if sc.Remain() < 8 {
		// Could still be a match once more bytes arrive, unless what we
		// do have already disagrees with the fixed prefix.
		avail := sc.buf[pos:]
		if !prefixAgrees(avail, "HTTP/") {
			return 0, 0, pos, false, false
		}
		return 0, 0, pos, false, true
	}
	buf := sc.buf[pos : pos+8]
	if buf[0] != 'H' || buf[1] != 'T' || buf[2] != 'T' || buf[3] != 'P' || buf[4] != '/' || buf[6] != '.' {
		return 0, 0, pos, false, false
	}
	if rough {
		return digitOr(buf[5], 1), digitOr(buf[7], 1), pos + 8, true, false
	}
	if buf[5] < '0' || buf[5] > '9' || buf[7] < '0' || buf[7] > '9' {
		return 0, 0, pos, false, false
	}
	return buf[5] - '0', buf[7] - '0', pos + 8, true, false
}

func digitOr(b, fallback byte) uint8 {
	if b >= '0' && b <= '9' {
		return b - '0'
	}
	return fallback
}

func prefixAgrees(avail []byte, want string) bool {
	n := len(avail)
	if n > len(want) {
		n = len(want)
	}
	for i := 0; i < n; i++ {
		if avail[i] != want[i] {
			return false
		}
	}
	return true
}

// ParseStatusLine parses `VERSION SP STATUS-CODE SP REASON-PHRASE CRLF`.
func ParseStatusLine(rc *ReadContext, sc *Scanner, reasonSink RangeSink) (int, error) {
	rc.PrepareRead(sc.Pos(), StResponseVersionInit)

	switch rc.state {
	case StResponseVersionInit:
		major, minor, next, ok, needMore := scanVersionToken(sc, rc.startPos, rc.Flags.Has(RoughResponseVersion))
		if needMore {
			rc.SavePos(sc.Len())
			return 0, &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrInvalidVersion, Resumable: true}
		}
		if !ok {
			rc.FailPos(next)
			return 0, &ReadError{State: rc.state, Pos: next, HeaderErr: ErrInvalidVersion}
		}
		rc.ScanHTTPVersion(major, minor)
		sc.Backto(next)
		if !sc.ConsumeIf(' ') {
			if sc.Eos() {
				rc.SavePos(sc.Len())
				return 0, &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrNotSpace, Resumable: true}
			}
			rc.FailPos(next)
			return 0, &ReadError{State: rc.state, Pos: next, HeaderErr: ErrNotSpace}
		}
		rc.ChangeState(StStatusCode, sc.Pos())
		fallthrough

	case StStatusCode:
		return parseStatusCodeAndReason(rc, sc, reasonSink)

	case StReasonPhrase:
		return finishReasonPhrase(rc, sc, reasonSink, rc.savedStatusCode())

	default:
		rc.FailPos(sc.Pos())
		return 0, &ReadError{State: rc.state, Pos: sc.Pos(), HeaderErr: ErrInvalidState}
	}
}

func parseStatusCodeAndReason(rc *ReadContext, sc *Scanner, reasonSink RangeSink) (int, error) {
	spIdx := findSP(sc, rc.startPos)
	if spIdx < 0 {
		// Reason phrase may be empty, in which case SP is followed
		// immediately by CRLF; the SP after the code is still required,
		// and until one is in the buffer the code is not known to be
		// complete.
		rc.SavePos(sc.Len())
		return 0, &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrInvalidStatusCode, Resumable: true}
	}
	codeEnd := spIdx
	codeSpan := sc.buf[rc.startPos:codeEnd]
	// RoughStatusCodeLength relaxes the "exactly 3 digits" rule but a
	// delimiter is still required to know where the code token ends.
	if !rc.Flags.Has(RoughStatusCode) && !rc.Flags.Has(RoughStatusCodeLength) && len(codeSpan) != 3 {
		rc.FailPos(codeEnd)
		return 0, &ReadError{State: rc.state, Pos: codeEnd, HeaderErr: ErrInvalidStatusCode}
	}
	code, err := strconv.Atoi(string(codeSpan))
	if err != nil || code < 0 || code > 999 {
		rc.FailPos(codeEnd)
		return 0, &ReadError{State: rc.state, Pos: codeEnd, HeaderErr: ErrInvalidStatusCode}
	}
	rc.ScanStatusCode(code)
	rc.saveStatusCode(code)
	rc.ChangeState(StReasonPhrase, spIdx+1)
	return finishReasonPhrase(rc, sc, reasonSink, code)
}

// finishReasonPhrase searches for the line terminator closing the reason
// phrase. It is the tail half of parseStatusCodeAndReason, and is also the
// direct re-entry point when a suspend lands in StReasonPhrase: rc.startPos
// already points at the reason phrase's start either way, so it needs only
// the status code (handed in, or recovered from the scratch slots by the
// caller) to keep returning it on the eventual success.
func finishReasonPhrase(rc *ReadContext, sc *Scanner, reasonSink RangeSink, code int) (int, error) {
	eol := findLineEnd(sc, rc.startPos, rc.Flags)
	if !eol.found {
		rc.SavePos(sc.Len())
		return 0, &ReadError{State: rc.state, Pos: sc.Len(), HeaderErr: ErrInvalidReasonPhrase, Resumable: true}
	}
	reasonSpan := Span{rc.startPos, eol.lineStart}
	reasonSink.AcceptRange(sc.buf, reasonSpan)
	rc.ChangeState(StHeaderInit, eol.next)
	return code, nil
}

// findLineEnd scans forward from pos for the first line terminator,
// returning its position split from where the next content starts, or a
// zero-value result with found==false when the terminator has not
// arrived yet.
func findLineEnd(sc *Scanner, from int, flags ReadFlag) lineEndResult {
	for i := from; i < sc.Len(); i++ {
		b := sc.buf[i]
		if b == '\r' {
			if i+1 < sc.Len() {
				if sc.buf[i+1] == '\n' {
					return lineEndResult{found: true, lineStart: i, next: i + 2}
				}
				if flags.Has(AllowOnlyR) {
					return lineEndResult{found: true, lineStart: i, next: i + 1}
				}
				continue
			}
			return lineEndResult{found: false}
		}
		if b == '\n' && flags.Has(AllowOnlyN) {
			return lineEndResult{found: true, lineStart: i, next: i + 1}
		}
	}
	return lineEndResult{found: false}
}

type lineEndResult struct {
	found     bool
	lineStart int
	next      int
}
