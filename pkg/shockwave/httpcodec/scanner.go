// Package httpcodec implements an incremental, resumable HTTP/1.1 wire
// codec: byte-driven read and write state machines for HTTP/1.1 request
// and response messages, shared by higher-level protocol façades.
package httpcodec

import "bytes"

// Scanner is a cursor over a byte slice that is fed in one or more pieces.
// It never owns or copies the bytes it scans: the caller supplies a view
// on every call and the Scanner only ever tracks an offset into it.
//
// A Scanner never grows, allocates, or retains a buffer. That lets a read
// or write context suspend mid-field and resume later against a
// differently-sized (but logically continuous) buffer view, which is the
// whole point of this package: parsing must be restartable at any byte
// boundary, not just at message boundaries.
type Scanner struct {
	buf []byte
	pos int
}

// Reset rebinds the scanner to view buf starting at offset pos.
func (s *Scanner) Reset(buf []byte, pos int) {
	s.buf = buf
	s.pos = pos
}

// Pos returns the current cursor offset into the bound buffer.
func (s *Scanner) Pos() int { return s.pos }

// Len returns the length of the bound buffer.
func (s *Scanner) Len() int { return len(s.buf) }

// Eos reports whether the cursor has reached the end of the bound buffer.
// This does not mean "end of message" — more bytes may arrive later.
func (s *Scanner) Eos() bool { return s.pos >= len(s.buf) }

// Remain returns the number of unconsumed bytes in the bound buffer.
func (s *Scanner) Remain() int {
	if s.pos >= len(s.buf) {
		return 0
	}
	return len(s.buf) - s.pos
}

// Current returns the byte at the cursor and true, or (0, false) at Eos.
func (s *Scanner) Current() (byte, bool) {
	if s.Eos() {
		return 0, false
	}
	return s.buf[s.pos], true
}

// CurrentAt returns the byte k positions ahead of the cursor, without
// moving it, or (0, false) if that position is past the bound buffer.
func (s *Scanner) CurrentAt(k int) (byte, bool) {
	p := s.pos + k
	if p < 0 || p >= len(s.buf) {
		return 0, false
	}
	return s.buf[p], true
}

// Consume advances the cursor by one byte. It is a no-op at Eos.
func (s *Scanner) Consume() {
	if !s.Eos() {
		s.pos++
	}
}

// ConsumeN advances the cursor by n bytes, clamped to the buffer length.
func (s *Scanner) ConsumeN(n int) {
	s.pos += n
	if s.pos > len(s.buf) {
		s.pos = len(s.buf)
	}
}

// ConsumeIf advances the cursor past the current byte if it equals b,
// reporting whether it did.
func (s *Scanner) ConsumeIf(b byte) bool {
	c, ok := s.Current()
	if !ok || c != b {
		return false
	}
	s.pos++
	return true
}

// SeekIf reports whether the literal lit appears at the cursor. On a
// match it consumes lit and returns true. If fold is true the comparison
// is ASCII case-insensitive. It never partially consumes: on a mismatch,
// or when fewer than len(lit) bytes remain (which is not distinguishable
// from a mismatch at this layer — the caller must check Remain() first
// to tell "no match" from "need more bytes"), the cursor is unchanged.
func (s *Scanner) SeekIf(lit []byte, fold bool) bool {
	if s.Remain() < len(lit) {
		return false
	}
	window := s.buf[s.pos : s.pos+len(lit)]
	var eq bool
	if fold {
		eq = bytes.EqualFold(window, lit)
	} else {
		eq = bytes.Equal(window, lit)
	}
	if !eq {
		return false
	}
	s.pos += len(lit)
	return true
}

// IndexByte returns the offset of the first occurrence of b at or after
// the cursor, or -1 if b does not occur in the remaining bound buffer.
// The offset is relative to the start of the bound buffer, matching
// Pos()'s frame of reference.
func (s *Scanner) IndexByte(b byte) int {
	if s.Eos() {
		return -1
	}
	i := bytes.IndexByte(s.buf[s.pos:], b)
	if i < 0 {
		return -1
	}
	return s.pos + i
}

// Backto rewinds the cursor to pos. Used to restart scanning a field from
// its saved start after a suspend/resume round trip relocates the buffer.
func (s *Scanner) Backto(pos int) {
	s.pos = pos
}

// Slice returns the bound buffer's bytes in [start, end). The caller must
// not retain the returned slice beyond the lifetime of the current input
// buffer — it aliases it directly.
func (s *Scanner) Slice(start, end int) []byte {
	return s.buf[start:end]
}
