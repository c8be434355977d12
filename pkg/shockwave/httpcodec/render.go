package httpcodec

import "strconv"

// RenderRequestLine appends "METHOD SP TARGET SP HTTP/M.m\r\n" to out and
// feeds the method and version through the write context's semantic scan.
func RenderRequestLine(wc *WriteContext, out *[]byte, method, path []byte, major, minor uint8) error {
	if !validateToken(method, wc.Flags.Has(WRoughHeaderKey)) {
		return &WriteError{State: wc.wstate, Err: ErrInvalidMethod}
	}
	if !validatePath(path, wc.Flags.Has(WRoughHeaderKey)) {
		return &WriteError{State: wc.wstate, Err: ErrInvalidPath}
	}
	wc.ScanMethod(method)
	wc.ScanHTTPVersion(major, minor)

	*out = append(*out, method...)
	*out = append(*out, ' ')
	*out = append(*out, path...)
	*out = append(*out, ' ')
	*out = appendVersion(*out, major, minor)
	*out = append(*out, '\r', '\n')
	return nil
}

// RenderStatusLine appends "HTTP/M.m SP CODE SP REASON\r\n" to out. If
// reason is nil, the well-known RFC 9110 reason phrase for code is used.
func RenderStatusLine(wc *WriteContext, out *[]byte, code int, reason []byte, major, minor uint8) error {
	if code < 100 || code > 999 {
		return &WriteError{State: wc.wstate, Err: ErrInvalidStatusCode}
	}
	wc.ScanStatusCode(code)
	wc.ScanHTTPVersion(major, minor)

	*out = appendVersion(*out, major, minor)
	*out = append(*out, ' ')
	*out = append(*out, []byte(strconv.Itoa(code))...)
	*out = append(*out, ' ')
	if reason == nil {
		*out = append(*out, statusText(code)...)
	} else {
		*out = append(*out, reason...)
	}
	*out = append(*out, '\r', '\n')
	return nil
}

func appendVersion(out []byte, major, minor uint8) []byte {
	out = append(out, 'H', 'T', 'T', 'P', '/')
	out = append(out, '0'+major, '.', '0'+minor)
	return out
}

// RenderHeader validates and appends one "Key: Value\r\n" field, running
// the same semantic scan ReadContext.ScanHeader performs so the write
// context accumulates the observations SelectBodyState needs.
func RenderHeader(wc *WriteContext, out *[]byte, key, value []byte) error {
	if !validateHeaderKey(key, wc.Flags.Has(WRoughHeaderKey)) {
		wc.wstate = WFailed
		return &WriteError{State: wc.wstate, Err: ErrInvalidHeaderKey}
	}
	vf := ReadFlag(0)
	if wc.Flags.Has(WRoughHeaderValue) {
		vf |= RoughHeaderValue
	}
	if wc.Flags.Has(WAllowObsText) {
		vf |= AllowObsText
	}
	if !validateHeaderValue(value, vf) {
		wc.wstate = WFailed
		return &WriteError{State: wc.wstate, Err: ErrInvalidHeaderValue}
	}
	if err := wc.ScanHeader(key, value); err != nil {
		wc.wstate = WFailed
		return &WriteError{State: wc.wstate, Err: err}
	}
	*out = append(*out, key...)
	*out = append(*out, ':', ' ')
	*out = append(*out, value...)
	*out = append(*out, '\r', '\n')
	return nil
}

// RenderHeadersEnd appends the blank line terminating the header block and
// selects the next WriteState per spec.md §4.3's table.
func RenderHeadersEnd(wc *WriteContext, out *[]byte) (WriteState, error) {
	*out = append(*out, '\r', '\n')
	next, err := wc.SelectBodyState()
	if err != nil {
		return next, err
	}
	return next, nil
}
