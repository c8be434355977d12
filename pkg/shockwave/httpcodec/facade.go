package httpcodec

// Facade is the single entry point collaborators (the HTTP/2 and HTTP/3
// façades, the WebSocket upgrade module, the h2c upgrade module) are
// expected to drive — it owns the input and output byte buffers plus one
// ReadContext and one WriteContext, and exposes message-level operations
// over them (spec.md §4.6).
type Facade struct {
	input  []byte
	output []byte

	Read  ReadContext
	Write WriteContext

	scanner Scanner

	Metrics *Metrics
}

// NewFacade returns a Facade with the given read/write flags.
func NewFacade(readFlags ReadFlag, writeFlags WriteFlag) *Facade {
	f := &Facade{}
	f.Read.Flags = readFlags
	f.Write.Flags = writeFlags
	return f
}

// AddInput appends bytes to the input buffer, growing it from the shared
// bufferPool rather than letting append() reallocate ad hoc when the
// existing capacity is exhausted.
func (f *Facade) AddInput(b []byte) {
	need := len(f.input) + len(b)
	if need > cap(f.input) {
		grown := globalBufferPool.get(need)
		grown = append(grown, f.input...)
		if cap(f.input) > 0 {
			globalBufferPool.put(f.input[:0])
		}
		f.input = grown
	}
	f.input = append(f.input, b...)
}

// GetInput returns the current (unconsumed-from-the-front) input buffer.
func (f *Facade) GetInput() []byte { return f.input }

// ClearInput discards all input, independent of any saved read-context
// positions — callers should prefer AdjustInput for the normal case.
func (f *Facade) ClearInput() { f.input = f.input[:0] }

// GetOutput returns the accumulated output buffer.
func (f *Facade) GetOutput() []byte { return f.output }

// ClearOutput discards all output bytes already rendered.
func (f *Facade) ClearOutput() { f.output = f.output[:0] }

// AdjustInput consults the read context's adjusted offset and trims that
// many leading bytes from input. This is the only place the input buffer
// moves, and it is safe because the read context accounts for any saved
// ranges before reporting the offset (§4.2, §5).
func (f *Facade) AdjustInput() int {
	delta := f.Read.AdjustOffsetToStart()
	if delta <= 0 {
		return 0
	}
	copy(f.input, f.input[delta:])
	f.input = f.input[:len(f.input)-delta]
	return delta
}

func (f *Facade) bindScanner() *Scanner {
	f.scanner.Reset(f.input, f.Read.suspendPos)
	return &f.scanner
}

// ReadRequest parses the request line and header block, delivering method,
// path, and header fields to the given sinks.
func (f *Facade) ReadRequest(methodSink, pathSink RangeSink, headerSink KVSink) error {
	sc := f.bindScanner()
	if f.Read.state == StUninit || isFirstLine(f.Read.state) {
		if err := ParseRequestLine(&f.Read, sc, methodSink, pathSink); err != nil {
			f.noteReadError(err)
			return err
		}
	}
	if err := ParseHeaderBlock(&f.Read, sc, headerSink); err != nil {
		f.noteReadError(err)
		return err
	}
	return nil
}

// ReadResponse parses the status line and header block.
func (f *Facade) ReadResponse(reasonSink RangeSink, headerSink KVSink) error {
	sc := f.bindScanner()
	if f.Read.state == StUninit || isFirstLine(f.Read.state) {
		if _, err := ParseStatusLine(&f.Read, sc, reasonSink); err != nil {
			f.noteReadError(err)
			return err
		}
	}
	if err := ParseHeaderBlock(&f.Read, sc, headerSink); err != nil {
		f.noteReadError(err)
		return err
	}
	return nil
}

// ReadHeader pumps only the header-block parse, for callers that already
// handled the first line themselves.
func (f *Facade) ReadHeader(headerSink KVSink) error {
	sc := f.bindScanner()
	err := ParseHeaderBlock(&f.Read, sc, headerSink)
	f.noteReadError(err)
	return err
}

// ReadTrailer pumps the trailer-block parse.
func (f *Facade) ReadTrailer(trailerSink KVSink) error {
	sc := f.bindScanner()
	err := ParseTrailerBlock(&f.Read, sc, trailerSink)
	f.noteReadError(err)
	return err
}

// ReadBody pumps one step of the body sub-state-machine.
func (f *Facade) ReadBody(bodySink, extSink RangeSink) (BodyResult, error) {
	if extSink == nil {
		extSink = DiscardRangeSink
	}
	sc := f.bindScanner()
	result, err := ReadBody(&f.Read, sc, bodySink, extSink)
	if err != nil {
		f.noteReadError(err)
	} else if f.Metrics != nil {
		f.Metrics.observeBodyResult(result)
	}
	return result, err
}

func (f *Facade) noteReadError(err error) {
	if f.Metrics == nil || err == nil {
		return
	}
	if re, ok := err.(*ReadError); ok {
		f.Metrics.observeReadError(re)
	}
}

// WriteRequest renders a request line plus headers. headers is walked in
// order; the caller is responsible for providing Host when required.
func (f *Facade) WriteRequest(method, path []byte, major, minor uint8, headers func(func(key, value []byte) error) error) error {
	if err := RenderRequestLine(&f.Write, &f.output, method, path, major, minor); err != nil {
		return err
	}
	return f.writeHeaders(headers)
}

// WriteResponse renders a status line plus headers.
func (f *Facade) WriteResponse(code int, reason []byte, major, minor uint8, headers func(func(key, value []byte) error) error) error {
	if err := RenderStatusLine(&f.Write, &f.output, code, reason, major, minor); err != nil {
		return err
	}
	return f.writeHeaders(headers)
}

func (f *Facade) writeHeaders(headers func(func(key, value []byte) error) error) error {
	emit := func(key, value []byte) error {
		return RenderHeader(&f.Write, &f.output, key, value)
	}
	if headers != nil {
		if err := headers(emit); err != nil {
			return err
		}
	}
	_, err := RenderHeadersEnd(&f.Write, &f.output)
	if err != nil && f.Metrics != nil {
		f.Metrics.observeWriteError(err.(*WriteError))
	}
	return err
}

// WriteBody appends one slice of body data per the write context's
// current body-writing mode.
func (f *Facade) WriteBody(data []byte) error {
	return WriteBody(&f.Write, &f.output, data)
}

// WriteEndOfChunk writes the terminal chunk, optionally transitioning to
// the trailer-writing state.
func (f *Facade) WriteEndOfChunk(expectTrailer bool) error {
	return WriteEndOfChunk(&f.Write, &f.output, expectTrailer)
}

// Reset returns both contexts to Uninit for reuse on the next message,
// preserving their configured flags.
func (f *Facade) Reset() {
	f.Read.Reset()
	f.Write.Reset()
}
