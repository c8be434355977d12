package httpcodec

// ReadState enumerates the progression of an incremental parse. Values are
// declared in protocol order so a state comparison (e.g. `>= stHeaderInit`)
// can answer "have we left the first line yet" without a separate table.
type ReadState uint8

const (
	StUninit ReadState = iota

	// Request first line.
	StMethodInit
	StMethod
	StMethodSP
	StPathInit
	StPath
	StPathSP
	StRequestVersion
	StRequestVersionEOL1
	StRequestVersionEOL2

	// Response first line.
	StResponseVersionInit
	StResponseVersion
	StResponseVersionSP
	StStatusCode
	StStatusCodeSP
	StReasonPhrase
	StReasonPhraseEOL1
	StReasonPhraseEOL2

	// Header block.
	StHeaderInit
	StHeaderKey
	StHeaderColon
	StHeaderPreSpace
	StHeaderValue
	StHeaderEOL1
	StHeaderEOL2
	StHeaderLastEOL1
	StHeaderLastEOL2

	// Body.
	StBodyInit
	StBodyContentLength
	StBodyChunkedSize
	StBodyChunkedExtensionInit
	StBodyChunkedExtension
	StBodyChunkedSizeEOL1
	StBodyChunkedSizeEOL2
	StBodyChunkedDataInit
	StBodyChunkedData
	StBodyChunkedDataEOL1
	StBodyChunkedDataEOL2
	StBodyEnd

	// Trailer block (shares the header sub-states' shape but is tracked
	// separately so is_trailer_line can distinguish the two).
	StTrailerInit
	StTrailerKey
	StTrailerColon
	StTrailerPreSpace
	StTrailerValue
	StTrailerEOL1
	StTrailerEOL2
	StTrailerLastEOL1
	StTrailerLastEOL2

	numReadStates
)

var readStateNames = [numReadStates]string{
	StUninit:                   "uninit",
	StMethodInit:               "method_init",
	StMethod:                   "method",
	StMethodSP:                 "method_sp",
	StPathInit:                 "path_init",
	StPath:                     "path",
	StPathSP:                   "path_sp",
	StRequestVersion:           "request_version",
	StRequestVersionEOL1:       "request_version_eol1",
	StRequestVersionEOL2:       "request_version_eol2",
	StResponseVersionInit:      "response_version_init",
	StResponseVersion:          "response_version",
	StResponseVersionSP:        "response_version_sp",
	StStatusCode:               "status_code",
	StStatusCodeSP:             "status_code_sp",
	StReasonPhrase:             "reason_phrase",
	StReasonPhraseEOL1:         "reason_phrase_eol1",
	StReasonPhraseEOL2:         "reason_phrase_eol2",
	StHeaderInit:               "header_init",
	StHeaderKey:                "header_key",
	StHeaderColon:              "header_colon",
	StHeaderPreSpace:           "header_pre_space",
	StHeaderValue:              "header_value",
	StHeaderEOL1:               "header_eol1",
	StHeaderEOL2:               "header_eol2",
	StHeaderLastEOL1:           "header_last_eol1",
	StHeaderLastEOL2:           "header_last_eol2",
	StBodyInit:                 "body_init",
	StBodyContentLength:        "body_content_length",
	StBodyChunkedSize:          "body_chunked_size",
	StBodyChunkedExtensionInit: "body_chunked_extension_init",
	StBodyChunkedExtension:     "body_chunked_extension",
	StBodyChunkedSizeEOL1:      "body_chunked_size_eol1",
	StBodyChunkedSizeEOL2:      "body_chunked_size_eol2",
	StBodyChunkedDataInit:      "body_chunked_data_init",
	StBodyChunkedData:          "body_chunked_data",
	StBodyChunkedDataEOL1:      "body_chunked_data_eol1",
	StBodyChunkedDataEOL2:      "body_chunked_data_eol2",
	StBodyEnd:                  "body_end",
	StTrailerInit:              "trailer_init",
	StTrailerKey:               "trailer_key",
	StTrailerColon:             "trailer_colon",
	StTrailerPreSpace:          "trailer_pre_space",
	StTrailerValue:             "trailer_value",
	StTrailerEOL1:              "trailer_eol1",
	StTrailerEOL2:              "trailer_eol2",
	StTrailerLastEOL1:          "trailer_last_eol1",
	StTrailerLastEOL2:          "trailer_last_eol2",
}

// String implements fmt.Stringer for diagnostics and metric labels.
func (s ReadState) String() string {
	if int(s) < len(readStateNames) {
		return readStateNames[s]
	}
	return "unknown"
}

// WriteState enumerates render-side progression.
type WriteState uint8

const (
	WUninit WriteState = iota
	WHeader
	WBestEffortBody
	WContentLengthBody
	WChunkedBody
	WContentLengthChunkedBody
	WTrailer
	WEnd
	// WFailed is the distinguished sticky-error state described in
	// spec.md §4.5 for the body codec; RenderHeader and SelectBodyState
	// also enter it on failure. Once set, WriteBody, WriteEndOfChunk,
	// WriteTrailer and WriteTrailerEnd fail with ErrBodyInvalidState until
	// Reset. RenderRequestLine, RenderStatusLine, RenderHeader and
	// SelectBodyState do not check for it.
	WFailed
)

// BodyType is the body framing observed while scanning headers.
type BodyType uint8

const (
	BodyNoInfo BodyType = iota
	BodyContentLength
	BodyChunked
	BodyChunkedContentLength
)

// HTTPState is the coarse state exposed to collaborators that only need to
// know which phase of the message is in flight, not the exact sub-state.
type HTTPState uint8

const (
	HTTPInit HTTPState = iota
	HTTPFirstLine
	HTTPHeader
	HTTPBody
	HTTPTrailer
	HTTPEnd
)

// Coarse derives the collaborator-facing HTTPState from a ReadState.
func (s ReadState) Coarse() HTTPState {
	switch {
	case s == StUninit:
		return HTTPInit
	case s <= StReasonPhraseEOL2:
		return HTTPFirstLine
	case s <= StHeaderLastEOL2:
		return HTTPHeader
	case s <= StBodyChunkedDataEOL2:
		return HTTPBody
	case s >= StTrailerInit && s <= StTrailerLastEOL2:
		return HTTPTrailer
	default:
		return HTTPEnd
	}
}

// isHeaderKeyReserved reports whether the state holds a saved header-key
// range in the scratch slots — invariant 2 and invariant 3 in spec.md §3.
func isHeaderKeyReserved(s ReadState) bool {
	switch s {
	case StHeaderColon, StHeaderPreSpace, StHeaderValue,
		StTrailerColon, StTrailerPreSpace, StTrailerValue:
		return true
	default:
		return false
	}
}

func isFirstLine(s ReadState) bool {
	return s.Coarse() == HTTPFirstLine
}

func isHeaderLine(s ReadState) bool {
	return s >= StHeaderInit && s <= StHeaderLastEOL2
}

func isTrailerLine(s ReadState) bool {
	return s >= StTrailerInit && s <= StTrailerLastEOL2
}

func isBodyInProgress(s ReadState) bool {
	return s >= StBodyInit && s <= StBodyChunkedDataEOL2
}
