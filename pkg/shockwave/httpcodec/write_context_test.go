package httpcodec

import "testing"

// spec.md §4.3: a best-effort body (no Content-Length, no chunked) is
// fatal on an HTTP/1.1 message that would otherwise stay keep-alive,
// unless the caller opts in via WAllowBestEffortKeepAlive.
func TestSelectBodyState_BestEffortFatalOnKeepAlive(t *testing.T) {
	w := &WriteContext{Flags: WAllowBestEffortBody}
	w.ScanHTTPVersion(1, 1)

	_, err := w.SelectBodyState()
	if err == nil {
		t.Fatalf("expected an error for best-effort body on a keep-alive HTTP/1.1 message")
	}
	we, ok := err.(*WriteError)
	if !ok {
		t.Fatalf("error type = %T, want *WriteError", err)
	}
	if we.Err != ErrBodyInvalidState {
		t.Errorf("Err = %v, want ErrBodyInvalidState", we.Err)
	}
	if w.State() != WFailed {
		t.Errorf("state = %v, want WFailed", w.State())
	}
}

func TestSelectBodyState_BestEffortAllowedWithFlag(t *testing.T) {
	w := &WriteContext{Flags: WAllowBestEffortBody | WAllowBestEffortKeepAlive}
	w.ScanHTTPVersion(1, 1)

	state, err := w.SelectBodyState()
	if err != nil {
		t.Fatalf("SelectBodyState: %v", err)
	}
	if state != WBestEffortBody {
		t.Errorf("state = %v, want WBestEffortBody", state)
	}
}

func TestSelectBodyState_BestEffortAllowedOnClose(t *testing.T) {
	w := &WriteContext{Flags: WAllowBestEffortBody}
	w.ScanHTTPVersion(1, 1)
	if err := w.ScanHeader([]byte("Connection"), []byte("close")); err != nil {
		t.Fatalf("ScanHeader: %v", err)
	}

	state, err := w.SelectBodyState()
	if err != nil {
		t.Fatalf("SelectBodyState: %v", err)
	}
	if state != WBestEffortBody {
		t.Errorf("state = %v, want WBestEffortBody", state)
	}
}
