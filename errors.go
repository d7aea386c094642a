package xz

import "errors"

// Status classifies every failure this package can return from the
// multithreaded Stream decoder and encoder, mirroring the category
// system of the original C library: format vs. data vs. options vs.
// resource vs. liveness problems each get a distinct sentinel so
// callers can use errors.Is instead of string matching.
type Status int

const (
	// StatusFormat means the input does not start with a valid Stream
	// Header at all; only returned for the first Stream when
	// Concatenated streams are being read.
	StatusFormat Status = iota + 1
	// StatusData means the input parses as xz framing but some
	// integrity check (CRC or content hash) failed, or a later
	// concatenated Stream begins with the wrong magic.
	StatusData
	// StatusOptions means the input is syntactically valid xz framing
	// that uses a feature this implementation does not support: an
	// unknown filter id, reserved bits set, non-zero header padding,
	// or an unsupported check kind without TellUnsupportedCheck set.
	StatusOptions
	// StatusMem means an internal allocation failed.
	StatusMem
	// StatusMemlimit means decoding halted because a memory usage
	// limit was hit.
	StatusMemlimit
	// StatusBuf means the decoder cannot make progress: every worker
	// is starved of output space, or the input was truncated
	// mid-Block.
	StatusBuf
	// StatusTimedOut means a caller-supplied timeout elapsed before
	// output became available.
	StatusTimedOut
	// StatusProg means the API was misused (e.g. MemlimitThreadingSet
	// asked to lower the limit).
	StatusProg
)

func (s Status) String() string {
	switch s {
	case StatusFormat:
		return "format error"
	case StatusData:
		return "data error"
	case StatusOptions:
		return "unsupported options"
	case StatusMem:
		return "memory allocation failed"
	case StatusMemlimit:
		return "memory usage limit reached"
	case StatusBuf:
		return "no progress possible"
	case StatusTimedOut:
		return "timed out"
	case StatusProg:
		return "programming error"
	}
	return "unknown status"
}

// StatusError pairs a Status with descriptive context. errors.Is
// compares against the Status alone, so `errors.Is(err, xz.StatusData)`
// works regardless of the message text.
type StatusError struct {
	Status Status
	Msg    string
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return "xz: " + e.Status.String()
	}
	return "xz: " + e.Status.String() + ": " + e.Msg
}

func (e *StatusError) Is(target error) bool {
	t, ok := target.(*StatusError)
	if !ok {
		return false
	}
	return t.Status == e.Status
}

func statusErr(s Status, msg string) error { return &StatusError{Status: s, Msg: msg} }

// Sentinel *StatusError values for use with errors.Is, one per Status.
var (
	ErrFormat    error = &StatusError{Status: StatusFormat}
	ErrData      error = &StatusError{Status: StatusData}
	ErrOptions   error = &StatusError{Status: StatusOptions}
	ErrMem       error = &StatusError{Status: StatusMem}
	ErrMemlimit  error = &StatusError{Status: StatusMemlimit}
	ErrBuf       error = &StatusError{Status: StatusBuf}
	ErrTimedOut  error = &StatusError{Status: StatusTimedOut}
	ErrProg      error = &StatusError{Status: StatusProg}
)

// Informational, non-fatal results a caller can opt into via
// MTReaderConfig.Flags.
var (
	// errNoCheckInfo is surfaced through MTReader.Check, not returned
	// from Read, when TellNoCheck is set and the Stream uses
	// CheckNone.
	errNoCheckInfo = errors.New("xz: stream has no integrity check")
	// errUnsupportedCheck signals a check kind this build cannot
	// compute: one of the reserved nibble values, which have a size
	// in the check size table but no assigned algorithm.
	errUnsupportedCheck = errors.New("xz: unsupported check kind")
)
