package errors

import stdErrors "errors"

// CodecError is a specialized error type for record encode/decode failures.
// It embeds baseError to inherit chaining, codes, and structured details,
// then adds the context specific to diagnosing a bad byte range: which
// segment and offset it came from.
type CodecError struct {
	*baseError
	segmentID uint64
	offset    uint64
}

// NewCodecError creates a new codec-specific error.
func NewCodecError(err error, code ErrorCode, msg string) *CodecError {
	return &CodecError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the CodecError type.
func (ce *CodecError) WithMessage(msg string) *CodecError {
	ce.baseError.WithMessage(msg)
	return ce
}

// WithCode sets the error code while preserving the CodecError type.
func (ce *CodecError) WithCode(code ErrorCode) *CodecError {
	ce.baseError.WithCode(code)
	return ce
}

// WithDetail adds contextual information while maintaining the CodecError type.
func (ce *CodecError) WithDetail(key string, value any) *CodecError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithSegmentID records which segment the offending bytes came from.
func (ce *CodecError) WithSegmentID(id uint64) *CodecError {
	ce.segmentID = id
	return ce
}

// WithOffset records where in the segment the offending bytes start.
func (ce *CodecError) WithOffset(offset uint64) *CodecError {
	ce.offset = offset
	return ce
}

// SegmentID returns the segment the offending bytes came from.
func (ce *CodecError) SegmentID() uint64 {
	return ce.segmentID
}

// Offset returns where in the segment the offending bytes start.
func (ce *CodecError) Offset() uint64 {
	return ce.offset
}

// IsCodecError checks if the given error is a CodecError or wraps one.
func IsCodecError(err error) bool {
	var ce *CodecError
	return stdErrors.As(err, &ce)
}

// AsCodecError extracts a CodecError from an error chain.
func AsCodecError(err error) (*CodecError, bool) {
	var ce *CodecError
	if stdErrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
