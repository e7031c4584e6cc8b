// Package nterr collects the error taxonomy shared by the producer and
// decoder sides of nanotrace, so neither redeclares its own sentinels.
package nterr

import "errors"

var (
	// ErrIO covers file open/create/write/seek/unmap failures.
	ErrIO = errors.New("nanotrace: io error")

	// ErrMap means memory-mapping the buffer region failed.
	ErrMap = errors.New("nanotrace: mmap error")

	// ErrLoadBaseUnknown means the producer could not determine its own
	// load base for the string-literal region.
	ErrLoadBaseUnknown = errors.New("nanotrace: load base unknown")

	// ErrMissingBuffer means the decoder's buffer file input is absent.
	ErrMissingBuffer = errors.New("nanotrace: missing buffer file")

	// ErrMissingProducerBinary means the decoder's producer binary input is absent.
	ErrMissingProducerBinary = errors.New("nanotrace: missing producer binary")

	// ErrMissingLocDecoder means loc_type demands a sibling location
	// decoder and none was found.
	ErrMissingLocDecoder = errors.New("nanotrace: missing location decoder")

	// ErrHeaderInvalid means the buffer header failed validation.
	ErrHeaderInvalid = errors.New("nanotrace: header invalid")

	// ErrUnresolvedString is a per-record warning: a stored msg pointer
	// could not be resolved within the producer binary.
	ErrUnresolvedString = errors.New("nanotrace: unresolved string")

	// ErrTruncatedBuffer means the buffer file is smaller than
	// header+capacity; the decoder emits what it can.
	ErrTruncatedBuffer = errors.New("nanotrace: truncated buffer")
)
