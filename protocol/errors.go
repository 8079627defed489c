package protocol

import "errors"

// Errors returned by the status clients and the codec layer. Callers should
// match them with errors.Is; clients wrap them with additional context.
var (
	// ErrMissingHost is returned synchronously, before any socket is
	// opened, when a query is issued with an empty host.
	ErrMissingHost = errors.New("host must not be empty")

	// ErrShortBuffer reports that a varint or frame is incomplete. It is
	// recoverable: the reader should wait for more bytes. It never
	// surfaces to callers of the status clients.
	ErrShortBuffer = errors.New("short buffer")

	// ErrVarIntTooBig reports a varint whose fifth byte still carries the
	// continuation bit. Unlike ErrShortBuffer it is unrecoverable.
	ErrVarIntTooBig = errors.New("varint exceeds five bytes")

	// ErrValueTooLarge reports an outbound value that cannot be encoded
	// in a five byte varint.
	ErrValueTooLarge = errors.New("value does not fit in a five byte varint")

	// ErrUnexpectedPacket reports a response carrying the wrong packet ID.
	ErrUnexpectedPacket = errors.New("unexpected packet id")

	// ErrMalformedResponse reports a response that framed correctly but
	// could not be decoded.
	ErrMalformedResponse = errors.New("malformed status response")

	// ErrTimeout is returned when no complete response arrived within the
	// configured window.
	ErrTimeout = errors.New("query timed out")

	// ErrPrematureClose is returned when the server closed the connection
	// before any response was assembled.
	ErrPrematureClose = errors.New("connection closed before a response arrived")
)
