package wit

import "github.com/pkg/errors"

var (
	ErrServerTokenUnavailable = errors.New("wit: server access token is not available in this context")
	ErrClientTokenMissing     = errors.New("wit: client access token is required")
	ErrAlreadyStarted         = errors.New("wit: request already started")
	ErrStreamNotOpen          = errors.New("wit: request stream is not open, wait for the input ready callback before writing")
	ErrStreamClosed           = errors.New("wit: request stream is closed")
)

// IsStreamError reports whether err signals a write outside the open
// window of the request stream.
func IsStreamError(err error) bool {
	return errors.Is(err, ErrStreamNotOpen) || errors.Is(err, ErrStreamClosed)
}
