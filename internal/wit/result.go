package wit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"

	"github.com/pkg/errors"
)

// Status codes for outcomes detected on this side of the connection. They
// never collide with HTTP status codes.
const (
	StatusLocalError            = -1
	StatusTransportError        = -2
	StatusConnectFailure        = -3
	StatusNameResolutionFailure = -4
	StatusTimeout               = -5
	StatusTLSFailure            = -6
	StatusCanceled              = -7
)

// Outcome tags how a session completed.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeProtocolFailure
	OutcomeTransportFailure
	OutcomeLocalFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSuccess:
		return "success"
	case OutcomeProtocolFailure:
		return "protocol_failure"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeLocalFailure:
		return "local_failure"
	default:
		return "unknown"
	}
}

// Result is the terminal state of a session.
//
// Payload is set only for OutcomeSuccess. Err carries the underlying error
// for transport and local failures.
type Result struct {
	Outcome     Outcome
	StatusCode  int
	Description string
	Payload     *Node
	Err         error
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess
}

func successResult(code int, description string, payload *Node) Result {
	return Result{
		Outcome:     OutcomeSuccess,
		StatusCode:  code,
		Description: description,
		Payload:     payload,
	}
}

func protocolFailure(code int, description string) Result {
	return Result{
		Outcome:     OutcomeProtocolFailure,
		StatusCode:  code,
		Description: description,
	}
}

func localFailure(err error) Result {
	return Result{
		Outcome:     OutcomeLocalFailure,
		StatusCode:  StatusLocalError,
		Description: err.Error(),
		Err:         err,
	}
}

func transportFailure(err error) Result {
	return Result{
		Outcome:     OutcomeTransportFailure,
		StatusCode:  transportStatus(err),
		Description: err.Error(),
		Err:         err,
	}
}

// transportStatus maps a transport error to its failure category.
func transportStatus(err error) int {
	var (
		dnsErr     *net.DNSError
		verifyErr  *tls.CertificateVerificationError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		recordErr  tls.RecordHeaderError
		netErr     net.Error
		opErr      *net.OpError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.As(err, &dnsErr):
		return StatusNameResolutionFailure
	case errors.As(err, &verifyErr), errors.As(err, &authErr), errors.As(err, &hostErr),
		errors.As(err, &invalidErr), errors.As(err, &recordErr):
		return StatusTLSFailure
	case errors.As(err, &netErr) && netErr.Timeout():
		return StatusTimeout
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return StatusConnectFailure
	default:
		return StatusTransportError
	}
}
