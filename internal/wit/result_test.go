package wit

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
	"testing"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestTransportStatus(t *testing.T) {
	wrap := func(err error) error {
		return &url.Error{Op: "Post", URL: "https://api.wit.ai/speech", Err: err}
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"canceled", wrap(context.Canceled), StatusCanceled},
		{"deadline", wrap(context.DeadlineExceeded), StatusTimeout},
		{"dns", wrap(&net.OpError{Op: "dial", Err: &net.DNSError{Err: "no such host", Name: "x"}}), StatusNameResolutionFailure},
		{"unknown authority", wrap(x509.UnknownAuthorityError{}), StatusTLSFailure},
		{"hostname", wrap(x509.HostnameError{Host: "api.wit.ai"}), StatusTLSFailure},
		{"timeout", wrap(&net.OpError{Op: "read", Err: timeoutError{}}), StatusTimeout},
		{"refused", wrap(&net.OpError{Op: "dial", Err: errors.New("connection refused")}), StatusConnectFailure},
		{"other", wrap(errors.New("unexpected EOF")), StatusTransportError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := transportStatus(tt.err); got != tt.want {
				t.Fatalf("transportStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLocalStatusesNeverCollideWithHTTP(t *testing.T) {
	for _, code := range []int{
		StatusLocalError, StatusTransportError, StatusConnectFailure,
		StatusNameResolutionFailure, StatusTimeout, StatusTLSFailure, StatusCanceled,
	} {
		if code >= 0 {
			t.Fatalf("status %d overlaps the HTTP range", code)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if OutcomeLocalFailure.String() != "local_failure" {
		t.Fatalf("unexpected outcome name %q", OutcomeLocalFailure.String())
	}
	if !(Result{Outcome: OutcomeSuccess}).OK() {
		t.Fatalf("success result should be OK")
	}
}
