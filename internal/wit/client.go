package wit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/chenshaoyu1995/wit-unity/internal/logging"
)

// Client builds sessions that share credentials and a transport.
type Client struct {
	creds Credentials
	opts  []Option
}

func NewClient(creds Credentials, opts ...Option) *Client {
	cfg := newSettings(opts)
	return &Client{
		creds: creds,
		// pin the resolved transport so every session reuses its connections
		opts: append(append([]Option{}, opts...), WithHTTPClient(cfg.doer)),
	}
}

// Request creates a session for an arbitrary path. The request kind is
// derived from the first path segment.
func (c *Client) Request(path string, params ...QueryParam) *Session {
	return NewSession(c.creds, path, params, c.opts...)
}

// MessageRequest classifies a text utterance.
func (c *Client) MessageRequest(text string, params ...QueryParam) *Session {
	all := append([]QueryParam{{Key: "q", Value: text}}, params...)
	return c.Request("message", all...)
}

// SpeechRequest classifies streamed audio. Write 16 kHz signed 16-bit
// little-endian mono PCM after the input ready callback fires.
func (c *Client) SpeechRequest(params ...QueryParam) *Session {
	return c.Request("speech", params...)
}

func (c *Client) EntitiesRequest() *Session {
	return c.Request("entities")
}

func (c *Client) EntityRequest(name string) *Session {
	return c.Request("entities/" + name)
}

func (c *Client) AppsRequest(limit, offset int) *Session {
	return c.Request("apps",
		QueryParam{Key: "limit", Value: strconv.Itoa(limit)},
		QueryParam{Key: "offset", Value: strconv.Itoa(offset)},
	)
}

func (c *Client) AppRequest(id string) *Session {
	return c.Request("apps/" + id)
}

// Do starts s and waits for its result.
func (c *Client) Do(ctx context.Context, s *Session) (Result, error) {
	if err := s.Start(ctx); err != nil {
		return Result{}, err
	}
	return s.Wait(ctx)
}

// NewHTTPClient returns a client whose transport negotiates HTTP/2 over TLS.
// Timeout bounds the whole exchange including the streamed upload; zero
// means no limit.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		logging.Warnf("http2 disabled: %v", err)
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

var defaultHTTPClient = sync.OnceValue(func() *http.Client {
	return NewHTTPClient(0)
})
