package wit

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chenshaoyu1995/wit-unity/internal/logging"
)

const (
	DefaultBaseURL = "https://api.wit.ai"
	APIVersion     = "20200513"

	acceptHeader = "application/vnd.wit." + APIVersion + "+json"
)

// QueryParam is one key/value pair of the request URI. Keys are sent
// verbatim, values are percent-encoded.
type QueryParam struct {
	Key   string
	Value string
}

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type settings struct {
	baseURL string
	doer    Doer
	logger  *zap.SugaredLogger
}

// Option configures a Session or a Client.
type Option func(*settings)

// WithBaseURL replaces https://api.wit.ai, e.g. for a proxy or a test server.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		s.baseURL = baseURL
	}
}

func WithHTTPClient(doer Doer) Option {
	return func(s *settings) {
		s.doer = doer
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

func newSettings(opts []Option) settings {
	s := settings{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&s)
	}
	if s.doer == nil {
		s.doer = defaultHTTPClient()
	}
	return s
}

// Session manages the lifecycle of one request to Wit.ai: the optional
// chunked upload of a request body and the asynchronous response.
//
// OnResponse fires exactly once per started session, on the goroutine that
// observed the network event.
type Session struct {
	id     string
	creds  Credentials
	kind   Kind
	path   string
	params []QueryParam
	cfg    settings
	log    *zap.SugaredLogger

	mu            sync.Mutex
	state         State
	url           *url.URL
	body          *io.PipeWriter
	streamOpen    bool
	streamClosed  bool
	result        Result
	onInputReady  func(*Session)
	onResponse    func(*Session)
	onRawResponse func(string)

	doneOnce sync.Once
	done     chan struct{}
}

// NewSession creates an idle session. No network activity happens until
// Start is called.
func NewSession(creds Credentials, path string, params []QueryParam, opts ...Option) *Session {
	cfg := newSettings(opts)
	s := &Session{
		id:     uuid.NewString(),
		creds:  creds,
		kind:   KindForPath(path),
		path:   path,
		params: slices.Clone(params),
		cfg:    cfg,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
	s.log = cfg.logger
	if s.log == nil {
		s.log = logging.ForSession(s.id, s.kind.Name())
	} else {
		s.log = s.log.With("session_id", s.id, "kind", s.kind.Name())
	}
	return s
}

// OnInputReady sets the callback invoked once the request stream accepts
// writes. Without it, streamed requests are sent with an empty body.
func (s *Session) OnInputReady(handler func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInputReady = handler
}

// OnResponse sets the terminal callback.
func (s *Session) OnResponse(handler func(*Session)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResponse = handler
}

// OnRawResponse sets the callback receiving the unparsed response body.
func (s *Session) OnRawResponse(handler func(string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRawResponse = handler
}

// Start sends the request without blocking. Configuration errors are
// returned before any transport call and leave the session idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.Wrapf(ErrAlreadyStarted, "session %s is %s", s.id, s.state)
	}

	req, err := s.newRequest(ctx)
	if err != nil {
		s.mu.Unlock()
		s.log.Errorw("request rejected", "error", err)
		return err
	}

	s.transition(StateStarting)
	s.url = req.URL
	s.result = Result{Outcome: OutcomePending, Description: "Starting request"}
	streamed := s.body != nil
	s.mu.Unlock()

	s.log.Debugw("starting request", "method", req.Method, "url", req.URL.String())

	if streamed {
		go s.openRequestStream()
	}
	go s.awaitResponse(req)
	return nil
}

// Write appends p to the streamed request body. It blocks until the
// transport has consumed p and keeps no reference to it afterwards.
func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	switch {
	case s.streamOpen:
	case s.streamClosed || s.state == StateCompleted:
		s.mu.Unlock()
		return 0, ErrStreamClosed
	default:
		s.mu.Unlock()
		return 0, ErrStreamNotOpen
	}
	w := s.body
	s.mu.Unlock()

	n, err := w.Write(p)
	if err != nil {
		if errors.Is(err, io.ErrClosedPipe) {
			return n, ErrStreamClosed
		}
		return n, errors.Wrap(err, "write request body")
	}
	return n, nil
}

// CloseRequestStream ends the streamed body. Streamed requests complete only
// after it is called. Calling it again is a no-op.
func (s *Session) CloseRequestStream() error {
	s.closeStream()
	return nil
}

// closeStream reports whether the stream was open for writes when closed.
func (s *Session) closeStream() bool {
	s.mu.Lock()
	w := s.body
	if w == nil || s.streamClosed {
		s.mu.Unlock()
		return false
	}
	wasOpen := s.streamOpen
	s.streamOpen = false
	s.streamClosed = true
	s.mu.Unlock()

	_ = w.Close()
	return wasOpen
}

func (s *Session) openRequestStream() {
	s.mu.Lock()
	if s.state != StateStarting || s.streamClosed {
		s.mu.Unlock()
		return
	}
	s.streamOpen = true
	s.transition(StateWritingBody)
	handler := s.onInputReady
	s.mu.Unlock()

	if handler == nil {
		s.closeStream()
		return
	}
	handler(s)
}

func (s *Session) awaitResponse(req *http.Request) {
	resp, err := s.cfg.doer.Do(req)

	if s.closeStream() {
		s.log.Warnw("request stream was still open when the response arrived, closing")
	}

	if err != nil {
		s.log.Errorw("request failed", "error", err)
		s.complete(transportFailure(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	s.mu.Lock()
	s.transition(StateAwaitingResponse)
	s.mu.Unlock()

	s.complete(s.readResponse(resp))
}

func (s *Session) readResponse(resp *http.Response) Result {
	code := resp.StatusCode
	description := reasonPhrase(resp)
	if code < 200 || code > 299 {
		return protocolFailure(code, description)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return localFailure(errors.Wrap(err, "read response body"))
	}

	s.mu.Lock()
	raw := s.onRawResponse
	s.mu.Unlock()
	if raw != nil {
		raw(string(data))
	}

	node, err := ParseNode(data)
	if err != nil {
		return localFailure(err)
	}
	return successResult(code, description, node)
}

func (s *Session) complete(result Result) {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.result = result
		s.transition(StateCompleted)
		s.streamOpen = false
		s.streamClosed = true
		handler := s.onResponse
		s.mu.Unlock()

		s.log.Infow("request completed",
			"outcome", result.Outcome.String(),
			"status", result.StatusCode,
			"description", result.Description,
		)

		defer close(s.done)
		if handler != nil {
			handler(s)
		}
	})
}

// transition must be called with s.mu held.
func (s *Session) transition(to State) {
	if !canTransition(s.state, to) {
		s.log.Warnw("unexpected state transition", "from", s.state.String(), "to", to.String())
	}
	s.state = to
}

func (s *Session) newRequest(ctx context.Context) (*http.Request, error) {
	auth, err := authorization(s.creds, s.kind)
	if err != nil {
		return nil, errors.Wrapf(err, "%s request", s.kind)
	}

	u, err := buildURL(s.cfg.baseURL, s.path, s.params)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	var pw *io.PipeWriter
	if s.kind.StreamsBody() {
		var pr *io.PipeReader
		pr, pw = io.Pipe()
		body = pr
	}

	req, err := http.NewRequestWithContext(ctx, s.kind.Method(), u.String(), body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Authorization", auth)
	if ct := s.kind.Content().ContentType(); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if pw != nil {
		req.ContentLength = -1
		s.body = pw
	}
	return req, nil
}

// buildURL joins base, path and the encoded query. An empty params list
// produces no query string at all.
func buildURL(base, path string, params []QueryParam) (*url.URL, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, "parse base url %q", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	u.RawQuery = encodeQuery(params)
	u.ForceQuery = false
	return u, nil
}

func encodeQuery(params []QueryParam) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Key+"="+escapeDataString(p.Value))
	}
	return strings.Join(parts, "&")
}

// escapeDataString percent-encodes everything except RFC 3986 unreserved
// characters. Spaces become %20.
func escapeDataString(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

func reasonPhrase(resp *http.Response) string {
	reason, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	switch {
	case ok && reason != "":
		return reason
	case !ok && resp.Status != "":
		return resp.Status
	default:
		return http.StatusText(resp.StatusCode)
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Kind() Kind {
	return s.kind
}

func (s *Session) Path() string {
	return s.path
}

func (s *Session) QueryParams() []QueryParam {
	return slices.Clone(s.params)
}

// URL returns the request URI, nil before Start.
func (s *Session) URL() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.url == nil {
		return nil
	}
	u := *s.url
	return &u
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsActive reports whether the request is in flight.
func (s *Session) IsActive() bool {
	state := s.State()
	return state != StateIdle && state != StateCompleted
}

func (s *Session) StatusCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.StatusCode
}

func (s *Session) StatusDescription() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Description
}

// Response returns the parsed payload, nil unless the session succeeded.
func (s *Session) Response() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Payload
}

func (s *Session) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Done is closed after OnResponse returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session completes or ctx ends. It must not be
// called from the OnResponse callback.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
		return s.Result(), nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (s *Session) String() string {
	return s.path
}
