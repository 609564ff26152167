// Package relay exposes speech requests over a websocket. Each connection
// drives one speech session: binary frames carry PCM audio, a text frame
// "end" closes the upload, and the server answers with a single JSON reply.
package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chenshaoyu1995/wit-unity/internal/audio"
	"github.com/chenshaoyu1995/wit-unity/internal/logging"
	"github.com/chenshaoyu1995/wit-unity/internal/wit"
)

const (
	// EndOfStream is the text frame that closes the audio upload.
	EndOfStream = "end"

	writeTimeout = 5 * time.Second
)

var errSessionDone = errors.New("speech session completed")

// Reply is the single text frame sent back on every connection.
type Reply struct {
	Status      int             `json:"status"`
	Description string          `json:"description"`
	Response    json.RawMessage `json:"response"`
}

func replyFor(result wit.Result) Reply {
	reply := Reply{Status: result.StatusCode, Description: result.Description}
	if result.Payload != nil {
		reply.Response = json.RawMessage(result.Payload.Raw())
	}
	return reply
}

type Options struct {
	// Input is the PCM format clients send. It is converted to
	// audio.SpeechFormat before upload.
	Input          audio.Format
	ChunkBytes     int
	MaxFrameBytes  int64
	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

type Server struct {
	client   *wit.Client
	opts     Options
	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

func NewServer(client *wit.Client, opts Options) *Server {
	if opts.Input.SampleRate == 0 {
		opts.Input = audio.SpeechFormat
	}
	if opts.ChunkBytes <= 0 {
		opts.ChunkBytes = 3200
	}
	if opts.MaxFrameBytes <= 0 {
		opts.MaxFrameBytes = 64 * 1024
	}

	s := &Server{client: client, opts: opts, log: opts.Logger}
	if s.log == nil {
		s.log = logging.With("component", "relay")
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if len(opts.AllowedOrigins) > 0 {
		s.upgrader.CheckOrigin = s.checkOrigin
	}
	return s
}

// Handler serves the speech socket at path and a health check at /healthz.
func (s *Server) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	return mux
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, "*") || slices.Contains(s.opts.AllowedOrigins, origin)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	log := s.log.With("conn_id", uuid.NewString(), "remote", r.RemoteAddr)
	conn.SetReadLimit(s.opts.MaxFrameBytes)

	reply := s.relay(r.Context(), conn, forwardedParams(r.URL.RawQuery), log)
	if err := s.writeReply(conn, reply); err != nil {
		log.Warnw("failed to send reply", "error", err)
		return
	}
	log.Infow("connection finished", "status", reply.Status, "description", reply.Description)
}

func (s *Server) relay(ctx context.Context, conn *websocket.Conn, params []wit.QueryParam, log *zap.SugaredLogger) Reply {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pr, pw := io.Pipe()
	source, err := audio.NewResamplingReader(pr, s.opts.Input, audio.SpeechFormat.SampleRate)
	if err != nil {
		return Reply{Status: wit.StatusLocalError, Description: err.Error()}
	}

	session := s.client.SpeechRequest(params...)
	log = log.With("session_id", session.ID())
	session.OnInputReady(func(session *wit.Session) {
		n, err := audio.Pump(ctx, session, source, s.opts.ChunkBytes, false)
		if err != nil && !wit.IsStreamError(err) && !errors.Is(err, io.ErrClosedPipe) {
			log.Warnw("audio upload interrupted", "bytes", n, "error", err)
		}
		_ = session.CloseRequestStream()
		log.Debugw("audio upload finished", "bytes", n)
	})

	if err := session.Start(ctx); err != nil {
		_ = pr.Close()
		return Reply{Status: wit.StatusLocalError, Description: err.Error()}
	}

	go func() {
		<-session.Done()
		_ = pr.CloseWithError(errSessionDone)
	}()
	go readFrames(conn, pw, cancel, log)

	<-session.Done()
	return replyFor(session.Result())
}

// readFrames copies audio frames into pw until the client sends
// EndOfStream. A dropped connection cancels the session.
func readFrames(conn *websocket.Conn, pw *io.PipeWriter, cancel context.CancelFunc, log *zap.SugaredLogger) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			log.Debugw("connection closed before end of stream", "error", err)
			_ = pw.CloseWithError(err)
			cancel()
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			if _, err := pw.Write(data); err != nil {
				return
			}
		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) == EndOfStream {
				_ = pw.Close()
				return
			}
			log.Debugw("ignoring text frame", "frame", string(data))
		}
	}
}

func (s *Server) writeReply(conn *websocket.Conn, reply Reply) error {
	payload, err := json.Marshal(reply)
	if err != nil {
		return errors.Wrap(err, "encode reply")
	}
	deadline := time.Now().Add(writeTimeout)
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrap(err, "write reply")
	}
	closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, closing, deadline); err != nil {
		s.log.Debugw("close frame not delivered", "error", err)
	}
	return nil
}

// forwardedParams keeps the upgrade query in order, minus the token.
func forwardedParams(rawQuery string) []wit.QueryParam {
	var params []wit.QueryParam
	for part := range strings.SplitSeq(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(key)
		if err != nil || key == "" || key == "token" {
			continue
		}
		if value, err = url.QueryUnescape(value); err != nil {
			continue
		}
		params = append(params, wit.QueryParam{Key: key, Value: value})
	}
	return params
}
