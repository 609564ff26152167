package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

// Client streams audio to a relay and waits for its reply.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	replyCh chan Reply
	errCh   chan error
}

// Dial connects to a relay speech endpoint, e.g. ws://host:8090/speech?n=1.
func Dial(ctx context.Context, endpoint string, header http.Header) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return nil, errors.Wrapf(err, "dial relay %s", endpoint)
	}

	c := &Client{
		conn:    conn,
		replyCh: make(chan Reply, 1),
		errCh:   make(chan error, 1),
	}
	c.startReceiver()
	return c, nil
}

func (c *Client) SendAudio(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.writeMu.Lock()
	err := c.conn.WriteMessage(websocket.BinaryMessage, data)
	c.writeMu.Unlock()
	return errors.Wrap(err, "send audio frame")
}

// Write makes the client usable as an audio.Pump destination.
func (c *Client) Write(p []byte) (int, error) {
	if err := c.SendAudio(context.Background(), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Finish ends the upload and waits for the relay reply.
func (c *Client) Finish(ctx context.Context) (Reply, error) {
	c.writeMu.Lock()
	err := c.conn.WriteMessage(websocket.TextMessage, []byte(EndOfStream))
	c.writeMu.Unlock()
	if err != nil {
		return Reply{}, errors.Wrap(err, "send end of stream")
	}
	return c.Reply(ctx)
}

// Reply waits for the relay reply without ending the upload. The relay
// replies early when the session fails before the upload completes.
func (c *Client) Reply(ctx context.Context) (Reply, error) {
	select {
	case reply := <-c.replyCh:
		return reply, nil
	case err := <-c.errCh:
		return Reply{}, err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) startReceiver() {
	go func() {
		for {
			messageType, data, err := c.conn.ReadMessage()
			if err != nil {
				c.setErr(errors.Wrap(err, "relay closed before replying"))
				return
			}
			if messageType != websocket.TextMessage {
				continue
			}
			var reply Reply
			if err := json.Unmarshal(data, &reply); err != nil {
				c.setErr(errors.Wrap(err, "decode relay reply"))
				return
			}
			c.replyCh <- reply
			return
		}
	}()
}

func (c *Client) setErr(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}
