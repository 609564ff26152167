package wit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWitServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":"`+r.URL.Query().Get("q")+`","intents":[{"name":"greet","confidence":0.9}]}`)
	})
	mux.HandleFunc("/apps", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer server-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		q := r.URL.Query()
		_, _ = io.WriteString(w, `[{"id":"1","limit":"`+q.Get("limit")+`","offset":"`+q.Get("offset")+`"}]`)
	})
	mux.HandleFunc("/apps/42", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"42","name":"lights"}`)
	})
	mux.HandleFunc("/entities/color", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name":"color","keywords":[{"keyword":"red"}]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientMessageRequest(t *testing.T) {
	server := newWitServer(t)
	client := NewClient(testCreds(), WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	s := client.MessageRequest("hello", QueryParam{Key: "n", Value: "1"})
	assert.Equal(t, KindMessage, s.Kind())
	assert.Equal(t, []QueryParam{{Key: "q", Value: "hello"}, {Key: "n", Value: "1"}}, s.QueryParams())

	result, err := client.Do(context.Background(), s)
	require.NoError(t, err)
	require.True(t, result.OK(), "result: %+v", result)
	assert.Equal(t, "hello", result.Payload.String("text"))
	assert.Equal(t, "greet", result.Payload.String("intents.0.name"))
}

func TestClientPrivilegedRequests(t *testing.T) {
	server := newWitServer(t)
	client := NewClient(testCreds(), WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	result, err := client.Do(context.Background(), client.AppsRequest(10, 20))
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, "10", result.Payload.String("0.limit"))
	assert.Equal(t, "20", result.Payload.String("0.offset"))

	result, err = client.Do(context.Background(), client.AppRequest("42"))
	require.NoError(t, err)
	assert.Equal(t, "lights", result.Payload.String("name"))

	result, err = client.Do(context.Background(), client.EntityRequest("color"))
	require.NoError(t, err)
	assert.Equal(t, "red", result.Payload.String("keywords.0.keyword"))
}

func TestClientRuntimeCredentialsRejectPrivileged(t *testing.T) {
	server := newWitServer(t)
	client := NewClient(RuntimeCredentials(testCreds()), WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	_, err := client.Do(context.Background(), client.EntitiesRequest())
	require.ErrorIs(t, err, ErrServerTokenUnavailable)

	result, err := client.Do(context.Background(), client.MessageRequest("still works"))
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestClientSpeechRequestKind(t *testing.T) {
	client := NewClient(testCreds(), WithHTTPClient(&mockDoer{}))
	s := client.SpeechRequest()
	assert.Equal(t, KindSpeech, s.Kind())
	assert.Equal(t, "speech", s.Path())
	assert.Equal(t, StateIdle, s.State())
}
