package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chenshaoyu1995/wit-unity/internal/audio"
	"github.com/chenshaoyu1995/wit-unity/internal/wit"
)

func TestNewSessionCommands(t *testing.T) {
	client := wit.NewClient(wit.StaticCredentials{})
	opts := options{limit: 10, offset: 20, params: paramList{{Key: "n", Value: "2"}}}

	cases := []struct {
		command string
		args    []string
		kind    wit.Kind
		path    string
	}{
		{"message", []string{"hello", "there"}, wit.KindMessage, "message"},
		{"speech", []string{"a.wav"}, wit.KindSpeech, "speech"},
		{"entities", nil, wit.KindEntities, "entities"},
		{"entity", []string{"color"}, wit.KindEntities, "entities/color"},
		{"apps", nil, wit.KindApps, "apps"},
		{"app", []string{"42"}, wit.KindApps, "apps/42"},
		{"request", []string{"language", "q=bonjour"}, wit.KindGeneric, "language"},
	}
	for _, tc := range cases {
		t.Run(tc.command, func(t *testing.T) {
			session, err := newSession(client, tc.command, tc.args, opts)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, session.Kind())
			assert.Equal(t, tc.path, session.Path())
		})
	}
}

func TestNewSessionParams(t *testing.T) {
	client := wit.NewClient(wit.StaticCredentials{})
	opts := options{params: paramList{{Key: "n", Value: "2"}}}

	message, err := newSession(client, "message", []string{"hello", "there"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []wit.QueryParam{{Key: "q", Value: "hello there"}, {Key: "n", Value: "2"}}, message.QueryParams())

	apps, err := newSession(client, "apps", nil, options{limit: 10, offset: 20})
	require.NoError(t, err)
	assert.Equal(t, []wit.QueryParam{{Key: "limit", Value: "10"}, {Key: "offset", Value: "20"}}, apps.QueryParams())

	generic, err := newSession(client, "request", []string{"language", "q=bonjour"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []wit.QueryParam{{Key: "n", Value: "2"}, {Key: "q", Value: "bonjour"}}, generic.QueryParams())
}

func TestNewSessionErrors(t *testing.T) {
	client := wit.NewClient(wit.StaticCredentials{})

	_, err := newSession(client, "message", nil, options{})
	assert.Error(t, err)
	_, err = newSession(client, "request", []string{"x", "novalue"}, options{})
	assert.Error(t, err)
	_, err = newSession(client, "dance", nil, options{})
	assert.Error(t, err)
}

func TestParamListFlag(t *testing.T) {
	var params paramList
	require.NoError(t, params.Set("context={}"))
	require.NoError(t, params.Set("n=1=2"))
	assert.Error(t, params.Set("=x"))
	assert.Equal(t, "context={}&n=1=2", params.String())
}

func TestWriteTone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, writeTone([]string{path, "880", "0.5"}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	format, data, err := audio.DecodeWAV(file)
	require.NoError(t, err)
	assert.Equal(t, audio.SpeechFormat, format)
	pcm, err := io.ReadAll(data)
	require.NoError(t, err)
	assert.Len(t, pcm, 16000)

	assert.Error(t, writeTone(nil))
	assert.Error(t, writeTone([]string{path, "loud"}))
}
