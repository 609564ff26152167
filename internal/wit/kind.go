package wit

import (
	"net/http"
	"strings"
)

// Audio format expected by the speech endpoint.
const (
	AudioEncoding   = "signed-integer"
	AudioBits       = 16
	AudioSampleRate = 16000
	AudioEndian     = "little"

	RawAudioContentType = "audio/raw;encoding=signed-integer;bits=16;rate=16000;endian=little"
)

// AuthPolicy selects which credential authorizes a request.
type AuthPolicy int

const (
	AuthClient AuthPolicy = iota
	AuthServer
)

func (p AuthPolicy) String() string {
	switch p {
	case AuthClient:
		return "client"
	case AuthServer:
		return "server"
	default:
		return "unknown"
	}
}

// ContentPolicy selects the content type and transfer mode of a request.
type ContentPolicy int

const (
	ContentDefault ContentPolicy = iota
	ContentRawAudio
)

func (p ContentPolicy) String() string {
	switch p {
	case ContentDefault:
		return "default"
	case ContentRawAudio:
		return "raw-audio"
	default:
		return "unknown"
	}
}

// ContentType returns the request content type, empty for single-shot requests.
func (p ContentPolicy) ContentType() string {
	if p == ContentRawAudio {
		return RawAudioContentType
	}
	return ""
}

// Kind is one of a closed set of request kinds. Each kind carries the auth
// and content policies for requests to its endpoint.
type Kind struct {
	name    string
	auth    AuthPolicy
	content ContentPolicy
}

var (
	KindMessage  = Kind{name: "message", auth: AuthClient, content: ContentDefault}
	KindSpeech   = Kind{name: "speech", auth: AuthClient, content: ContentRawAudio}
	KindEntities = Kind{name: "entities", auth: AuthServer, content: ContentDefault}
	KindApp      = Kind{name: "app", auth: AuthServer, content: ContentDefault}
	KindApps     = Kind{name: "apps", auth: AuthServer, content: ContentDefault}
	KindGeneric  = Kind{name: "generic", auth: AuthClient, content: ContentDefault}
)

// Kinds lists every request kind.
func Kinds() []Kind {
	return []Kind{KindMessage, KindSpeech, KindEntities, KindApp, KindApps, KindGeneric}
}

// KindForPath maps the first segment of a resource path to its kind.
// Unknown segments map to KindGeneric.
func KindForPath(path string) Kind {
	command, _, _ := strings.Cut(strings.TrimLeft(path, "/"), "/")
	for _, kind := range Kinds() {
		if kind != KindGeneric && kind.name == command {
			return kind
		}
	}
	return KindGeneric
}

func (k Kind) Name() string {
	return k.name
}

func (k Kind) String() string {
	return k.name
}

func (k Kind) Auth() AuthPolicy {
	return k.auth
}

func (k Kind) Content() ContentPolicy {
	return k.content
}

// Privileged reports whether the kind needs the server credential.
func (k Kind) Privileged() bool {
	return k.auth == AuthServer
}

// StreamsBody reports whether requests of this kind upload a chunked body.
func (k Kind) StreamsBody() bool {
	return k.content == ContentRawAudio
}

func (k Kind) Method() string {
	if k.StreamsBody() {
		return http.MethodPost
	}
	return http.MethodGet
}
