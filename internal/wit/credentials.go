package wit

import "strings"

// Credentials supplies the access tokens a session authorizes with.
// ServerAccessToken reports false when the server token is not available in
// the current context.
type Credentials interface {
	ClientAccessToken() string
	ServerAccessToken() (string, bool)
}

// StaticCredentials holds both tokens in memory.
type StaticCredentials struct {
	ClientToken string
	ServerToken string
}

func (c StaticCredentials) ClientAccessToken() string {
	return c.ClientToken
}

func (c StaticCredentials) ServerAccessToken() (string, bool) {
	token := strings.TrimSpace(c.ServerToken)
	return token, token != ""
}

type runtimeCredentials struct {
	Credentials
}

// RuntimeCredentials hides the server token of c. Privileged requests made
// with the result always fail with ErrServerTokenUnavailable.
func RuntimeCredentials(c Credentials) Credentials {
	return runtimeCredentials{Credentials: c}
}

func (runtimeCredentials) ServerAccessToken() (string, bool) {
	return "", false
}

func authorization(creds Credentials, kind Kind) (string, error) {
	if kind.Privileged() {
		if creds == nil {
			return "", ErrServerTokenUnavailable
		}
		token, ok := creds.ServerAccessToken()
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			return "", ErrServerTokenUnavailable
		}
		return "Bearer " + token, nil
	}

	if creds == nil {
		return "", ErrClientTokenMissing
	}
	token := strings.TrimSpace(creds.ClientAccessToken())
	if token == "" {
		return "", ErrClientTokenMissing
	}
	return "Bearer " + token, nil
}
