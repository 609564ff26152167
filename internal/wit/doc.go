// Package wit talks to the Wit.ai HTTP API.
//
// A Session owns one request/response exchange. Speech requests upload raw
// PCM as a chunked body: write chunks after the OnInputReady callback fires,
// then call CloseRequestStream. Every started session reports its outcome
// through a single OnResponse call and through Wait.
//
//	client := wit.NewClient(wit.StaticCredentials{ClientToken: token})
//	s := client.SpeechRequest()
//	s.OnInputReady(func(s *wit.Session) {
//		_, _ = s.Write(pcm)
//		_ = s.CloseRequestStream()
//	})
//	result, err := client.Do(ctx, s)
package wit
