package audio

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Source is PCM converted to SpeechFormat, read from a file.
type Source struct {
	io.Reader
	// Input is the format of the file before conversion.
	Input Format
	file  *os.File
}

// OpenSource opens a .wav file, or raw PCM described by raw for any other
// extension, and converts it to SpeechFormat.
func OpenSource(path string, raw Format) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open audio")
	}

	var (
		in     = raw
		reader io.Reader = file
	)
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		in, reader, err = DecodeWAV(file)
		if err != nil {
			_ = file.Close()
			return nil, errors.Wrapf(err, "decode %s", path)
		}
	}

	converted, err := NewResamplingReader(reader, in, SpeechFormat.SampleRate)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return &Source{Reader: converted, Input: in, file: file}, nil
}

func (s *Source) Close() error {
	return s.file.Close()
}
