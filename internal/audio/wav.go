package audio

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Format describes interleaved signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// SpeechFormat is the PCM layout the speech endpoint expects.
var SpeechFormat = Format{SampleRate: 16000, Channels: 1}

// BytesPerSecond of f.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

var ErrNotWAV = errors.New("audio: not a RIFF/WAVE stream")

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV reads the RIFF header of r and returns the PCM format together
// with a reader positioned at the start of the sample data. Only 16-bit
// PCM is supported.
func DecodeWAV(r io.Reader) (Format, io.Reader, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Format{}, nil, errors.Wrap(ErrNotWAV, err.Error())
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Format{}, nil, ErrNotWAV
	}

	var format Format
	haveFormat := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return Format{}, nil, errors.Wrap(err, "read wav chunk header")
		}
		id := string(chunk[0:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, nil, errors.Errorf("wav fmt chunk too short: %d bytes", size)
			}
			body := make([]byte, size+size%2)
			if _, err := io.ReadFull(r, body); err != nil {
				return Format{}, nil, errors.Wrap(err, "read wav fmt chunk")
			}
			audioFormat := binary.LittleEndian.Uint16(body[0:2])
			channels := int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate := int(binary.LittleEndian.Uint32(body[4:8]))
			bits := binary.LittleEndian.Uint16(body[14:16])
			if audioFormat != wavFormatPCM && audioFormat != wavFormatExtensible {
				return Format{}, nil, errors.Errorf("unsupported wav encoding %#x", audioFormat)
			}
			if bits != 16 {
				return Format{}, nil, errors.Errorf("unsupported wav sample size: %d bits", bits)
			}
			if channels <= 0 || sampleRate <= 0 {
				return Format{}, nil, errors.Errorf("invalid wav format: %d channels at %d Hz", channels, sampleRate)
			}
			format = Format{SampleRate: sampleRate, Channels: channels}
			haveFormat = true
		case "data":
			if !haveFormat {
				return Format{}, nil, errors.New("wav data chunk before fmt chunk")
			}
			return format, io.LimitReader(r, size), nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size%2); err != nil {
				return Format{}, nil, errors.Wrapf(err, "skip wav chunk %q", id)
			}
		}
	}
}

// EncodeWAVHeader returns a 44-byte header for dataBytes of PCM in f.
func EncodeWAVHeader(f Format, dataBytes int) []byte {
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataBytes))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(f.BytesPerSecond()))
	binary.LittleEndian.PutUint16(header[32:34], uint16(f.Channels*2))
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataBytes))
	return header
}
