package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func wavFile(f Format, samples []int16, extra ...[]byte) []byte {
	data := int16ToBytes(samples)
	header := EncodeWAVHeader(f, len(data))
	var buf bytes.Buffer
	buf.Write(header[:36])
	for _, chunk := range extra {
		buf.Write(chunk)
	}
	buf.Write(header[36:])
	buf.Write(data)
	return buf.Bytes()
}

func TestDecodeWAV(t *testing.T) {
	file := wavFile(Format{SampleRate: 44100, Channels: 2}, []int16{1, 2, 3, 4})

	format, data, err := DecodeWAV(bytes.NewReader(file))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if format.SampleRate != 44100 || format.Channels != 2 {
		t.Fatalf("unexpected format %+v", format)
	}

	samples := readAllSamples(t, data)
	if len(samples) != 4 || samples[3] != 4 {
		t.Fatalf("unexpected samples %v", samples)
	}
}

func TestDecodeWAVSkipsUnknownChunks(t *testing.T) {
	list := []byte("LIST")
	list = binary.LittleEndian.AppendUint32(list, 3)
	list = append(list, 'a', 'b', 'c', 0)

	file := wavFile(SpeechFormat, []int16{7, 8}, list)
	format, data, err := DecodeWAV(bytes.NewReader(file))
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}
	if format != SpeechFormat {
		t.Fatalf("unexpected format %+v", format)
	}
	samples := readAllSamples(t, data)
	if len(samples) != 2 || samples[0] != 7 {
		t.Fatalf("unexpected samples %v", samples)
	}
}

func TestDecodeWAVRejectsOtherStreams(t *testing.T) {
	if _, _, err := DecodeWAV(bytes.NewReader([]byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00"))); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV, got %v", err)
	}
	if _, _, err := DecodeWAV(bytes.NewReader([]byte("RIFF"))); !errors.Is(err, ErrNotWAV) {
		t.Fatalf("expected ErrNotWAV for a short stream, got %v", err)
	}
}

func TestDecodeWAVRejects8Bit(t *testing.T) {
	file := wavFile(SpeechFormat, []int16{1})
	binary.LittleEndian.PutUint16(file[34:36], 8)

	if _, _, err := DecodeWAV(bytes.NewReader(file)); err == nil {
		t.Fatalf("expected unsupported sample size error")
	}
}

func TestOpenSourceConvertsWAV(t *testing.T) {
	input := make([]int16, 96)
	for i := range input {
		input[i] = 1000
	}
	path := filepath.Join(t.TempDir(), "hello.wav")
	if err := os.WriteFile(path, wavFile(Format{SampleRate: 48000, Channels: 1}, input), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}

	src, err := OpenSource(path, SpeechFormat)
	if err != nil {
		t.Fatalf("OpenSource failed: %v", err)
	}
	defer src.Close()

	if src.Input.SampleRate != 48000 {
		t.Fatalf("expected input rate from the wav header, got %d", src.Input.SampleRate)
	}
	samples := readAllSamples(t, src)
	if len(samples) != 32 {
		t.Fatalf("expected 32 samples, got %d", len(samples))
	}
	if samples[10] != 1000 {
		t.Fatalf("expected constant signal, got %d", samples[10])
	}
}

func TestOpenSourceRawUsesGivenFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech.raw")
	if err := os.WriteFile(path, pcm(1, 2, 3), 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}

	src, err := OpenSource(path, SpeechFormat)
	if err != nil {
		t.Fatalf("OpenSource failed: %v", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, pcm(1, 2, 3)) {
		t.Fatalf("expected raw speech-format audio to pass through")
	}
}

func TestOpenSourceMissingFile(t *testing.T) {
	if _, err := OpenSource(filepath.Join(t.TempDir(), "nope.wav"), SpeechFormat); err == nil {
		t.Fatalf("expected error")
	}
}
