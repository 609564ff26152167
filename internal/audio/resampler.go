package audio

import (
	"io"

	"github.com/pkg/errors"
)

// ResamplingReader converts interleaved signed 16-bit little-endian PCM to
// mono at OutputRate using linear interpolation. It keeps its position
// across reads, so chunk boundaries do not drift.
type ResamplingReader struct {
	source     io.Reader
	channels   int
	inputRate  int64
	outputRate int64

	raw    []byte
	carry  []byte
	frames []int16
	out    []byte

	// outIndex counts emitted samples, consumed counts input frames dropped
	// from the front of frames. The input position of output sample k is
	// k*inputRate/outputRate, kept in integers.
	outIndex int64
	consumed int64

	err error
}

// NewResamplingReader wraps source, whose PCM is described by in.
func NewResamplingReader(source io.Reader, in Format, outputRate int) (*ResamplingReader, error) {
	if in.SampleRate <= 0 || outputRate <= 0 {
		return nil, errors.Errorf("invalid sample rate: input=%d, output=%d", in.SampleRate, outputRate)
	}
	if in.Channels <= 0 {
		return nil, errors.Errorf("invalid channels: %d", in.Channels)
	}

	return &ResamplingReader{
		source:     source,
		channels:   in.Channels,
		inputRate:  int64(in.SampleRate),
		outputRate: int64(outputRate),
		raw:        make([]byte, 4096),
	}, nil
}

func (r *ResamplingReader) Read(p []byte) (int, error) {
	if r.inputRate == r.outputRate && r.channels == 1 {
		return r.source.Read(p)
	}

	for len(r.out) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		r.fill()
	}

	n := copy(p, r.out)
	r.out = r.out[n:]
	return n, nil
}

func (r *ResamplingReader) fill() {
	n, err := r.source.Read(r.raw)
	if n > 0 {
		data := r.raw[:n]
		if len(r.carry) > 0 {
			data = append(append([]byte(nil), r.carry...), data...)
		}
		frameBytes := 2 * r.channels
		whole := len(data) - len(data)%frameBytes
		r.frames = append(r.frames, downmix(data[:whole], r.channels)...)
		r.carry = append(r.carry[:0], data[whole:]...)
		r.interpolate(false)
	}
	if err != nil {
		r.interpolate(true)
		r.err = err
	}
}

func (r *ResamplingReader) interpolate(flush bool) {
	var samples []int16
	for {
		num := r.outIndex * r.inputRate
		i := int(num/r.outputRate - r.consumed)
		frac := float64(num%r.outputRate) / float64(r.outputRate)

		switch {
		case i+1 < len(r.frames):
			v := float64(r.frames[i])*(1-frac) + float64(r.frames[i+1])*frac
			samples = append(samples, clamp16(v))
		case flush && i < len(r.frames):
			samples = append(samples, r.frames[i])
		default:
			r.drop()
			r.out = append(r.out, int16ToBytes(samples)...)
			return
		}
		r.outIndex++
	}
}

// drop discards input frames no later sample interpolates from.
func (r *ResamplingReader) drop() {
	next := int((r.outIndex*r.inputRate)/r.outputRate - r.consumed)
	if next > len(r.frames) {
		next = len(r.frames)
	}
	if next <= 0 {
		return
	}
	n := copy(r.frames, r.frames[next:])
	r.frames = r.frames[:n]
	r.consumed += int64(next)
}

// Close closes the source if it supports it.
func (r *ResamplingReader) Close() error {
	if closer, ok := r.source.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func downmix(data []byte, channels int) []int16 {
	samples := bytesToInt16(data)
	if channels == 1 {
		return samples
	}
	mono := make([]int16, len(samples)/channels)
	for f := range mono {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += int(samples[f*channels+ch])
		}
		mono[f] = int16(sum / channels)
	}
	return mono
}

func clamp16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// bytesToInt16 decodes little-endian samples; a trailing odd byte is ignored.
func bytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

func int16ToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}
