package audio

import (
	"math"
	"time"
)

// Tone renders a sine wave at half scale in f, for test recordings.
func Tone(f Format, freq float64, d time.Duration) []byte {
	frames := int(d.Seconds() * float64(f.SampleRate))
	samples := make([]int16, frames*f.Channels)
	for i := 0; i < frames; i++ {
		v := int16(math.Sin(2*math.Pi*freq*float64(i)/float64(f.SampleRate)) * 16383)
		for ch := 0; ch < f.Channels; ch++ {
			samples[i*f.Channels+ch] = v
		}
	}
	return int16ToBytes(samples)
}

// ToneWAV is Tone wrapped in a WAV header.
func ToneWAV(f Format, freq float64, d time.Duration) []byte {
	data := Tone(f, freq, d)
	return append(EncodeWAVHeader(f, len(data)), data...)
}
