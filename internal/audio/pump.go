package audio

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
)

// Pump copies src to dst in writes of at most chunkBytes. With realtime set
// it waits after each chunk for the time the chunk takes to play in
// SpeechFormat, like a live microphone would.
func Pump(ctx context.Context, dst io.Writer, src io.Reader, chunkBytes int, realtime bool) (int64, error) {
	if chunkBytes <= 0 {
		return 0, errors.Errorf("invalid chunk size: %d", chunkBytes)
	}

	buf := make([]byte, chunkBytes)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			written, err := dst.Write(buf[:n])
			total += int64(written)
			if err != nil {
				return total, errors.Wrap(err, "write audio chunk")
			}
			if realtime {
				if err := sleep(ctx, chunkDuration(n)); err != nil {
					return total, err
				}
			}
		}

		switch {
		case readErr == nil:
		case errors.Is(readErr, io.EOF), errors.Is(readErr, io.ErrUnexpectedEOF):
			return total, nil
		default:
			return total, errors.Wrap(readErr, "read audio")
		}
	}
}

func chunkDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(SpeechFormat.BytesPerSecond())
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
