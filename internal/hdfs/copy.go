package hdfs

import (
	"context"
	"errors"
	"io"

	"golang.org/x/time/rate"
)

// DefaultChunkSize is the read size used by WriteAll.
const DefaultChunkSize = 1 << 20

// CopyOptions tunes WriteAll.
type CopyOptions struct {
	// ChunkSize is the read buffer size. Zero means DefaultChunkSize.
	ChunkSize int
	// Limiter throttles bytes per second when set.
	Limiter *rate.Limiter
}

// NewRateLimiter returns a limiter allowing bytesPerSec, or nil when the
// limit is not positive.
func NewRateLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := int(bytesPerSec)
	if bytesPerSec > DefaultChunkSize {
		burst = DefaultChunkSize
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// WriteAll copies r into w, re-issuing writes until every byte read has been
// accepted. Writer.Write may return short counts; this is the loop that
// handles them. ctx is checked between writes.
func WriteAll(ctx context.Context, w io.Writer, r io.Reader, opts CopyOptions) (int64, error) {
	size := opts.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	buf := make([]byte, size)

	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, readErr := r.Read(buf)
		for off := 0; off < n; {
			end := n
			if opts.Limiter != nil {
				if burst := opts.Limiter.Burst(); end-off > burst {
					end = off + burst
				}
				if err := opts.Limiter.WaitN(ctx, end-off); err != nil {
					return total, err
				}
			} else if err := ctx.Err(); err != nil {
				return total, err
			}

			m, err := w.Write(buf[off:end])
			total += int64(m)
			off += m
			if err != nil {
				return total, err
			}
			if m == 0 {
				return total, io.ErrShortWrite
			}
		}
		if errors.Is(readErr, io.EOF) {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}
