// Package camera delivers frames from capture sources: MJPEG-over-HTTP
// streams (IP and phone cameras) and directories of prepared images.
package camera

import (
	"context"
	"strings"
	"time"
)

// Frame is one captured image. Data holds the encoded bytes as delivered by
// the source; decoding is left to the consumer.
type Frame struct {
	Number     int
	Data       []byte
	CapturedAt time.Time
}

// Source delivers frames in capture order. Next blocks until a frame is
// available and returns io.EOF when the source is exhausted. Sources are not
// safe for concurrent use.
type Source interface {
	Next(ctx context.Context) (*Frame, error)
	Close() error
}

// Open dispatches on the source string: HTTP URLs open an MJPEG stream,
// anything else is treated as a directory of image files.
func Open(ctx context.Context, source string) (Source, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return OpenStream(ctx, source)
	}
	return OpenDirectory(source)
}
