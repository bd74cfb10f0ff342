package camera

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// StreamSource reads frames from a multipart/x-mixed-replace MJPEG stream,
// the format IP and phone camera apps serve. The request lives on the
// context passed to OpenStream; canceling it ends the stream.
type StreamSource struct {
	resp    *http.Response
	reader  *multipart.Reader
	frameNo int
}

// streamClient deliberately has no timeout: the connection stays open for
// the whole capture and is bounded by the request context instead.
var streamClient = &http.Client{}

// OpenStream connects to an MJPEG stream URL.
func OpenStream(ctx context.Context, url string) (*StreamSource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create stream request: %w", err)
	}

	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to camera stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("camera stream returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("parse stream content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		resp.Body.Close()
		return nil, fmt.Errorf("not an MJPEG stream: content type %s", mediaType)
	}
	boundary := params["boundary"]
	if boundary == "" {
		resp.Body.Close()
		return nil, fmt.Errorf("MJPEG stream without part boundary")
	}

	return &StreamSource{
		resp:   resp,
		reader: multipart.NewReader(resp.Body, boundary),
	}, nil
}

// Next reads the next frame part from the stream.
func (s *StreamSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := s.reader.NextPart()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read stream part: %w", err)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("read frame data: %w", err)
	}

	s.frameNo++
	return &Frame{Number: s.frameNo, Data: data, CapturedAt: time.Now()}, nil
}

// Close terminates the stream connection.
func (s *StreamSource) Close() error {
	return s.resp.Body.Close()
}

var _ Source = (*StreamSource)(nil)
