package apiclient

import (
	"encoding/base64"
	"fmt"
	"os"
)

// ExtractFrames extracts frames from a stored recording. A zero RecordingID
// selects the most recent recording.
func (c *Client) ExtractFrames(req FrameExtractRequest) (*FrameExtractResult, error) {
	return doPostJSON[FrameExtractResult](c, "frames/extract", req)
}

// ProcessFrame runs face recognition on a frame already on the server's disk
func (c *Client) ProcessFrame(framePath string) (*FrameProcessResult, error) {
	input := FrameProcessRequest{FramePath: framePath}
	return doPostJSON[FrameProcessResult](c, "frames/process", input)
}

// ProcessFrameFile uploads a local image as base64 and runs recognition on it
func (c *Client) ProcessFrameFile(path string) (*FrameProcessResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the CLI user
	if err != nil {
		return nil, fmt.Errorf("could not read frame %s: %w", path, err)
	}
	input := FrameProcessRequest{FrameBase64: base64.StdEncoding.EncodeToString(data)}
	return doPostJSON[FrameProcessResult](c, "frames/process", input)
}

// ProcessAllFrames enqueues a background job that extracts and processes a
// whole recording. The returned job ID can be watched via JobStatus.
func (c *Client) ProcessAllFrames(req ProcessAllRequest) (*JobAccepted, error) {
	return doPostJSONAccepted[JobAccepted](c, "frames/process-all", req)
}
