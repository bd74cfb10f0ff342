package apiclient

// StartRecording starts a capture session on the server
func (c *Client) StartRecording(req RecordingStartRequest) (*RecordingStarted, error) {
	return doPostJSON[RecordingStarted](c, "recordings/start", req)
}

// StopRecording stops the active capture session
func (c *Client) StopRecording() (*RecordingStopped, error) {
	return doPostJSON[RecordingStopped](c, "recordings/stop", nil)
}

// RecordingStatus reports the state of the server-side recorder
func (c *Client) RecordingStatus() (*RecordingStatus, error) {
	return doGetJSON[RecordingStatus](c, "recordings/status")
}
