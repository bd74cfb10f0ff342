package apiclient

// JobStatus retrieves the current state of a background job
func (c *Client) JobStatus(jobID string) (*Job, error) {
	return doGetJSON[Job](c, "jobs/"+jobID)
}

// CancelJob cancels a running background job
func (c *Client) CancelJob(jobID string) error {
	_, err := doDeleteJSON[map[string]bool](c, "jobs/"+jobID, nil)
	return err
}
