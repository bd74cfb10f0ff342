package apiclient

// Health checks the server health endpoint
func (c *Client) Health() (*Health, error) {
	return doGetJSON[Health](c, "health")
}

// Stats retrieves aggregate processing statistics
func (c *Client) Stats() (*Stats, error) {
	return doGetJSON[Stats](c, "stats")
}
