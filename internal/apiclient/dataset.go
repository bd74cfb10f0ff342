package apiclient

// LoadDataset asks the server to rebuild its face index. An empty dir keeps
// the server's configured dataset directory.
func (c *Client) LoadDataset(dir string) (*DatasetLoadResult, error) {
	input := DatasetLoadRequest{DatasetDir: dir}
	return doPostJSON[DatasetLoadResult](c, "dataset/load", input)
}
