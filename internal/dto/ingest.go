package dto

// RunIngestionRequest narrows an on-demand ingestion run.
type RunIngestionRequest struct {
	Categories     []string `json:"categories"`
	PerSourceLimit int      `json:"per_source_limit"`
}

// RunIngestionResponse reports ingestion counters.
type RunIngestionResponse struct {
	Sources    int `json:"sources"`
	Fetched    int `json:"fetched"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed_sources"`
}
