package dtos

// JobRunResponse reports the outcome of a manually triggered job run.
type JobRunResponse struct {
	Job       string   `json:"job"`
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Skipped   int      `json:"skipped"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
	Aborted   bool     `json:"aborted"`
}

type JobSummary struct {
	Name    string `json:"name"`
	Spec    string `json:"spec"`
	Timeout string `json:"timeout"`
}

type ListJobsResponse struct {
	Jobs []JobSummary `json:"jobs"`
}
