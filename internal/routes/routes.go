package routes

const (
	Health = "/health"

	TenancyJobs   = "/api/v1/tenancy/jobs"
	TenancyJobRun = "/api/v1/tenancy/jobs/{job}/run"
)
