package controllers

import (
	"errors"
	"net/http"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/dtos"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/services"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/gorilla/mux"
)

type JobsController struct {
	scheduler *services.SchedulerService
}

func NewJobsController(scheduler *services.SchedulerService) *JobsController {
	return &JobsController{scheduler: scheduler}
}

// ListJobsHandler handles GET /api/v1/tenancy/jobs
func (c *JobsController) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	resp := dtos.ListJobsResponse{Jobs: []dtos.JobSummary{}}
	for _, j := range c.scheduler.Jobs() {
		resp.Jobs = append(resp.Jobs, dtos.JobSummary{Name: j.Name, Spec: j.Spec, Timeout: j.Timeout.String()})
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// RunJobHandler handles POST /api/v1/tenancy/jobs/{job}/run. An aborted run
// still answers 200 with the partial counts and aborted=true.
func (c *JobsController) RunJobHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["job"]

	res, err := c.scheduler.RunJob(r.Context(), name)
	switch {
	case errors.Is(err, utils.ErrUnknownJob):
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "Unknown job", nil, err)
		return
	case errors.Is(err, utils.ErrJobAlreadyRunning):
		utils.RespondErrorWithCode(w, http.StatusConflict, utils.ErrCodeConflict, "Job is already running", nil, err)
		return
	case err != nil && res == nil:
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Job failed", nil, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, dtos.JobRunResponse{
		Job:       res.Job,
		Processed: res.Processed,
		Succeeded: res.Succeeded,
		Skipped:   res.Skipped,
		Failed:    res.Failed,
		Errors:    res.Errors,
		Aborted:   err != nil,
	})
}
