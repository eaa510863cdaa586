package controllers

import (
	"net/http"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/dtos"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/repositories"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
)

type HealthController struct {
	store repositories.Store
}

func NewHealthController(store repositories.Store) *HealthController {
	return &HealthController{store: store}
}

func (c *HealthController) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := c.store.Ping(r.Context()); err != nil {
		utils.Logger.WithError(err).Error("tenancy-service store unreachable")
		utils.RespondErrorWithCode(w, http.StatusServiceUnavailable, utils.ErrCodeStoreUnhealthy, "Store unreachable", nil, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.HealthCheckResponse{Status: "OK"})
}
