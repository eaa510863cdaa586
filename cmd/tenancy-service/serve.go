package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/constants"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/controllers"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/routes"
	"github.com/KevinWolf254/Qwangu-pms-sub002/internal/utils"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the ops HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	e, err := buildEngine()
	if err != nil {
		return err
	}
	defer e.app.Close()
	cfg := e.app.Config

	// Controllers
	healthController := controllers.NewHealthController(e.app.Store)
	jobsController := controllers.NewJobsController(e.scheduler)

	// Router setup
	router := mux.NewRouter()
	router.HandleFunc(routes.Health, healthController.HealthCheckHandler).Methods(http.MethodGet)
	router.HandleFunc(routes.TenancyJobs, jobsController.ListJobsHandler).Methods(http.MethodGet)
	if cfg.LDFlag_EnableJobTriggerRoutes {
		router.HandleFunc(routes.TenancyJobRun, jobsController.RunJobHandler).Methods(http.MethodPost)
		utils.Logger.Warn("Job trigger routes are enabled")
	}

	if err := e.scheduler.Start(); err != nil {
		return err
	}

	allowedOrigins := []string{}
	if cfg.AppUrl != "" {
		allowedOrigins = append(allowedOrigins, cfg.AppUrl)
	}
	if !cfg.LDFlag_CORSHighSecurity {
		allowedOrigins = append(allowedOrigins, constants.CORSLowSecurityAllowedOriginLocalhost)
	}
	co := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           co.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Logger.Infof("Starting %s on port: %s", cfg.AppName, cfg.AppPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		utils.Logger.Infof("Received %s; shutting down", sig)
	case err := <-errCh:
		if err != nil {
			utils.Logger.WithError(err).Error("HTTP server failed")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Logger.WithError(err).Error("HTTP server shutdown")
	}

	// wait for in-flight jobs so no transaction is cut off mid-run
	select {
	case <-e.scheduler.Stop().Done():
		utils.Logger.Info("Scheduler stopped")
	case <-ctx.Done():
		utils.Logger.Warn("Timed out waiting for running jobs")
	}
	return nil
}
