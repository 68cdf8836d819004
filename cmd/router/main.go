package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mir00r/edge-router/internal/config"
	"github.com/mir00r/edge-router/internal/handler"
	"github.com/mir00r/edge-router/internal/middleware"
	"github.com/mir00r/edge-router/internal/server"
	"github.com/mir00r/edge-router/pkg/logger"
)

const (
	version         = "1.0.0"
	shutdownTimeout = 30 * time.Second
)

// getConfigSource returns the configuration source for logging
func getConfigSource() string {
	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			return "file+env"
		}
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "file+env"
	}
	return "defaults+env"
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.ToLoggerConfig())
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if checkIfAdminMode() {
		runAdminProcess(cfg, log)
		return
	}

	log.WithFields(map[string]interface{}{
		"version":       version,
		"env":           cfg.Edge.Env,
		"base_domain":   cfg.Edge.BaseDomain,
		"store_driver":  cfg.Store.Driver,
		"config_source": getConfigSource(),
		"process":       getProcessInfo(),
	}).Info("Starting edge router")

	a, err := newApp(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize routing config store")
	}
	defer a.Close()

	routes, err := newRouter(a)
	if err != nil {
		log.WithError(err).Fatal("Failed to build routes")
	}

	srv := server.New(server.Config{
		Port:         getPort(cfg.Server.Port),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		H2C:          cfg.Server.H2C,
	}, routes, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	log.Info("Edge router stopped gracefully")
}

// newRouter mounts the operational endpoints, the admin API and the edge
// catch-all on one router
func newRouter(a *app) (http.Handler, error) {
	cfg := a.cfg
	router := mux.NewRouter()

	health := handler.NewHealthHandler(version, a.backend)
	router.HandleFunc("/readiness", health.ReadinessHandler).Methods(http.MethodGet)
	router.HandleFunc("/liveness", health.LivenessHandler).Methods(http.MethodGet)

	if cfg.Metrics.Enabled {
		router.Handle(cfg.Metrics.Path, a.metrics.Handler()).Methods(http.MethodGet)
	}

	if cfg.Admin.Enabled {
		jwtAuth, err := middleware.NewJWTAuthMiddleware(middleware.JWTAuthConfig{
			Secret: cfg.Admin.JWTSecret,
			Issuer: cfg.Admin.JWTIssuer,
		}, a.log)
		if err != nil {
			return nil, err
		}

		admin := handler.NewAdminHandler(a.pipeline, a.resolver, a.backend, cfg.Origins(), a.log)
		adminRouter := router.PathPrefix("/admin").Subrouter()
		adminRouter.Use(middleware.SecurityHeadersMiddleware(), jwtAuth.JWTAuth())
		admin.RegisterRoutes(adminRouter)
		a.log.Info("Admin API enabled")
	}

	clientIP, err := cfg.ClientIPResolver()
	if err != nil {
		return nil, err
	}

	var edgeHandler http.Handler = handler.NewEdgeHandler(a.pipeline, handler.EdgeConfig{
		OriginScheme:        cfg.Edge.OriginScheme,
		ViewerCountryHeader: cfg.Edge.ViewerCountryHeader,
		UpstreamTimeout:     cfg.Edge.UpstreamTimeout,
		ClientIP:            clientIP,
	}, nil, a.log)

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			ClientIP:          clientIP,
		}, a.log)
		edgeHandler = limiter.RateLimitMiddleware()(edgeHandler)
		a.log.Info("Rate limiting enabled")
	}

	router.PathPrefix("/").Handler(edgeHandler)

	var routes http.Handler = router
	routes = middleware.LoggingMiddleware(a.log)(routes)
	routes = middleware.RecoveryMiddleware(a.log)(routes)
	return routes, nil
}
