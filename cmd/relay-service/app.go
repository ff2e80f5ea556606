package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"

	"wxrelay/internal/auth"
	"wxrelay/internal/config"
	"wxrelay/internal/constants"
	"wxrelay/internal/logger"
	"wxrelay/internal/params"
	"wxrelay/internal/relay"
	"wxrelay/internal/wechat"
	"wxrelay/pkg/circuitbreaker"
	"wxrelay/pkg/health"
	"wxrelay/pkg/metrics"
	"wxrelay/pkg/middleware"
)

type App struct {
	config *config.Config
	logger logger.Logger
	server *http.Server
	router *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config: cfg,
		logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	if err := a.initServer(); err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	return nil
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	metrics.RegisterRelayMetrics()
	metrics.RegisterCircuitBreakerMetrics()

	var clientOpts []wechat.Option
	if a.config.CircuitBreaker.Enabled {
		cbCfg := circuitbreaker.DefaultConfig("wechat")
		if a.config.CircuitBreaker.MaxRequests > 0 {
			cbCfg.MaxRequests = a.config.CircuitBreaker.MaxRequests
		}
		if a.config.CircuitBreaker.Interval > 0 {
			cbCfg.Interval = a.config.CircuitBreaker.Interval * time.Second
		}
		if a.config.CircuitBreaker.Timeout > 0 {
			cbCfg.Timeout = a.config.CircuitBreaker.Timeout * time.Second
		}
		if a.config.CircuitBreaker.FailureRatio > 0 && a.config.CircuitBreaker.MinRequests > 0 {
			ratio := a.config.CircuitBreaker.FailureRatio
			minRequests := a.config.CircuitBreaker.MinRequests
			cbCfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= minRequests && failureRatio >= ratio
			}
		}
		clientOpts = append(clientOpts, wechat.WithBreaker(circuitbreaker.NewWrapper(cbCfg)))
		a.logger.Infow("Provider circuit breaker enabled")
	}

	client := wechat.NewClient(
		a.config.Wechat.BaseURL,
		a.config.Wechat.TimeoutSeconds*time.Second,
		a.logger,
		clientOpts...,
	)

	authenticator := auth.NewAuthenticator(a.config.Auth.APIToken)
	extractor := params.NewExtractor(a.logger)
	dispatcher := relay.NewDispatcher(a.logger)
	svc := relay.NewService(a.config.Wechat, authenticator, client, dispatcher, a.logger)

	handler := relay.NewHandler(svc, extractor, authenticator, a.logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewProviderChecker(a.config.Wechat.BaseURL))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) initServer() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds * time.Second,
	}
	return nil
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		a.logger.InfowCtx(ctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return a.Shutdown(ctx)
	case err := <-errChan:
		return err
	}
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.InfowCtx(ctx, "Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	a.logger.InfowCtx(ctx, "Server exited successfully")
	return nil
}
