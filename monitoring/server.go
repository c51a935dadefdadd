package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"bike-market/utils"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// NewServer builds the metrics listener: /metrics for Prometheus and /health
// for the load balancer.
func NewServer(redisClient *redis.Client) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Recover())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", func(c echo.Context) error {
		if redisClient != nil {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	return e
}

// Serve runs the metrics server until ctx is cancelled.
func Serve(ctx context.Context, port string, redisClient *redis.Client) {
	sc := echo.StartConfig{
		Address:         ":" + port,
		HideBanner:      true,
		HidePort:        true,
		GracefulContext: ctx,
	}

	slog.Info("metrics server listening", "port", port)
	if err := sc.Start(NewServer(redisClient)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server stopped", "error", err)
	}
}
