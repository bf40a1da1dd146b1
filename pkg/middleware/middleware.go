package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commerce-platform/stock-ledger/pkg/errors"
)

// Setup applies the standard middleware chain to a router
func Setup(r *gin.Engine, logger *slog.Logger) {
	r.Use(Recovery(logger))
	r.Use(RequestID())
	r.Use(CorrelationID())
	r.Use(LoggerWithConfig(DefaultLoggerConfig(logger)))
	r.Use(ErrorHandler(logger))

	r.NoRoute(NoRoute())
	r.NoMethod(NoMethod())
}

// HealthCheck reports process liveness
func HealthCheck(service, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": service,
			"version": version,
		})
	}
}

// ReadinessCheck reports dependency readiness via the given probes
func ReadinessCheck(probes map[string]func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := make(map[string]string, len(probes))
		ready := true

		for name, probe := range probes {
			if err := probe(); err != nil {
				checks[name] = err.Error()
				ready = false
				continue
			}
			checks[name] = "ok"
		}

		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}

		c.JSON(status, gin.H{
			"status": state,
			"checks": checks,
		})
	}
}

// NoRoute handles unmatched paths
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		AbortWithAppError(c, errors.ErrNotFound("route"))
	}
}

// NoMethod handles unmatched methods
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		AbortWithAppError(c, &errors.AppError{
			Code:       "METHOD_NOT_ALLOWED",
			Message:    "method not allowed",
			HTTPStatus: http.StatusMethodNotAllowed,
		})
	}
}
