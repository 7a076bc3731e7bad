// Package server exposes generation over HTTP
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/schollz/neuralpiano/ai"
	log "github.com/sirupsen/logrus"
)

// Generator is satisfied by a trained *ai.AI
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (ai.Result, error)
}

// Handler serves generation requests
type Handler struct {
	gen     Generator
	timeout time.Duration
}

// NewHandler limits every generation to timeout, zero means no limit
func NewHandler(gen Generator, timeout time.Duration) *Handler {
	return &Handler{gen: gen, timeout: timeout}
}

// SetupRouter wires the routes. Middleware runs inside the panic
// recovery.
func SetupRouter(h *Handler, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware...)
	router.GET("/health", HealthCheck)
	api := router.Group("/api/v1")
	{
		api.POST("/generate", h.Generate)
	}
	return router
}

// SentryMiddleware reports panics to Sentry. sentry.Init must have
// been called.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}

// HealthCheck returns the health status of the API
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Generate runs one generation request. A run that fails part way
// still returns its notes, with the error alongside.
func (h *Handler) Generate(c *gin.Context) {
	logger := log.WithFields(log.Fields{
		"function": "Handler.Generate",
	})
	var req ai.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	res, err := h.gen.Generate(ctx, req)
	if err != nil {
		logger.WithFields(log.Fields{"id": res.ID}).Warn(err.Error())
		status := statusOf(err)
		if hub := sentrygin.GetHubFromContext(c); hub != nil && status >= http.StatusInternalServerError {
			hub.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("run_id", res.ID)
				hub.CaptureException(err)
			})
		}
		c.JSON(status, gin.H{
			"id":    res.ID,
			"notes": res.Notes,
			"error": err.Error(),
		})
		return
	}
	logger.WithFields(log.Fields{"id": res.ID}).Infof("Generated %d notes", len(res.Notes))
	c.JSON(http.StatusOK, res)
}

// statusClientClosedRequest is returned when the client went away
// before generation finished
const statusClientClosedRequest = 499

func statusOf(err error) int {
	var stepErr *ai.StepError
	switch {
	case errors.As(err, &stepErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, ai.ErrNotLearned):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
