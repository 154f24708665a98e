// Package server exposes the task surface over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"docskew/internal/logger"
	"docskew/internal/models"
	"docskew/internal/skew"
	"docskew/internal/tasks"
	"docskew/internal/workerpool"

	"github.com/gin-gonic/gin"
)

// TaskService is the part of tasks.Manager the handlers call.
type TaskService interface {
	Submit(req tasks.Request) (string, error)
	SubmitDirectory(inDir, outDir string, params skew.Params) ([]string, error)
	Get(id string) (models.TaskRecord, bool)
	List() []models.TaskRecord
	Review(ctx context.Context, id string, angle float64) (models.TaskRecord, error)
	SetMaxWorkers(n int) error
	Stats() workerpool.Stats
}

type batchRequest struct {
	InputDir  string      `json:"input_dir"`
	OutputDir string      `json:"output_dir"`
	Params    skew.Params `json:"params"`
}

// rotateRequest carries a hand-picked angle. A pointer so that a missing
// field is told apart from 0.
type rotateRequest struct {
	Angle *float64 `json:"angle" binding:"required"`
}

type workersRequest struct {
	MaxWorkers int `json:"max_workers"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router. Fields missing
// from a request body keep their value from defaults.
func RegisterRoutes(router *gin.Engine, svc TaskService, defaults skew.Params) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/tasks", func(c *gin.Context) {
		req := tasks.Request{Params: defaults}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		id, err := svc.Submit(req)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": id})
	})

	router.POST("/tasks/batch", func(c *gin.Context) {
		req := batchRequest{Params: defaults}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ids, err := svc.SubmitDirectory(req.InputDir, req.OutputDir, req.Params)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "ids": ids})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"ids": ids})
	})

	router.GET("/tasks", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tasks": svc.List()})
	})

	router.GET("/tasks/:id", func(c *gin.Context) {
		rec, ok := svc.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	router.POST("/tasks/:id/rotate", func(c *gin.Context) {
		var req rotateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		rec, err := svc.Review(c.Request.Context(), c.Param("id"), *req.Angle)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	router.GET("/workers", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Stats())
	})

	router.PUT("/workers", func(c *gin.Context) {
		var req workersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := svc.SetMaxWorkers(req.MaxWorkers); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, svc.Stats())
	})
}

func statusFor(err error) int {
	switch {
	case skew.IsConfigurationError(err):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, tasks.ErrNotReviewable):
		return http.StatusConflict
	case errors.Is(err, workerpool.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RequestLogger logs one line per request through log.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warning("http", "request failed", fields)
			return
		}
		log.Debug("http", "request", fields)
	}
}

// NewRouter builds a gin engine with recovery, request logging and the routes.
func NewRouter(svc TaskService, defaults skew.Params, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))
	RegisterRoutes(router, svc, defaults)
	return router
}
