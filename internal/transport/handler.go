package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-cell-segmenter/internal/config"
	apperrors "go-cell-segmenter/internal/errors"
	"go-cell-segmenter/internal/logger"
	"go-cell-segmenter/internal/observer"
	"go-cell-segmenter/internal/service"
	"go-cell-segmenter/pkg/models"
)

// NewHandler builds the HTTP surface of the segmentation service
func NewHandler(svc service.SegmentationService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", metricsReport(metrics))
	r.POST("/segment", segmentStack(svc, cfg))
	r.POST("/import", importProbabilities(svc, cfg))
	r.POST("/segment/batch", segmentBatch(svc, cfg))
	r.POST("/metadata", stackMetadata(svc, cfg))

	return r
}

func segmentStack(svc service.SegmentationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Classification shells out to an external process, so the request
		// budget is the segmentation timeout, not the API timeout.
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.SegmentationTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing segmentation request")

		var req models.SegmentationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		response, err := svc.SegmentStack(ctx, req.URL, req.Labeler)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"url": req.URL,
				"ip":  c.ClientIP(),
			}).Error("Segmentation failed")
			respondError(c, determineStatusCode(err), "segmentation failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"url":                 req.URL,
			"num_components":      response.Labeling.NumComponents,
			"threshold":           response.Labeling.Threshold,
			"processing_time_sec": response.ProcessingTimeSec,
		}).Info("Segmentation completed successfully")

		c.JSON(http.StatusOK, response)
	}
}

func importProbabilities(svc service.SegmentationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.ImportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		response, err := svc.ImportProbabilities(ctx, req.URL, req.Labeler)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"url": req.URL,
				"ip":  c.ClientIP(),
			}).Error("Probability import failed")
			respondError(c, determineStatusCode(err), "probability import failed", err)
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

func segmentBatch(svc service.SegmentationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.SegmentationTimeout)
		defer cancel()

		var req models.BatchSegmentationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		response, err := svc.SegmentBatch(ctx, req.URLs, req.Labeler)
		if err != nil {
			respondError(c, determineStatusCode(err), "batch segmentation failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"total":     len(req.URLs),
			"succeeded": response.Succeeded,
			"failed":    response.Failed,
		}).Info("Batch segmentation completed")

		c.JSON(http.StatusOK, response)
	}
}

func stackMetadata(svc service.SegmentationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.StackMetadataRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		meta, err := svc.GetStackMetadata(ctx, req.URL)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"url": req.URL,
				"ip":  c.ClientIP(),
			}).Error("Stack metadata lookup failed")
			respondError(c, determineStatusCode(err), "stack metadata lookup failed", err)
			return
		}

		c.JSON(http.StatusOK, meta)
	}
}

func metricsReport(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := err.(*apperrors.AppError); ok {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
