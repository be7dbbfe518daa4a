package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/omnikit/internal/monitoring"
	"github.com/charlesng35/omnikit/pkg/response"
)

// MonitoringHandler serves health probes and background job status.
type MonitoringHandler struct {
	health *monitoring.HealthManager
	jobs   monitoring.JobReporter
}

// NewMonitoringHandler constructs a monitoring handler. jobs may be nil when maintenance is disabled.
func NewMonitoringHandler(health *monitoring.HealthManager, jobs monitoring.JobReporter) (*MonitoringHandler, error) {
	if health == nil {
		return nil, errors.New("monitoring handler: health manager is required")
	}
	return &MonitoringHandler{health: health, jobs: jobs}, nil
}

// Liveness answers as long as the process can serve HTTP.
func (h *MonitoringHandler) Liveness(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"status": monitoring.StatusUp})
}

// Readiness evaluates every registered probe; a down dependency yields 503.
func (h *MonitoringHandler) Readiness(c *gin.Context) {
	report := h.health.Evaluate(requestContext(c))
	if !report.Healthy() {
		c.JSON(http.StatusServiceUnavailable, response.Response{Success: false, Data: report})
		return
	}
	response.Success(c, http.StatusOK, report)
}

// Jobs lists maintenance job history.
func (h *MonitoringHandler) Jobs(c *gin.Context) {
	runs := []monitoring.JobRun{}
	if h.jobs != nil {
		runs = append(runs, h.jobs.JobRuns()...)
	}
	response.Success(c, http.StatusOK, runs)
}
