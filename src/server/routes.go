package server

import (
	"net/http"
	"time"

	"gateway-dashboard/src/activity"
	"gateway-dashboard/src/config"
	"gateway-dashboard/src/helpers"
	"gateway-dashboard/src/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultActivityLimit = 50
	defaultRunsLimit     = 20
	maxRunsLimit         = 200
	maxMessageLength     = 4000
)

// -----------------------------------------------------------------------------
// Health & activity
// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.clientsMutex.RLock()
	connections := len(s.clients)
	s.clientsMutex.RUnlock()

	status := "ok"
	gatewayStatus := gin.H{"reachable": true}
	if raw, err := s.Services.Gateway.Health(c.Request.Context()); err != nil {
		status = "degraded"
		gatewayStatus = gin.H{"reachable": false, "kind": helpers.Kind(err), "error": err.Error()}
	} else {
		gatewayStatus["health"] = raw
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"gateway":     gatewayStatus,
		"poller":      s.Services.Feed.Status(),
		"connections": connections,
		"runtime":     helpers.GetRuntimeStats(),
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getActivity(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultActivityLimit, 1, s.Config.Poller.MaxEntries)
	if err != nil {
		respondError(c, err)
		return
	}

	category := models.MActivityCategory(c.Query("category"))
	if category != "" && !category.Valid() {
		respondError(c, helpers.NewInvalidRequest("unknown category %q", category))
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": s.Services.Feed.Latest(limit, category)})
}

// -----------------------------------------------------------------------------
// Gateway passthrough
// -----------------------------------------------------------------------------

func (s *DashboardServer) getSessions(c *gin.Context) {
	lookback := time.Duration(s.Config.Poller.SessionLookbackMinutes) * time.Minute
	sessions, err := s.Services.Gateway.ListSessions(c.Request.Context(), lookback)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": nonNil(sessions)})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getCronJobs(c *gin.Context) {
	jobs, err := s.Services.Gateway.ListCronJobs(c.Request.Context(), true)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": nonNil(jobs)})
}

// -----------------------------------------------------------------------------

type toggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// toggleCron flips a job's enabled flag. The poller reports the change once
// it observes it, so nothing is recorded here.
func (s *DashboardServer) toggleCron(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		respondError(c, helpers.NewInvalidRequest("body must be {\"enabled\": true|false}"))
		return
	}

	result, err := s.Services.Gateway.UpdateCronEnabled(c.Request.Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) runCron(c *gin.Context) {
	result, err := s.Services.Gateway.RunCron(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getCronRuns(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultRunsLimit, 1, maxRunsLimit)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := s.Services.Gateway.CronRuns(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": result})
}

// -----------------------------------------------------------------------------

type agentMessageRequest struct {
	Message    string `json:"message"`
	SessionKey string `json:"session_key"`
}

func (s *DashboardServer) sendAgentMessage(c *gin.Context) {
	var req agentMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, helpers.NewInvalidRequest("invalid body: %v", err))
		return
	}
	if req.Message == "" || len(req.Message) > maxMessageLength {
		respondError(c, helpers.NewInvalidRequest("message must be 1..%d bytes", maxMessageLength))
		return
	}

	result, err := s.Services.Gateway.SendAgentMessage(c.Request.Context(), req.Message, req.SessionKey)
	if err != nil {
		respondError(c, err)
		return
	}

	subject := req.SessionKey
	if subject == "" {
		subject = "main"
	}
	entry := s.Services.Feed.Record(models.CategoryAgentMessage, subject,
		"Sent to agent: "+activity.Excerpt(req.Message, s.Config.Poller.ExcerptLength))

	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result, "entry": entry})
}

// -----------------------------------------------------------------------------
// Treasury
// -----------------------------------------------------------------------------

func (s *DashboardServer) getTreasury(c *gin.Context) {
	agg, err := s.Services.Treasury.GetAggregate()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getTransactions(c *gin.Context) {
	address := c.Param("address")
	if !config.IsHexAddress(address) {
		respondError(c, helpers.NewInvalidRequest("invalid address %q", address))
		return
	}

	txs, err := s.Services.Treasury.GetTransactions(address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "transactions": txs})
}

// -----------------------------------------------------------------------------
// Container logs
// -----------------------------------------------------------------------------

func (s *DashboardServer) getContainerLogs(c *gin.Context) {
	tail, err := queryInt(c, "tail", s.Config.Docker.DefaultTail, 1, 10000)
	if err != nil {
		respondError(c, err)
		return
	}

	name := c.Param("name")
	lines, err := s.Services.Logs.FetchLogs(c.Request.Context(), name, models.MLogOptions{
		Tail:  tail,
		Since: c.Query("since"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"container": name, "lines": nonNil(lines)})
}
