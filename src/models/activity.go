package models

import "time"

// MActivityCategory classifies a feed entry.
type MActivityCategory string

const (
	CategorySession      MActivityCategory = "session"
	CategoryCronRun      MActivityCategory = "cron_run"
	CategoryCronToggle   MActivityCategory = "cron_toggle"
	CategoryAgentMessage MActivityCategory = "agent_message"
	CategorySystem       MActivityCategory = "system"
)

// Valid reports whether c is one of the known categories.
func (c MActivityCategory) Valid() bool {
	switch c {
	case CategorySession, CategoryCronRun, CategoryCronToggle, CategoryAgentMessage, CategorySystem:
		return true
	}
	return false
}

// MActivityEntry is one human-readable line of the activity feed.
type MActivityEntry struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Category  MActivityCategory `json:"category"`
	Subject   string            `json:"subject,omitempty"`
	Message   string            `json:"message"`
}

// -----------------------------------------------------------------------------
// Gateway listing shapes (sessions.list / cron.list)
// -----------------------------------------------------------------------------

type MSession struct {
	Key         string `json:"key"`
	UpdatedAt   int64  `json:"updatedAt"` // unix millis
	LastMessage string `json:"lastMessage,omitempty"`
	Channel     string `json:"channel,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

type MSessionList struct {
	Sessions []MSession `json:"sessions"`
}

type MCronJobState struct {
	LastRunAtMs    int64  `json:"lastRunAtMs,omitempty"`
	LastStatus     string `json:"lastStatus,omitempty"`
	LastDurationMs int64  `json:"lastDurationMs,omitempty"`
	LastError      string `json:"lastError,omitempty"`
	NextRunAtMs    int64  `json:"nextRunAtMs,omitempty"`
}

type MCronJob struct {
	ID      string        `json:"id"`
	Name    string        `json:"name,omitempty"`
	Enabled bool          `json:"enabled"`
	State   MCronJobState `json:"state"`
}

type MCronList struct {
	Jobs []MCronJob `json:"jobs"`
}

// -----------------------------------------------------------------------------
// Snapshots retained across poll cycles
// -----------------------------------------------------------------------------

// MRunStatus is the normalized last-run outcome of a scheduled job.
type MRunStatus string

const (
	RunStatusOK     MRunStatus = "ok"
	RunStatusFailed MRunStatus = "failed"
	RunStatusNever  MRunStatus = "never"
)

// NormalizeRunStatus maps the gateway's free-form status to ok|failed|never.
func NormalizeRunStatus(raw string, lastRunAtMs int64) MRunStatus {
	switch raw {
	case "ok", "success", "succeeded":
		return RunStatusOK
	case "":
		if lastRunAtMs == 0 {
			return RunStatusNever
		}
		return RunStatusOK
	}
	return RunStatusFailed
}

type MSessionSnapshot struct {
	Key         string    `json:"key"`
	UpdatedAt   time.Time `json:"updated_at"`
	LastMessage string    `json:"last_message,omitempty"`
	Channel     string    `json:"channel,omitempty"`
}

type MCronSnapshot struct {
	JobID      string     `json:"job_id"`
	LastRunAt  time.Time  `json:"last_run_at"`
	LastStatus MRunStatus `json:"last_status"`
	Enabled    bool       `json:"enabled"`
}

// MPollerStatus is what the health endpoints report about the poller.
type MPollerStatus struct {
	Running             bool      `json:"running"`
	GatewayReachable    bool      `json:"gateway_reachable"`
	LastPollAt          time.Time `json:"last_poll_at"`
	LastSuccessAt       time.Time `json:"last_success_at"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	TrackedSessions     int       `json:"tracked_sessions"`
	TrackedJobs         int       `json:"tracked_jobs"`
	Entries             int       `json:"entries"`
}
