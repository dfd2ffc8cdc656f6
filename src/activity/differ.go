package activity

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gateway-dashboard/src/models"
)

// Thresholds tune which snapshot changes become feed entries.
type Thresholds struct {
	// Recency: a first-seen session is announced only if updated this recently.
	Recency time.Duration
	// Noise: a known session must advance by more than this to be announced.
	Noise time.Duration
	// ExcerptLength bounds message excerpts, in runes.
	ExcerptLength int
}

// change is one feed entry the differ wants written.
type change struct {
	category models.MActivityCategory
	subject  string
	message  string
}

// -----------------------------------------------------------------------------
// Sessions
// -----------------------------------------------------------------------------

func sessionSnapshot(s models.MSession) models.MSessionSnapshot {
	return models.MSessionSnapshot{
		Key:         s.Key,
		UpdatedAt:   millis(s.UpdatedAt),
		LastMessage: s.LastMessage,
		Channel:     s.Channel,
	}
}

// diffSession compares an observed session with its previous snapshot (nil
// when unseen). The caller always stores the new snapshot.
func diffSession(prev *models.MSessionSnapshot, cur models.MSession, now time.Time, th Thresholds) (change, bool) {
	updated := millis(cur.UpdatedAt)

	if prev == nil {
		if updated.IsZero() || now.Sub(updated) > th.Recency {
			return change{}, false
		}
		return change{
			category: models.CategorySession,
			subject:  cur.Key,
			message:  withExcerpt("New session "+sessionLabel(cur), cur.LastMessage, th.ExcerptLength),
		}, true
	}

	if updated.Sub(prev.UpdatedAt) <= th.Noise {
		return change{}, false
	}
	return change{
		category: models.CategorySession,
		subject:  cur.Key,
		message:  withExcerpt("Activity in "+sessionLabel(cur), cur.LastMessage, th.ExcerptLength),
	}, true
}

func sessionLabel(s models.MSession) string {
	label := s.Key
	if s.DisplayName != "" {
		label = s.DisplayName
	}
	if s.Channel != "" {
		label += " (" + s.Channel + ")"
	}
	return label
}

// -----------------------------------------------------------------------------
// Cron jobs
// -----------------------------------------------------------------------------

func cronSnapshot(j models.MCronJob) models.MCronSnapshot {
	return models.MCronSnapshot{
		JobID:      j.ID,
		LastRunAt:  millis(j.State.LastRunAtMs),
		LastStatus: models.NormalizeRunStatus(j.State.LastStatus, j.State.LastRunAtMs),
		Enabled:    j.Enabled,
	}
}

// diffCron compares an observed job with its previous snapshot (nil when
// unseen). Unseen jobs are recorded silently.
func diffCron(prev *models.MCronSnapshot, cur models.MCronJob, th Thresholds) []change {
	if prev == nil {
		return nil
	}

	var out []change
	snap := cronSnapshot(cur)
	name := jobLabel(cur)

	if snap.LastRunAt.After(prev.LastRunAt) {
		msg := fmt.Sprintf("Cron job %s ran successfully", name)
		if snap.LastStatus == models.RunStatusFailed {
			msg = fmt.Sprintf("Cron job %s failed", name)
		}
		if cur.State.LastDurationMs > 0 {
			msg += " in " + FormatDuration(time.Duration(cur.State.LastDurationMs)*time.Millisecond)
		}
		if snap.LastStatus == models.RunStatusFailed && cur.State.LastError != "" {
			msg += ": " + Excerpt(cur.State.LastError, th.ExcerptLength)
		}
		out = append(out, change{category: models.CategoryCronRun, subject: cur.ID, message: msg})
	}

	if snap.Enabled != prev.Enabled {
		state := "disabled"
		if snap.Enabled {
			state = "enabled"
		}
		out = append(out, change{
			category: models.CategoryCronToggle,
			subject:  cur.ID,
			message:  fmt.Sprintf("Cron job %s %s", name, state),
		})
	}

	return out
}

func jobLabel(j models.MCronJob) string {
	if j.Name != "" {
		return j.Name
	}
	return j.ID
}

// -----------------------------------------------------------------------------
// Formatting
// -----------------------------------------------------------------------------

func withExcerpt(head, text string, n int) string {
	if ex := Excerpt(text, n); ex != "" {
		return head + ": " + ex
	}
	return head
}

// Excerpt collapses whitespace and truncates to n runes, marking the cut.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:n]), " ") + "…"
}

// FormatDuration renders run durations the way operators read them:
// 850ms, 4.2s, 3m05s.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func millis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
