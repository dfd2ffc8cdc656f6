package activity

import (
	"sync"
	"time"

	"gateway-dashboard/src/models"
	"gateway-dashboard/src/utils"

	"github.com/google/uuid"
)

// Log is the bounded activity feed, newest first. Appending past capacity
// drops the oldest entry. Readers always get copies.
type Log struct {
	mu  sync.RWMutex
	buf *utils.RingBuffer
}

// -----------------------------------------------------------------------------

func NewLog(capacity int) *Log {
	return &Log{buf: utils.NewRingBuffer(capacity)}
}

// -----------------------------------------------------------------------------

// append stamps and stores a new entry. Unexported: only the poller writes.
func (l *Log) append(at time.Time, category models.MActivityCategory, subject, message string) models.MActivityEntry {
	entry := models.MActivityEntry{
		ID:        uuid.NewString(),
		CreatedAt: at,
		Category:  category,
		Subject:   subject,
		Message:   message,
	}

	l.mu.Lock()
	l.buf.Append(entry)
	l.mu.Unlock()

	return entry
}

// -----------------------------------------------------------------------------

// Latest returns up to limit entries, newest first. An empty category
// matches everything; limit <= 0 returns the whole log.
func (l *Log) Latest(limit int, category models.MActivityCategory) []models.MActivityEntry {
	l.mu.RLock()
	all := l.buf.GetAll()
	l.mu.RUnlock()

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	if category == "" {
		return all[:limit]
	}

	out := make([]models.MActivityEntry, 0, limit)
	for _, e := range all {
		if e.Category != category {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out
}

// -----------------------------------------------------------------------------

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.buf.Size()
}
