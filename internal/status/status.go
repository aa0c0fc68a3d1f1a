// Package status broadcasts job lifecycle events to in-process subscribers.
package status

import (
	"log/slog"
	"sync"
	"time"

	"github.com/vidmill/vidmill/internal/models"
)

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls behind loses events rather than stalling the pipeline.
const subscriberBuffer = 64

// Event is one job status notification. Artifacts carries the public URLs
// once the job is ready.
type Event struct {
	JobID           string           `json:"job_id"`
	OwnerID         string           `json:"owner_id"`
	Status          models.JobStatus `json:"status"`
	ProgressPercent float64          `json:"progress_percent"`
	Message         string           `json:"message,omitempty"`
	ErrorMessage    string           `json:"error_message,omitempty"`
	Artifacts       []string         `json:"artifacts,omitempty"`
	Timestamp       time.Time        `json:"timestamp"`
}

// Publisher delivers job status events.
type Publisher interface {
	Publish(event Event)
}

// subscription is one registered listener. An empty jobID receives every
// event.
type subscription struct {
	ch    chan Event
	jobID string
}

// Broadcaster fans events out to every subscriber. Delivery is best-effort;
// a full subscriber channel drops the event.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[int]subscription
	nextID      int
	logger      *slog.Logger
}

var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[int]subscription),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for every job's events. The returned
// cancel function removes the subscription and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	return b.subscribe("")
}

// SubscribeJob registers a subscriber that only receives events for the
// given job.
func (b *Broadcaster) SubscribeJob(jobID string) (<-chan Event, func()) {
	return b.subscribe(jobID)
}

func (b *Broadcaster) subscribe(jobID string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = subscription{ch: ch, jobID: jobID}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// Publish sends the event to every subscriber without blocking.
func (b *Broadcaster) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if sub.jobID != "" && sub.jobID != event.JobID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("dropping status event for slow subscriber",
				slog.Int("subscriber", id),
				slog.String("job_id", event.JobID),
				slog.String("status", string(event.Status)))
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
