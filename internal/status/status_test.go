package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidmill/vidmill/internal/models"
)

func TestBroadcasterDelivery(t *testing.T) {
	b := NewBroadcaster(nil)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(Event{JobID: "job-1", Status: models.JobStatusProcessing, ProgressPercent: 40})

	select {
	case ev := <-ch:
		assert.Equal(t, "job-1", ev.JobID)
		assert.Equal(t, models.JobStatusProcessing, ev.Status)
		assert.Equal(t, float64(40), ev.ProgressPercent)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBroadcasterMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster(nil)
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	assert.Equal(t, 2, b.SubscriberCount())
	b.Publish(Event{JobID: "job-1", Status: models.JobStatusReady})

	for _, ch := range []<-chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			assert.Equal(t, models.JobStatusReady, ev.Status)
		case <-time.After(time.Second):
			t.Fatal("event not delivered to all subscribers")
		}
	}
}

func TestBroadcasterSubscribeJob(t *testing.T) {
	b := NewBroadcaster(nil)
	ch, cancel := b.SubscribeJob("job-2")
	defer cancel()

	b.Publish(Event{JobID: "job-1", Status: models.JobStatusProcessing})
	b.Publish(Event{JobID: "job-2", Status: models.JobStatusReady, Artifacts: []string{"https://cdn.example.com/job-2/720p.mp4"}})

	select {
	case ev := <-ch:
		assert.Equal(t, "job-2", ev.JobID)
		assert.Equal(t, models.JobStatusReady, ev.Status)
		assert.Len(t, ev.Artifacts, 1)
	case <-time.After(time.Second):
		t.Fatal("filtered event not delivered")
	}
	assert.Empty(t, ch)
}

func TestBroadcasterSlowSubscriberDropsEvents(t *testing.T) {
	b := NewBroadcaster(nil)
	ch, cancel := b.Subscribe()
	defer cancel()

	// Never drained; publishing past the buffer must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			b.Publish(Event{JobID: "job-1", Status: models.JobStatusProcessing})
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}

func TestBroadcasterCancel(t *testing.T) {
	b := NewBroadcaster(nil)
	ch, cancel := b.Subscribe()

	cancel()
	assert.Equal(t, 0, b.SubscriberCount())

	// Channel is closed after cancel.
	_, open := <-ch
	require.False(t, open)

	// Cancel is idempotent.
	cancel()
}
