package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pulmoprobe/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

// queueReader serves queued messages, then blocks until ctx is cancelled.
type queueReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
}

func (r *queueReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		message := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return message, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *queueReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *queueReader) Close() error { return nil }

func (r *queueReader) offsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func eventMessage(t *testing.T, offset int64, id string) kafka.Message {
	t.Helper()
	value, err := json.Marshal(models.Event{ID: id, Type: models.EventPredictionRecorded})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return kafka.Message{Offset: offset, Value: value}
}

func TestConsumeRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	reader := &queueReader{queue: []kafka.Message{
		eventMessage(t, 1, "evt-1"),
		eventMessage(t, 2, "evt-2"),
	}}
	consumer := &Consumer{reader: reader, retryBackoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled []string
	failures := 2
	handler := func(_ context.Context, event models.Event) error {
		handled = append(handled, event.ID)
		if event.ID == "evt-1" && failures > 0 {
			failures--
			return errors.New("database unavailable")
		}
		if event.ID == "evt-2" {
			cancel()
		}
		return nil
	}

	if err := consumer.Consume(ctx, handler); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	want := []string{"evt-1", "evt-1", "evt-1", "evt-2"}
	if len(handled) != len(want) {
		t.Fatalf("expected handler calls %v, got %v", want, handled)
	}
	for i := range want {
		if handled[i] != want[i] {
			t.Fatalf("expected handler calls %v, got %v", want, handled)
		}
	}
	committed := reader.offsets()
	if len(committed) == 0 || committed[0] != 1 {
		t.Fatalf("expected offset 1 committed first, got %v", committed)
	}
}

func TestConsumeStopsRetryingOnCancel(t *testing.T) {
	reader := &queueReader{queue: []kafka.Message{eventMessage(t, 7, "evt-7")}}
	consumer := &Consumer{reader: reader, retryBackoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	handler := func(_ context.Context, _ models.Event) error {
		attempts++
		if attempts == 3 {
			cancel()
		}
		return errors.New("database unavailable")
	}

	if err := consumer.Consume(ctx, handler); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if committed := reader.offsets(); len(committed) != 0 {
		t.Fatalf("failed message must stay uncommitted, got %v", committed)
	}
}

func TestConsumeSkipsUndecodableMessage(t *testing.T) {
	reader := &queueReader{queue: []kafka.Message{
		{Offset: 3, Value: []byte("not json")},
		eventMessage(t, 4, "evt-4"),
	}}
	consumer := &Consumer{reader: reader, retryBackoff: time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := func(_ context.Context, _ models.Event) error {
		cancel()
		return nil
	}

	consumer.Consume(ctx, handler)
	committed := reader.offsets()
	if len(committed) == 0 || committed[0] != 3 {
		t.Fatalf("expected undecodable offset 3 committed, got %v", committed)
	}
}
