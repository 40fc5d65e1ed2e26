// Package events publishes audit events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/illegalcall/fittrack/internal/auth"
	"github.com/illegalcall/fittrack/internal/metrics"
	"github.com/illegalcall/fittrack/internal/models"
)

// Publisher accepts events for delivery. Publish never blocks the caller and
// never fails it.
type Publisher interface {
	Publish(ev models.Event)
}

// Discard drops every event. It is used when Kafka is disabled.
type Discard struct{}

func (Discard) Publish(models.Event) {}

// KafkaPublisher hands events to a background goroutine that sends them to
// the topic. When the buffer is full the event is dropped with a warning.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	queue    chan models.Event
	done     chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string, buffer int) *KafkaPublisher {
	if buffer <= 0 {
		buffer = 1
	}
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		queue:    make(chan models.Event, buffer),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) Publish(ev models.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- ev:
	default:
		metrics.EventsDropped.WithLabelValues("buffer_full").Inc()
		slog.Warn("Event buffer full; dropping event", "type", ev.Type)
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		p.send(ev)
	}
}

func (p *KafkaPublisher) send(ev models.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to encode event", "type", ev.Type, "error", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.ActorID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		metrics.EventsDropped.WithLabelValues("send_failed").Inc()
		slog.Error("Failed to send event to Kafka", "type", ev.Type, "error", err)
		return
	}
	metrics.EventsPublished.Inc()
}

// Close drains queued events and closes the producer.
func (p *KafkaPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-ctx.Done():
		slog.Warn("Event queue not drained before shutdown", "pending", len(p.queue))
	}
	return p.producer.Close()
}

// AuthObserver turns sign-in and sign-out notifications into events.
func AuthObserver(pub Publisher) auth.Observer {
	return func(st auth.State) {
		ev := models.Event{Type: models.EventSignedOut, SessionID: st.SessionID, At: time.Now().UTC()}
		if st.SignedIn {
			ev.Type = models.EventSignedIn
		}
		if st.Identity != nil {
			ev.ActorID = st.Identity.ID
		}
		pub.Publish(ev)
	}
}
