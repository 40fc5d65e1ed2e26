package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/illegalcall/fittrack/internal/config"
	"github.com/illegalcall/fittrack/internal/metrics"
	"github.com/illegalcall/fittrack/internal/models"
	"github.com/illegalcall/fittrack/internal/storage"
)

// Worker consumes audit events from Kafka and appends them to the audit store.
type Worker struct {
	cfg      *config.Config
	audit    storage.AuditStore
	consumer sarama.ConsumerGroup
	ready    chan bool
}

func NewWorker(cfg *config.Config, audit storage.AuditStore, consumer sarama.ConsumerGroup) *Worker {
	slog.Info("Initializing new Worker")
	return &Worker{
		cfg:      cfg,
		audit:    audit,
		consumer: consumer,
		ready:    make(chan bool),
	}
}

// Start consumes until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	topics := []string{w.cfg.Kafka.Topic}
	slog.Info("Starting worker", "topics", topics)

	go func() {
		for err := range w.consumer.Errors() {
			slog.Error("Kafka consumer error received", "error", err)
		}
	}()

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		for {
			if err := w.consumer.Consume(ctx, topics, w); err != nil {
				slog.Error("Error from consumer.Consume", "error", err)
			}
			if ctx.Err() != nil {
				slog.Info("Context done; exiting consumer loop", "error", ctx.Err())
				return
			}
			// A rebalance ended the session; wait for the next Setup.
			w.ready = make(chan bool)
		}
	}()

	select {
	case <-w.ready:
		slog.Info("Worker setup complete; consumer ready")
	case <-ctx.Done():
	}

	<-ctx.Done()
	slog.Info("Worker shutting down gracefully")
	<-consumed
	return nil
}

// Setup is run at the beginning of a new session, before ConsumeClaim.
func (w *Worker) Setup(sarama.ConsumerGroupSession) error {
	slog.Info("Consumer group session setup complete")
	close(w.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (w *Worker) Cleanup(sarama.ConsumerGroupSession) error {
	slog.Info("Consumer group session cleanup complete")
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (w *Worker) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := w.processEvent(session.Context(), message); err != nil {
			slog.Error("Failed to record event", "offset", message.Offset, "error", err)
		}
		session.MarkMessage(message, "")
	}
	return nil
}

func (w *Worker) processEvent(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev models.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		metrics.EventsConsumed.WithLabelValues("malformed").Inc()
		slog.Error("JSON unmarshalling failed", "error", err, "raw", string(msg.Value))
		return fmt.Errorf("failed to parse event: %w", err)
	}
	if ev.Type == "" {
		metrics.EventsConsumed.WithLabelValues("malformed").Inc()
		return fmt.Errorf("event at offset %d has no type", msg.Offset)
	}
	if ev.At.IsZero() {
		ev.At = msg.Timestamp
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	attempts := w.cfg.Kafka.RetryMax
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = w.audit.Record(ctx, ev); err == nil {
			metrics.EventsConsumed.WithLabelValues("recorded").Inc()
			slog.Debug("Event recorded", "type", ev.Type, "actor", ev.ActorID, "attempt", attempt)
			return nil
		}
		slog.Warn("Recording event failed", "type", ev.Type, "attempt", attempt, "error", err)
		if attempt < attempts {
			select {
			case <-time.After(w.cfg.Kafka.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	metrics.EventsConsumed.WithLabelValues("failed").Inc()
	return fmt.Errorf("event %s not recorded after %d attempts: %w", ev.Type, attempts, err)
}
