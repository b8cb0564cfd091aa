// Package events publishes back-office domain events to Kafka for downstream
// consumers (report renderers, the news feed, accounting exports). Publishing
// is asynchronous and best-effort; the API never blocks on the broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types emitted by the back office.
const (
	TypeSalaryGenerated = "salary.generated"
	TypePaymentRecorded = "salary.payment_recorded"
	TypeSalaryHeld      = "salary.held"
	TypeSalaryReleased  = "salary.released"
	TypeProjectDeleted  = "project.deleted"
)

// Topic carries every back-office event, keyed by tenant path so one
// tenant's events stay ordered.
const Topic = "backoffice-events"

// Event is the envelope written to Kafka.
type Event struct {
	Type       string                 `json:"type"`
	TenantPath string                 `json:"tenant_path"`
	ActorID    string                 `json:"actor_id"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Producer publishes events through a buffered channel drained by a worker
// pool. A nil Producer is valid and drops everything, so the server can run
// without a broker.
type Producer struct {
	writer       *kafka.Writer
	eventChan    chan Event
	workerCount  int
	shutdownChan chan struct{}
	wg           sync.WaitGroup
}

// NewProducer creates a producer against the given broker and starts its
// workers.
func NewProducer(broker string) (*Producer, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	p := &Producer{
		writer:       writer,
		eventChan:    make(chan Event, 1000),
		workerCount:  4,
		shutdownChan: make(chan struct{}),
	}

	p.startWorkers()

	return p, nil
}

func (p *Producer) startWorkers() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	logrus.WithField("workers", p.workerCount).Info("event producer workers started")
}

func (p *Producer) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case event := <-p.eventChan:
			if err := p.sendSync(event); err != nil {
				logrus.WithFields(logrus.Fields{
					"worker": id,
					"type":   event.Type,
					"error":  err,
				}).Warn("failed to publish event")
			}
		case <-p.shutdownChan:
			return
		}
	}
}

// Publish queues an event without blocking. Events are dropped when the
// queue is full or the producer is nil.
func (p *Producer) Publish(eventType, tenantPath, actorID string, payload map[string]interface{}) {
	if p == nil {
		return
	}

	event := Event{
		Type:       eventType,
		TenantPath: tenantPath,
		ActorID:    actorID,
		Payload:    payload,
		OccurredAt: time.Now(),
	}

	select {
	case p.eventChan <- event:
	default:
		logrus.WithField("type", eventType).Warn("event queue full, event dropped")
	}
}

func (p *Producer) sendSync(event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: Topic,
		Key:   []byte(event.TenantPath),
		Value: message,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "tenant_path", Value: []byte(event.TenantPath)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Close stops the workers and closes the writer. The event channel is left
// open: a Publish racing the shutdown just queues into the buffer and is
// dropped, it must never panic on a closed channel.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}

	close(p.shutdownChan)
	p.wg.Wait()

	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}

	return nil
}
