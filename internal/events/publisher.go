package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Event types emitted by the service
const (
	EvaluationSubmitted       = "evaluation.submitted"
	ProfessorCreated          = "professor.created"
	ProfessorRatingRecomputed = "professor.rating_recomputed"
	ResourceSubmitted         = "resource.submitted"
	ResourceReviewed          = "resource.reviewed"
	ResourceVoteCast          = "resource.vote_cast"
	AdminRosterChanged        = "admin.roster_changed"
	AuthDegraded              = "auth.degraded"
)

// Event is the envelope published for every domain event.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EventPublisher publishes domain events. Publishing is best-effort from the
// caller's point of view: services log failures but never roll back the
// state change that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
	Close() error
}

// ===== KAFKA PUBLISHER =====

// KafkaEventPublisher publishes events to a Kafka topic through Watermill.
type KafkaEventPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

// NewKafkaEventPublisher creates a publisher connected to the given brokers.
func NewKafkaEventPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaEventPublisher, error) {
	saramaConfig := kafka.DefaultSaramaSyncPublisherConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaEventPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}, nil
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "evaluation-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", eventType)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "Event published",
		"event_id", event.ID,
		"event_type", eventType,
		"topic", p.topic)

	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.publisher.Close()
}

// ===== NO-OP PUBLISHER =====

// NoopEventPublisher discards events. Used when no brokers are configured.
type NoopEventPublisher struct{}

func NewNoopEventPublisher() *NoopEventPublisher {
	return &NoopEventPublisher{}
}

func (p *NoopEventPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	return nil
}

func (p *NoopEventPublisher) Close() error {
	return nil
}

// ===== MOCK PUBLISHER =====

// MockEventPublisher records events in memory for tests.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (p *MockEventPublisher) Publish(ctx context.Context, eventType string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    "evaluation-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
	return nil
}

func (p *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of all recorded events.
func (p *MockEventPublisher) GetPublishedEvents() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// EventsOfType returns recorded events matching eventType.
func (p *MockEventPublisher) EventsOfType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// ClearEvents drops all recorded events.
func (p *MockEventPublisher) ClearEvents() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
