package events

import (
	"context"
	"strconv"
	"sync"

	"clinicslots/pkg/kafka"
	"clinicslots/pkg/middleware"
	"clinicslots/pkg/model"
)

const (
	SchemaVersion = "1"
	Source        = "clinicslots"
)

// Publisher emits hold lifecycle events after the owning transaction has
// committed.
type Publisher interface {
	Publish(ctx context.Context, event *model.HoldEvent) error
}

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

// Publish keys messages by doctor so one doctor's events stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, event *model.HoldEvent) error {
	msg := kafka.NewMessage().
		WithKey(strconv.FormatInt(event.DoctorID, 10)).
		WithValue(event).
		WithEventID(event.EventID).
		WithEventType(string(event.Type)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		Build()

	return p.producer.Publish(ctx, msg)
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, *model.HoldEvent) error {
	return nil
}

// RecordingPublisher keeps every event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*model.HoldEvent
	Err    error
}

func (p *RecordingPublisher) Publish(_ context.Context, event *model.HoldEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

func (p *RecordingPublisher) Events() []*model.HoldEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.HoldEvent(nil), p.events...)
}

func (p *RecordingPublisher) Types() []model.HoldEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]model.HoldEventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}
