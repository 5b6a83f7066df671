// Package events streams sync-lifecycle and achievement-unlock events
// to Kafka for downstream consumers. Publishing is fire-and-forget:
// the sync pipeline never blocks or fails on the event stream.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/domain"
)

// Event types carried on the stream
const (
	TypeSyncStarted         = "sync_started"
	TypeSyncCompleted       = "sync_completed"
	TypeAchievementUnlocked = "achievement_unlocked"
)

// Event is the wire format for the sync-event topic
type Event struct {
	ID        string                      `json:"id"`
	Type      string                      `json:"type"`
	SteamID   string                      `json:"steam_id"`
	Timestamp time.Time                   `json:"timestamp"`
	Sync      *domain.SyncReport          `json:"sync,omitempty"`
	Unlock    *domain.UnlockedAchievement `json:"unlock,omitempty"`
}

// Publisher receives events from the sync pipeline
type Publisher interface {
	SyncStarted(ctx context.Context, steamID string, kind domain.SyncKind)
	SyncCompleted(ctx context.Context, report domain.SyncReport)
	AchievementUnlocked(ctx context.Context, steamID string, unlock domain.UnlockedAchievement)
	Close() error
}

// KafkaPublisher publishes events via a sarama async producer
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *slog.Logger
	done     chan struct{}
}

// NewKafkaPublisher creates a new Kafka-backed publisher
func NewKafkaPublisher(cfg *config.KafkaConfig, logger *slog.Logger) (*KafkaPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, err
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		for err := range producer.Errors() {
			p.logger.Warn("failed to publish event", "error", err)
		}
	}()

	return p, nil
}

// SyncStarted publishes a sync-started event
func (p *KafkaPublisher) SyncStarted(ctx context.Context, steamID string, kind domain.SyncKind) {
	p.publish(Event{
		Type:    TypeSyncStarted,
		SteamID: steamID,
		Sync:    &domain.SyncReport{Kind: kind, SteamID: steamID},
	})
}

// SyncCompleted publishes a sync-completed event
func (p *KafkaPublisher) SyncCompleted(ctx context.Context, report domain.SyncReport) {
	p.publish(Event{
		Type:    TypeSyncCompleted,
		SteamID: report.SteamID,
		Sync:    &report,
	})
}

// AchievementUnlocked publishes a newly-unlocked achievement
func (p *KafkaPublisher) AchievementUnlocked(ctx context.Context, steamID string, unlock domain.UnlockedAchievement) {
	p.publish(Event{
		Type:    TypeAchievementUnlocked,
		SteamID: steamID,
		Unlock:  &unlock,
	})
}

// Close shuts the producer down and drains the error channel
func (p *KafkaPublisher) Close() error {
	err := p.producer.Close()
	<-p.done
	return err
}

func (p *KafkaPublisher) publish(event Event) {
	event.ID = uuid.New().String()
	event.Timestamp = time.Now()

	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to marshal event", "error", err)
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.SteamID),
		Value: sarama.ByteEncoder(value),
	}
}

// NoopPublisher drops all events. Used when Kafka is disabled.
type NoopPublisher struct{}

// NewNoop creates a publisher that drops everything
func NewNoop() NoopPublisher { return NoopPublisher{} }

func (NoopPublisher) SyncStarted(context.Context, string, domain.SyncKind) {}
func (NoopPublisher) SyncCompleted(context.Context, domain.SyncReport)     {}
func (NoopPublisher) AchievementUnlocked(context.Context, string, domain.UnlockedAchievement) {
}
func (NoopPublisher) Close() error { return nil }
