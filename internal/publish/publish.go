// Package publish streams generated daily records to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/destinyclock/destinyclock/pkg/scoring"
)

const batchSize = 500

// Publisher sends a run's records downstream.
type Publisher interface {
	Publish(ctx context.Context, subjectID, runID string, recs []scoring.DailyRecord) error
	Close() error
}

// Message is the JSON value of one published record.
type Message struct {
	SubjectID string `json:"subject_id"`
	RunID     string `json:"run_id"`
	scoring.DailyRecord
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per record, keyed by subject id so a
// subject's records stay on one partition in date order.
type KafkaPublisher struct {
	w   messageWriter
	log *slog.Logger
}

// NewKafkaPublisher creates a publisher for topic on the given brokers.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = slog.Default()
	}
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		log: log.With(slog.String("component", "publish"), slog.String("topic", topic)),
	}
}

// Publish writes the records in batches.
func (p *KafkaPublisher) Publish(ctx context.Context, subjectID, runID string, recs []scoring.DailyRecord) error {
	msgs, err := Messages(subjectID, runID, recs)
	if err != nil {
		return err
	}
	for lo := 0; lo < len(msgs); lo += batchSize {
		hi := min(lo+batchSize, len(msgs))
		if err := p.w.WriteMessages(ctx, msgs[lo:hi]...); err != nil {
			return fmt.Errorf("publish records %d-%d: %w", lo, hi, err)
		}
	}
	p.log.Info("records published", slog.String("subject", subjectID), slog.String("run", runID), slog.Int("count", len(msgs)))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Messages encodes records as Kafka messages.
func Messages(subjectID, runID string, recs []scoring.DailyRecord) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(recs))
	for _, rec := range recs {
		value, err := json.Marshal(Message{SubjectID: subjectID, RunID: runID, DailyRecord: rec})
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(subjectID),
			Value:   value,
			Time:    rec.Date,
			Headers: []kafka.Header{{Key: "content-type", Value: []byte("application/json")}},
		})
	}
	return msgs, nil
}

// Nop discards everything. It is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, []scoring.DailyRecord) error { return nil }
func (Nop) Close() error                                                         { return nil }
