package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destinyclock/destinyclock/pkg/ganzhi"
	"github.com/destinyclock/destinyclock/pkg/scoring"
)

type fakeWriter struct {
	batches [][]kafka.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, append([]kafka.Message(nil), msgs...))
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func records(n int) []scoring.DailyRecord {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]scoring.DailyRecord, n)
	for i := range recs {
		recs[i] = scoring.DailyRecord{
			Date:       start.AddDate(0, 0, i),
			Period:     ganzhi.MustPillar("己卯"),
			Year:       ganzhi.MustPillar("甲辰"),
			Month:      ganzhi.MustPillar("丙子"),
			Day:        ganzhi.PillarAt(i),
			FinalScore: i,
		}
	}
	return recs
}

func TestMessages(t *testing.T) {
	msgs, err := Messages("demo", "run-1", records(2))
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "demo", string(msgs[1].Key))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[1].Value, &decoded))
	assert.Equal(t, "demo", decoded["subject_id"])
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "乙丑", decoded["day"])
	assert.Equal(t, float64(1), decoded["final_score"])
}

func TestKafkaPublisherBatches(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{w: fw, log: discardLogger()}

	require.NoError(t, p.Publish(context.Background(), "demo", "run-1", records(batchSize+3)))
	require.Len(t, fw.batches, 2)
	assert.Len(t, fw.batches[0], batchSize)
	assert.Len(t, fw.batches[1], 3)

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestKafkaPublisherError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{w: fw, log: discardLogger()}

	err := p.Publish(context.Background(), "demo", "run-1", records(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
