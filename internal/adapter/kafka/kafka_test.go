package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/cyberattack-map/internal/config"
	"github.com/couchcryptid/cyberattack-map/internal/domain"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func testWriter(rec *recordingWriter) *Writer {
	return &Writer{writer: rec, topic: "cyber-incidents", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

var generatedAt = time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC)

func TestSerializeToMessage(t *testing.T) {
	inc := domain.Incident{
		ID:         "3f0c6c2e-0000-5000-8000-000000000001",
		AttackType: "Ransomware",
		Place:      "Utrecht",
		Lat:        52.0907,
		Lon:        5.1214,
		GeoSource:  domain.GeoSourceGeocoded,
	}

	msg, err := serializeToMessage(inc, generatedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte(inc.ID), msg.Key)
	assert.Contains(t, string(msg.Value), `"attack_type":"Ransomware"`)
	assert.Contains(t, string(msg.Value), `"date_iso":null`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "attack_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("Ransomware"), msg.Headers[0].Value)
	assert.Equal(t, "generated_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-12-31T12:00:00Z"), msg.Headers[1].Value)
}

func TestWriter_Load(t *testing.T) {
	rec := &recordingWriter{}
	w := testWriter(rec)

	ds := domain.Dataset{
		Incidents:   []domain.Incident{{ID: "a"}, {ID: "b"}},
		GeneratedAt: generatedAt,
	}
	require.NoError(t, w.Load(context.Background(), ds))

	require.Len(t, rec.msgs, 2)
	assert.Equal(t, []byte("a"), rec.msgs[0].Key)
	assert.Equal(t, []byte("b"), rec.msgs[1].Key)
}

func TestWriter_Load_Empty(t *testing.T) {
	rec := &recordingWriter{err: errors.New("must not be called")}
	require.NoError(t, testWriter(rec).Load(context.Background(), domain.Dataset{}))
}

func TestWriter_Load_Error(t *testing.T) {
	rec := &recordingWriter{err: errors.New("broker down")}
	err := testWriter(rec).Load(context.Background(), domain.Dataset{Incidents: []domain.Incident{{ID: "a"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyber-incidents")
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewWriter(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "incidents"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Equal(t, "kafka", w.Name())
	assert.Equal(t, "incidents", w.topic)
	require.NoError(t, w.Close())
}
