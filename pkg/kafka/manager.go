package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Goden-Gun/grpcbind/pkg/tracing"
)

const tracerName = "github.com/Goden-Gun/grpcbind/pkg/kafka"

var (
	ErrNoBrokers  = errors.New("kafka brokers empty")
	ErrNoTopic    = errors.New("kafka topic empty")
	ErrNilManager = errors.New("kafka manager nil")
)

// Config holds the producer settings of the error-event pipeline.
type Config struct {
	Brokers       []string `yaml:"brokers" mapstructure:"brokers"`
	Topic         string   `yaml:"topic" mapstructure:"topic"`
	ClientID      string   `yaml:"client_id" mapstructure:"client_id"`
	Username      string   `yaml:"username" mapstructure:"username"`
	Password      string   `yaml:"password" mapstructure:"password"`
	SASLMechanism string   `yaml:"sasl_mechanism" mapstructure:"sasl_mechanism"`
	TLSEnabled    bool     `yaml:"tls_enabled" mapstructure:"tls_enabled"`
	// none | one | all
	RequiredAcks string `yaml:"required_acks" mapstructure:"required_acks"`
	MaxAttempts  int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// PublishObserver sees every Publish outcome, successful or not.
type PublishObserver interface {
	ObservePublish(topic string, duration time.Duration, err error)
}

// Manager wraps one sarama sync producer shared by all reporters.
type Manager struct {
	cfg      Config
	producer sarama.SyncProducer

	mu       sync.RWMutex
	observer PublishObserver

	closeOnce sync.Once
	closeErr  error
}

// recordHeaders carries trace context into the produced record.
type recordHeaders []sarama.RecordHeader

func (h *recordHeaders) Get(key string) string {
	for i := range *h {
		if string((*h)[i].Key) == key {
			return string((*h)[i].Value)
		}
	}
	return ""
}

func (h *recordHeaders) Set(key, value string) {
	*h = append(*h, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (h *recordHeaders) Keys() []string {
	out := make([]string, len(*h))
	for i := range *h {
		out[i] = string((*h)[i].Key)
	}
	return out
}

// NewManager dials cfg.Brokers and returns a ready manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, err
	}
	return NewManagerWithProducer(cfg, producer), nil
}

// NewManagerWithProducer wraps an existing producer, e.g. a sarama mock.
func NewManagerWithProducer(cfg Config, producer sarama.SyncProducer) *Manager {
	return &Manager{cfg: cfg, producer: producer}
}

func producerConfig(cfg Config) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_1_0_0
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}

	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = max(cfg.MaxAttempts, 3)
	sc.Producer.RequiredAcks = parseRequiredAcks(cfg.RequiredAcks)

	if cfg.TLSEnabled {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.Username != "" {
		applySASL(sc, cfg.Username, cfg.Password, cfg.SASLMechanism)
	}
	return sc
}

func parseRequiredAcks(v string) sarama.RequiredAcks {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "none":
		return sarama.NoResponse
	case "one":
		return sarama.WaitForLocal
	default:
		return sarama.WaitForAll
	}
}

// SetPublishObserver installs or replaces the observer.
func (m *Manager) SetPublishObserver(observer PublishObserver) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.observer = observer
	m.mu.Unlock()
}

func (m *Manager) currentObserver() PublishObserver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observer
}

// Publish produces one record to topic, or to cfg.Topic when topic is empty.
// The record carries the caller's trace context in its headers and the send
// is wrapped in a producer span.
func (m *Manager) Publish(ctx context.Context, topic string, key, value []byte) (err error) {
	if m == nil {
		return ErrNilManager
	}
	if topic == "" {
		topic = m.cfg.Topic
	}
	start := time.Now()
	defer func() {
		if o := m.currentObserver(); o != nil {
			o.ObservePublish(topic, time.Since(start), err)
		}
	}()
	if topic == "" {
		return ErrNoTopic
	}
	if err = ctx.Err(); err != nil {
		return err
	}

	ctx, span := tracing.Tracer(tracerName).Start(ctx, "publish "+topic,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", topic),
		))
	defer func() {
		tracing.RecordError(span, err)
		span.End()
	}()

	var headers recordHeaders
	otel.GetTextMapPropagator().Inject(ctx, &headers)

	msg := &sarama.ProducerMessage{Topic: topic, Headers: headers, Timestamp: start}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}
	if len(value) > 0 {
		msg.Value = sarama.ByteEncoder(value)
	}
	_, _, err = m.producer.SendMessage(msg)
	return err
}

// Close closes the producer once; later calls return the first result.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.closeOnce.Do(func() {
		if m.producer != nil {
			m.closeErr = m.producer.Close()
		}
	})
	return m.closeErr
}
