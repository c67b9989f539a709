package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"github.com/ahrav/go-adhere/internal/domain"
)

// KafkaConfig configures KafkaSink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
	// FailureThreshold consecutive write failures open the breaker for
	// OpenTimeout.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// DefaultKafkaConfig returns the defaults used by the CLI.
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Topic:            "adherence.results",
		WriteTimeout:     5 * time.Second,
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
	}
}

// messageWriter is the subset of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each result as a message keyed by patient ID, so every
// result of a patient lands on the same partition. Writes go through a
// circuit breaker; while it is open, writes fail fast with
// gobreaker.ErrOpenState.
type KafkaSink struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	log     *slog.Logger
}

// NewKafkaSink builds a synchronous writer for cfg.Topic.
func NewKafkaSink(cfg KafkaConfig, log *slog.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink: topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return newKafkaSink(w, cfg, log), nil
}

func newKafkaSink(w messageWriter, cfg KafkaConfig, log *slog.Logger) *KafkaSink {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "kafka-sink"), slog.String("topic", cfg.Topic))

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = DefaultKafkaConfig().FailureThreshold
	}
	st := gobreaker.Settings{Name: "kafka-sink:" + cfg.Topic, Timeout: cfg.OpenTimeout}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= threshold
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultKafkaConfig().WriteTimeout
	}
	return &KafkaSink{
		writer:  w,
		breaker: gobreaker.NewCircuitBreaker(st),
		timeout: timeout,
		log:     log,
	}
}

// Write implements ResultSink.
func (k *KafkaSink) Write(ctx context.Context, res domain.UnitResult) error {
	value, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(res.PatientID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "config_id", Value: []byte(res.ConfigID)},
		},
	}

	_, err = k.breaker.Execute(func() (any, error) {
		wctx, cancel := context.WithTimeout(ctx, k.timeout)
		defer cancel()
		return nil, k.writer.WriteMessages(wctx, msg)
	})
	if err != nil {
		k.log.Error("publish result failed",
			"patient_id", res.PatientID,
			"config_id", res.ConfigID,
			"window_index", res.WindowIndex,
			"error", err)
		return fmt.Errorf("publish result: %w", err)
	}
	return nil
}

// Close implements ResultSink.
func (k *KafkaSink) Close() error { return k.writer.Close() }

// State reports the breaker state.
func (k *KafkaSink) State() gobreaker.State { return k.breaker.State() }
