// Package kafkasink produces telemetry events to a Kafka topic as JSON.
package kafkasink

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/fundexplorer/datakit/logger"
	"github.com/fundexplorer/datakit/telemetry"
	"go.uber.org/zap"
)

// Sink produces one JSON message per event. Delivery reports are consumed
// in the background and failures logged.
type Sink struct {
	logger logger.Logger
	cfg    *Config
	p      *kafka.Producer

	wg   sync.WaitGroup
	done chan struct{}
}

// New creates a Kafka-backed sink.
func New(log logger.Logger, cfg *Config) (*Sink, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig("config is required")
	}
	defaults := DefaultConfig()
	if cfg.Acks == "" {
		cfg.Acks = defaults.Acks
	}
	if cfg.FlushTimeoutMs == 0 {
		cfg.FlushTimeoutMs = defaults.FlushTimeoutMs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
		"acks":              cfg.Acks,
	})
	if err != nil {
		return nil, ErrProducer(err)
	}

	s := &Sink{
		logger: log,
		cfg:    cfg,
		p:      producer,
		done:   make(chan struct{}),
	}

	s.wg.Add(1)
	go s.handleDeliveryReports()

	log.Info("kafka sink initialized",
		zap.String("servers", cfg.BootstrapServers),
		zap.String("topic", cfg.Topic),
	)
	return s, nil
}

func (s *Sink) handleDeliveryReports() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case e := <-s.p.Events():
			switch ev := e.(type) {
			case *kafka.Message:
				if ev.TopicPartition.Error != nil {
					s.logger.Error("failed to deliver telemetry message",
						zap.Error(ev.TopicPartition.Error),
						zap.String("topic", *ev.TopicPartition.Topic),
					)
				}
			case kafka.Error:
				s.logger.Error("kafka sink error",
					zap.Int("code", int(ev.Code())),
					zap.String("error", ev.String()),
				)
			}
		}
	}
}

func (s *Sink) Write(ctx context.Context, events []telemetry.Event) error {
	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			return ErrEncode(err)
		}
		msg := &kafka.Message{
			TopicPartition: kafka.TopicPartition{
				Topic:     &s.cfg.Topic,
				Partition: kafka.PartitionAny,
			},
			Key:   []byte(ev.Kind),
			Value: value,
		}
		if err := s.p.Produce(msg, nil); err != nil {
			return ErrProducer(err)
		}
	}
	return nil
}

func (s *Sink) Close() error {
	close(s.done)
	s.wg.Wait()

	if remaining := s.p.Flush(s.cfg.FlushTimeoutMs); remaining > 0 {
		s.logger.Warn("undelivered telemetry messages at shutdown",
			zap.Int("remaining", remaining),
		)
	}
	s.p.Close()
	return nil
}
