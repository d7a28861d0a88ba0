// Package chsink writes telemetry events to a ClickHouse table.
package chsink

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/fundexplorer/datakit/logger"
	"github.com/fundexplorer/datakit/telemetry"
	"go.uber.org/zap"
)

// Sink batch-inserts event rows into ClickHouse.
type Sink struct {
	logger logger.Logger
	cfg    *Config
	conn   driver.Conn
}

// New connects to ClickHouse and verifies the connection with a ping.
func New(log logger.Logger, cfg *Config) (*Sink, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig("config is required")
	}
	defaults := DefaultConfig()
	if cfg.Table == "" {
		cfg.Table = defaults.Table
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: cfg.Hosts,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, ErrConnection(err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		conn.Close()
		return nil, ErrConnection(err)
	}

	log.Info("clickhouse sink initialized",
		zap.Strings("hosts", cfg.Hosts),
		zap.String("database", cfg.Database),
		zap.String("table", cfg.Table),
	)
	return &Sink{logger: log, cfg: cfg, conn: conn}, nil
}

func (s *Sink) Write(ctx context.Context, events []telemetry.Event) error {
	if len(events) == 0 {
		return nil
	}

	query := fmt.Sprintf("INSERT INTO `%s` (time, kind, entity_type, key, source_id, latency_ms, err)", s.cfg.Table)
	batch, err := s.conn.PrepareBatch(ctx, query)
	if err != nil {
		return ErrInsert(s.cfg.Table, err)
	}

	for _, ev := range events {
		err := batch.Append(
			ev.Time,
			string(ev.Kind),
			ev.EntityType,
			ev.Key,
			ev.SourceID,
			ev.Latency.Milliseconds(),
			ev.Err,
		)
		if err != nil {
			return ErrInsert(s.cfg.Table, err)
		}
	}

	if err := batch.Send(); err != nil {
		return ErrInsert(s.cfg.Table, err)
	}

	s.logger.Debug("telemetry batch inserted",
		zap.String("table", s.cfg.Table),
		zap.Int("rows", len(events)),
	)
	return nil
}

func (s *Sink) Close() error {
	return s.conn.Close()
}
