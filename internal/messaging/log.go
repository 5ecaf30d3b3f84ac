package messaging

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher logs each message and discards it. Used when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.log.Info("message discarded, no broker configured",
		zap.String("key", msg.Key), zap.String("type", msg.Type), zap.Int("bytes", len(msg.Value)))
	return nil
}

func (p *LogPublisher) Close() error { return nil }
