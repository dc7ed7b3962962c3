package bus

import (
	"context"
	"log"
)

// NullBus is a no-op implementation used when Redis is disabled.
type NullBus struct {
	logger *log.Logger
}

// NewNullBus creates a new null bus instance.
func NewNullBus(logger *log.Logger) *NullBus {
	if logger == nil {
		logger = log.New(log.Writer(), "[NullBus] ", log.LstdFlags)
	}
	return &NullBus{logger: logger}
}

// PublishEvidence logs the notification but does not publish it.
func (nb *NullBus) PublishEvidence(ctx context.Context, msg EvidenceMessage) error {
	nb.logger.Printf("Would publish evidence %d for case %d (Redis disabled)", msg.RecordID, msg.CaseID)
	return nil
}

// HealthCheck always succeeds for the null bus.
func (nb *NullBus) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op for the null bus.
func (nb *NullBus) Close() error {
	return nil
}
